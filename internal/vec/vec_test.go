package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloorDivAndMod(t *testing.T) {
	cases := []struct {
		a, b, div, mod int
	}{
		{0, 16, 0, 0},
		{15, 16, 0, 15},
		{16, 16, 1, 0},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{-17, 16, -2, 15},
		{33, 16, 2, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.div, FloorDiv(c.a, c.b), "FloorDiv(%d,%d)", c.a, c.b)
		assert.Equal(t, c.mod, Mod(c.a, c.b), "Mod(%d,%d)", c.a, c.b)
	}
}

func TestChunkContainment(t *testing.T) {
	const size = 16
	for x := -40; x <= 40; x += 3 {
		for y := -20; y <= 20; y += 7 {
			p := Vec3{X: x, Y: y, Z: -x}
			chunk := p.ChunkOf(size)
			local := p.LocalOf(size)

			assert.Equal(t, p, chunk.Add(local))
			for _, c := range []int{local.X, local.Y, local.Z} {
				assert.GreaterOrEqual(t, c, 0)
				assert.Less(t, c, size)
			}
			assert.Zero(t, Mod(chunk.X, size))
			assert.Zero(t, Mod(chunk.Z, size))
		}
	}
}

func TestParseVec3(t *testing.T) {
	v, err := ParseVec3("-16,0,32")
	require.NoError(t, err)
	assert.Equal(t, Vec3{X: -16, Y: 0, Z: 32}, v)
	assert.Equal(t, "-16,0,32", v.String())

	_, err = ParseVec3("1,2")
	assert.Error(t, err)
	_, err = ParseVec3("a,b,c")
	assert.Error(t, err)
}

func TestFloatRounding(t *testing.T) {
	v := Vec3Float{X: -0.5, Y: 1.49, Z: 2.5}
	assert.Equal(t, Vec3{X: -1, Y: 1, Z: 2}, v.Floor())
	assert.Equal(t, Vec3{X: -1, Y: 1, Z: 3}, v.Round())
	assert.InDelta(t, 1.0, Vec3Float{X: 3, Y: 4}.Normalized().Length(), 1e-9)
}
