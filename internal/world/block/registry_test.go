package block

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	r := NewRegistry(nil)
	require.NoError(t, r.Initialize(DefaultConfigs()))
	return r
}

func TestRegistryAssignsSequentialIDs(t *testing.T) {
	r := newTestRegistry(t)

	air := r.Get(AirID)
	assert.True(t, air.IsAir())
	assert.False(t, air.CanCollide)

	for i, ident := range []string{StoneIdentifier, DirtIdentifier, GrassIdentifier} {
		id, ok := r.ID(ident)
		require.True(t, ok)
		assert.Equal(t, ID(i+1), id)

		got, ok := r.Identifier(id)
		require.True(t, ok)
		assert.Equal(t, ident, got)
	}
	assert.Equal(t, len(DefaultConfigs())+1, r.Len())
	assert.Equal(t, "Stone", r.Name(1))
}

func TestRegistrySkipsNilConfigs(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Initialize([]*Config{
		NewCubeConfig("Stone", "stone", 0),
		nil,
		NewCubeConfig("Dirt", "dirt", 1),
	}))

	id, ok := r.ID("dirt")
	require.True(t, ok)
	assert.Equal(t, ID(2), id)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry(nil)
	err := r.Initialize([]*Config{
		NewCubeConfig("Stone", "stone", 0),
		NewCubeConfig("Stone again", "stone", 1),
	})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
	assert.False(t, r.IsInitialized())
}

func TestRegistrySecondInitializeIsNoop(t *testing.T) {
	r := newTestRegistry(t)
	before := r.Len()

	require.NoError(t, r.Initialize([]*Config{NewCubeConfig("X", "x", 0)}))
	assert.Equal(t, before, r.Len())
	_, ok := r.ID("x")
	assert.False(t, ok)
}

func TestRegistryBeforeInitialize(t *testing.T) {
	r := NewRegistry(nil)
	assert.NotPanics(t, r.Dispose)

	assert.True(t, r.Get(5).IsAir())
	_, ok := r.GetByIdentifier("stone")
	assert.False(t, ok)
	assert.Len(t, r.Table(), 1)
}

func TestRegistryUnknownIDFallsBackToAir(t *testing.T) {
	r := newTestRegistry(t)
	assert.True(t, r.Get(ID(999)).IsAir())
}

func TestRegistryDispose(t *testing.T) {
	r := newTestRegistry(t)
	r.Dispose()
	assert.False(t, r.IsInitialized())
	assert.Zero(t, r.Len())
	require.NoError(t, r.Initialize(DefaultConfigs()))
	assert.True(t, r.IsInitialized())
}

func TestIsTransparent(t *testing.T) {
	stone := Block{ID: 1}
	glass := Block{ID: 2, Transparent: true, ConnectToSame: true}
	leaves := Block{ID: 3, Transparent: true}

	cases := []struct {
		name              string
		neighbor, current Block
		want              bool
	}{
		{"air neighbor", Air(), stone, true},
		{"opaque neighbor", stone, stone, false},
		{"transparent non-connecting", leaves, leaves, true},
		{"connected same type", glass, glass, false},
		{"connected different type", glass, stone, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, IsTransparent(c.neighbor, c.current))
		})
	}
}

func TestParseConfigs(t *testing.T) {
	data := []byte(`
blocks:
  - name: Stone
    id: stone
    texture: 3
  - name: Grass
    id: grass
    texture: 1
    textures:
      up: 2
    colors:
      up: [0.5, 1, 0.5]
  - name: Water
    id: water
    texture: 6
    can_collide: false
    transparent: true
    color: [0, 0, 1, 0.5]
  -
`)
	configs, err := ParseConfigs(data)
	require.NoError(t, err)
	require.Len(t, configs, 4)
	assert.Nil(t, configs[3])

	assert.Equal(t, 3, configs[0].Cube.Textures[North])
	assert.True(t, configs[0].CanCollide)

	assert.Equal(t, 2, configs[1].Cube.Textures[Up])
	assert.Equal(t, 1, configs[1].Cube.Textures[Down])
	assert.Equal(t, mgl32.Vec4{0.5, 1, 0.5, 1}, configs[1].Cube.Colors[Up])

	assert.False(t, configs[2].CanCollide)
	assert.True(t, configs[2].Transparent)
	assert.True(t, configs[2].ConnectToSame)

	r := NewRegistry(nil)
	require.NoError(t, r.Initialize(configs))
	assert.Equal(t, 4, r.Len())
}

func TestParseConfigsRejectsUnknownFace(t *testing.T) {
	_, err := ParseConfigs([]byte("blocks:\n  - id: x\n    textures:\n      sideways: 1\n"))
	assert.Error(t, err)
}

func TestFaceOpposite(t *testing.T) {
	for _, f := range Faces {
		dx, dy, dz := f.Offset()
		ox, oy, oz := f.Opposite().Offset()
		assert.Equal(t, [3]int{-dx, -dy, -dz}, [3]int{ox, oy, oz}, f.String())
	}
}
