package generator

import (
	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// FlatLayers границы слоёв плоского мира по мировой Y:
// y < StoneTop - камень, y < DirtTop - земля, y == GrassY - трава, выше воздух
type FlatLayers struct {
	StoneTop int
	DirtTop  int
	GrassY   int
}

// DefaultFlatLayers камень до 4, земля до 6, трава на 6
var DefaultFlatLayers = FlatLayers{StoneTop: 4, DirtTop: 6, GrassY: 6}

// FlatGenerator генерирует плоский мир из горизонтальных слоёв
type FlatGenerator struct {
	pool   *jobs.Pool
	layers FlatLayers
	stone  block.ID
	dirt   block.ID
	grass  block.ID
}

// NewFlatGenerator создаёт плоский генератор. Нужны блоки stone, dirt и grass.
func NewFlatGenerator(pool *jobs.Pool, registry Resolver, layers FlatLayers) (*FlatGenerator, error) {
	g := &FlatGenerator{pool: pool, layers: layers}
	var err error
	if g.stone, err = resolve(registry, block.StoneIdentifier); err != nil {
		return nil, err
	}
	if g.dirt, err = resolve(registry, block.DirtIdentifier); err != nil {
		return nil, err
	}
	if g.grass, err = resolve(registry, block.GrassIdentifier); err != nil {
		return nil, err
	}
	return g, nil
}

// GenerateChunk заполняет buf в фоновой задаче
func (g *FlatGenerator) GenerateChunk(buf []block.ID, pos vec.Vec3) *jobs.Handle {
	return schedule(g.pool, g.fill, buf, pos)
}

func (g *FlatGenerator) layerAt(worldY int) block.ID {
	switch {
	case worldY < 0:
		return block.AirID
	case worldY < g.layers.StoneTop:
		return g.stone
	case worldY < g.layers.DirtTop:
		return g.dirt
	case worldY == g.layers.GrassY:
		return g.grass
	default:
		return block.AirID
	}
}

func (g *FlatGenerator) fill(buf []block.ID, pos vec.Vec3) {
	var column [chunk.Size]block.ID
	for y := 0; y < chunk.Size; y++ {
		column[y] = g.layerAt(pos.Y + y)
	}

	for x := 0; x < chunk.Size; x++ {
		for y := 0; y < chunk.Size; y++ {
			for z := 0; z < chunk.Size; z++ {
				buf[chunk.Index(x, y, z)] = column[y]
			}
		}
	}
}
