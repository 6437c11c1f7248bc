package generator

import (
	"math"

	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// PerlinOptions параметры рельефа
type PerlinOptions struct {
	Seed        int64
	NoiseScale  float64 // масштаб шума высоты
	BaseHeight  int     // минимальная высота поверхности
	Amplitude   int     // разброс высоты
	SeaLevel    int     // ниже - вода
	DirtDepth   int     // толщина земли под травой
	BushDensity float64 // доля травяных колонн с кустом (от 0 до 1)
}

// DefaultPerlinOptions значения по умолчанию
func DefaultPerlinOptions(seed int64) PerlinOptions {
	return PerlinOptions{
		Seed:        seed,
		NoiseScale:  0.02,
		BaseHeight:  20,
		Amplitude:   40,
		SeaLevel:    30,
		DirtDepth:   3,
		BushDensity: 0.02,
	}
}

// PerlinGenerator генерирует рельеф по карте высот из шума Перлина.
// Результат зависит только от сида и координат.
type PerlinGenerator struct {
	pool  *jobs.Pool
	opts  PerlinOptions
	noise *Noise

	stone, dirt, grass, sand, water, leaves block.ID
}

// NewPerlinGenerator создаёт генератор; нужны блоки stone, dirt, grass, sand, water и leaves
func NewPerlinGenerator(pool *jobs.Pool, registry Resolver, opts PerlinOptions) (*PerlinGenerator, error) {
	g := &PerlinGenerator{
		pool:  pool,
		opts:  opts,
		noise: NewNoise(opts.Seed),
	}

	targets := []struct {
		dst        *block.ID
		identifier string
	}{
		{&g.stone, block.StoneIdentifier},
		{&g.dirt, block.DirtIdentifier},
		{&g.grass, block.GrassIdentifier},
		{&g.sand, block.SandIdentifier},
		{&g.water, block.WaterIdentifier},
		{&g.leaves, block.LeavesIdentifier},
	}
	for _, t := range targets {
		id, err := resolve(registry, t.identifier)
		if err != nil {
			return nil, err
		}
		*t.dst = id
	}
	return g, nil
}

// GenerateChunk заполняет buf в фоновой задаче
func (g *PerlinGenerator) GenerateChunk(buf []block.ID, pos vec.Vec3) *jobs.Handle {
	return schedule(g.pool, g.fill, buf, pos)
}

// Height высота поверхности в колонне мировых координат
func (g *PerlinGenerator) Height(worldX, worldZ int) int {
	n := g.noise.At2D(float64(worldX)*g.opts.NoiseScale, float64(worldZ)*g.opts.NoiseScale)
	return g.opts.BaseHeight + int(math.Round(n*float64(g.opts.Amplitude)))
}

func (g *PerlinGenerator) fill(buf []block.ID, pos vec.Vec3) {
	for x := 0; x < chunk.Size; x++ {
		for z := 0; z < chunk.Size; z++ {
			wx, wz := pos.X+x, pos.Z+z
			height := g.Height(wx, wz)
			bush := g.hasBush(wx, wz, height)

			for y := 0; y < chunk.Size; y++ {
				buf[chunk.Index(x, y, z)] = g.blockAt(pos.Y+y, height, bush)
			}
		}
	}
}

func (g *PerlinGenerator) blockAt(worldY, height int, bush bool) block.ID {
	beach := height <= g.opts.SeaLevel+1
	switch {
	case worldY < 0:
		return block.AirID
	case worldY > height:
		if worldY <= g.opts.SeaLevel {
			return g.water
		}
		if bush && worldY == height+1 {
			return g.leaves
		}
		return block.AirID
	case worldY == height:
		if beach {
			return g.sand
		}
		return g.grass
	case worldY > height-g.opts.DirtDepth:
		if beach {
			return g.sand
		}
		return g.dirt
	default:
		return g.stone
	}
}

// hasBush детерминированный выбор колонн с кустами: хеш от сида и координат
func (g *PerlinGenerator) hasBush(worldX, worldZ, height int) bool {
	if g.opts.BushDensity <= 0 || height <= g.opts.SeaLevel+1 {
		return false
	}
	h := uint64(g.opts.Seed) ^ uint64(int64(worldX))*0x9E3779B97F4A7C15 ^ uint64(int64(worldZ))*0xC2B2AE3D27D4EB4F
	h ^= h >> 33
	h *= 0xFF51AFD7ED558CCD
	h ^= h >> 33
	return float64(h%10000)/10000 < g.opts.BushDensity
}
