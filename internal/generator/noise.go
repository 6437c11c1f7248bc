package generator

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина
const (
	noiseAlpha   = 2.0 // сглаживание
	noiseBeta    = 2.0 // частота
	noiseOctaves = 3
)

// Noise двумерный шум Перлина с фиксированным сидом. После создания только
// читается, поэтому безопасен для одновременного использования из воркеров.
type Noise struct {
	perlin *perlin.Perlin
	seed   int64
}

// NewNoise создаёт генератор шума с указанным сидом
func NewNoise(seed int64) *Noise {
	return &Noise{
		perlin: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
		seed:   seed,
	}
}

// At2D значение шума в диапазоне от 0 до 1
func (n *Noise) At2D(x, y float64) float64 {
	v := (n.perlin.Noise2D(x, y) + 1.0) / 2.0
	return min(max(v, 0), 1)
}

// Seed сид генератора
func (n *Noise) Seed() int64 {
	return n.seed
}
