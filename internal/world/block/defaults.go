package block

import "github.com/go-gl/mathgl/mgl32"

// Текстуры стандартного атласа
const (
	TextureStone = iota
	TextureDirt
	TextureGrassTop
	TextureGrassSide
	TextureSand
	TextureGlass
	TextureWater
	TextureLeaves
)

// Стандартные идентификаторы блоков
const (
	StoneIdentifier  = "stone"
	DirtIdentifier   = "dirt"
	GrassIdentifier  = "grass"
	SandIdentifier   = "sand"
	GlassIdentifier  = "glass"
	WaterIdentifier  = "water"
	LeavesIdentifier = "leaves"
)

// DefaultConfigs стандартный набор блоков, используется когда файл описаний не задан
func DefaultConfigs() []*Config {
	grass := NewCubeConfig("Grass", GrassIdentifier, TextureGrassSide).
		WithFaceTexture(Up, TextureGrassTop).
		WithFaceTexture(Down, TextureDirt)

	return []*Config{
		NewCubeConfig("Stone", StoneIdentifier, TextureStone),
		NewCubeConfig("Dirt", DirtIdentifier, TextureDirt),
		grass,
		NewCubeConfig("Sand", SandIdentifier, TextureSand),
		NewCubeConfig("Glass", GlassIdentifier, TextureGlass).
			WithFlags(true, true, true),
		// Вода проходима, соседние блоки воды сливаются в одну поверхность
		NewCubeConfig("Water", WaterIdentifier, TextureWater).
			WithFlags(false, true, true).
			WithColor(mgl32.Vec4{0.25, 0.45, 1, 0.7}),
		NewCubeConfig("Leaves", LeavesIdentifier, TextureLeaves).
			WithFlags(true, true, false).
			WithColor(mgl32.Vec4{0.4, 0.8, 0.3, 1}),
	}
}
