package meshing

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// faceTemplate вершины, UV и порядок индексов одной грани единичного куба
type faceTemplate struct {
	corners [4]mgl32.Vec3
	uvs     [4]mgl32.Vec2
	indices [6]uint32
}

var (
	uvStandard = [4]mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	uvWest     = [4]mgl32.Vec2{{0, 0}, {0, 1}, {1, 0}, {1, 1}}

	windingNorth = [6]uint32{1, 2, 0, 1, 3, 2}
	windingOther = [6]uint32{0, 2, 1, 2, 3, 1}
)

var cubeFaces = [block.FaceCount]faceTemplate{
	block.North: {
		corners: [4]mgl32.Vec3{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1}},
		uvs:     uvStandard,
		indices: windingNorth,
	},
	block.East: {
		corners: [4]mgl32.Vec3{{1, 0, 0}, {1, 0, 1}, {1, 1, 0}, {1, 1, 1}},
		uvs:     uvStandard,
		indices: windingOther,
	},
	block.South: {
		corners: [4]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}},
		uvs:     uvStandard,
		indices: windingOther,
	},
	block.West: {
		corners: [4]mgl32.Vec3{{0, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 1, 1}},
		uvs:     uvWest,
		indices: windingOther,
	},
	block.Up: {
		corners: [4]mgl32.Vec3{{0, 1, 0}, {1, 1, 0}, {0, 1, 1}, {1, 1, 1}},
		uvs:     uvStandard,
		indices: windingOther,
	},
	block.Down: {
		corners: [4]mgl32.Vec3{{0, 0, 0}, {0, 0, 1}, {1, 0, 0}, {1, 0, 1}},
		uvs:     uvStandard,
		indices: windingOther,
	},
}

// BuildVisual строит визуальный меш: грань выводится, если блок за ней прозрачен
// по отношению к текущему. Результат детерминирован для одинаковых входных данных.
func BuildVisual(in Input) *Mesh {
	m := &Mesh{}
	origin := mgl32.Vec3{float32(in.Position.X), float32(in.Position.Y), float32(in.Position.Z)}

	index := 0
	for x := 0; x < chunk.Size; x++ {
		for y := 0; y < chunk.Size; y++ {
			for z := 0; z < chunk.Size; z++ {
				current := in.blockOf(in.Blocks[index])
				index++
				if current.IsAir() {
					continue
				}

				base := origin.Add(mgl32.Vec3{float32(x), float32(y), float32(z)})
				for _, face := range block.Faces {
					neighbor := in.blockOf(in.neighborID(x, y, z, face))
					if !block.IsTransparent(neighbor, current) {
						continue
					}
					emitShape(m, current, face, base, in.Textures)
				}
			}
		}
	}
	return m
}

// emitShape выбирает функцию построения по форме блока
func emitShape(m *Mesh, b block.Block, face block.Face, base mgl32.Vec3, textures TextureMap) {
	switch b.Shape {
	case block.ShapeCube:
		emitCubeFace(m, b, face, base, textures)
	}
}

func emitCubeFace(m *Mesh, b block.Block, face block.Face, base mgl32.Vec3, textures TextureMap) {
	tpl := &cubeFaces[face]
	start := uint32(len(m.Vertices))
	cell := textures.Cell(b.Textures[face])
	color := b.Colors[face]
	normal := faceNormals[face]

	for i := 0; i < 4; i++ {
		m.Vertices = append(m.Vertices, base.Add(tpl.corners[i]))
		m.UVs = append(m.UVs, mgl32.Vec4{tpl.uvs[i][0], tpl.uvs[i][1], cell[0], cell[1]})
		m.Colors = append(m.Colors, color)
		m.Normals = append(m.Normals, normal)
	}
	for _, idx := range tpl.indices {
		m.Indices = append(m.Indices, start+idx)
	}
}
