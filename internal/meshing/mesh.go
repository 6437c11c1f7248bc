package meshing

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// Mesh визуальный меш чанка. UV хранит (u, v, atlasX, atlasY).
type Mesh struct {
	Vertices []mgl32.Vec3
	Indices  []uint32
	UVs      []mgl32.Vec4
	Colors   []mgl32.Vec4
	Normals  []mgl32.Vec3
}

// QuadCount количество граней в меше
func (m *Mesh) QuadCount() int {
	return len(m.Vertices) / 4
}

// IsEmpty меш без геометрии
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0
}

// ColliderMesh упрощённый меш для физики
type ColliderMesh struct {
	Vertices []mgl32.Vec3
	Indices  []uint32
	Normals  []mgl32.Vec3
}

// QuadCount количество прямоугольников в меше
func (m *ColliderMesh) QuadCount() int {
	return len(m.Vertices) / 4
}

// IsEmpty меш без геометрии
func (m *ColliderMesh) IsEmpty() bool {
	return m == nil || len(m.Vertices) == 0
}

// Input всё, что нужно для построения мешей одного чанка. Задача получает
// собственные копии массивов и никогда не обращается к живому состоянию мира.
type Input struct {
	Position  vec.Vec3
	Blocks    []block.ID
	Neighbors [block.FaceCount][]block.ID // слои соседей, nil означает воздух
	Table     []block.Block
	Textures  TextureMap
}

func (in *Input) blockOf(id block.ID) block.Block {
	if int(id) < len(in.Table) {
		return in.Table[id]
	}
	return block.Air()
}

// neighborID ID блока за гранью face ячейки (x, y, z)
func (in *Input) neighborID(x, y, z int, face block.Face) block.ID {
	dx, dy, dz := face.Offset()
	nx, ny, nz := x+dx, y+dy, z+dz
	if chunk.InBounds(nx, ny, nz) {
		return in.Blocks[chunk.Index(nx, ny, nz)]
	}
	slab := in.Neighbors[face]
	if slab == nil {
		return block.AirID
	}
	return slab[chunk.SlabIndex(face, x, y, z)]
}

var faceNormals = [block.FaceCount]mgl32.Vec3{
	block.North: {0, 0, 1},
	block.East:  {1, 0, 0},
	block.South: {0, 0, -1},
	block.West:  {-1, 0, 0},
	block.Up:    {0, 1, 0},
	block.Down:  {0, -1, 0},
}

// Normal нормаль грани
func Normal(face block.Face) mgl32.Vec3 {
	return faceNormals[face]
}
