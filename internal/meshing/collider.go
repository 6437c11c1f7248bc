package meshing

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// greedy обход: ось direction, передняя грань смотрит в +ось, задняя в -ось
var axisFaces = [3][2]block.Face{
	{block.East, block.West},
	{block.Up, block.Down},
	{block.North, block.South},
}

// BuildCollider строит меш столкновений жадным слиянием граней.
// Грань твёрдого блока открыта, если блок за ней не участвует в столкновениях.
func BuildCollider(in Input) *ColliderMesh {
	m := &ColliderMesh{}
	origin := mgl32.Vec3{float32(in.Position.X), float32(in.Position.Y), float32(in.Position.Z)}

	for face := 0; face < 6; face++ {
		back := face > 2
		d := face % 3
		u := (d + 1) % 3
		v := (d + 2) % 3
		dir := axisFaces[d][0]
		if back {
			dir = axisFaces[d][1]
		}

		for slice := 0; slice < chunk.Size; slice++ {
			var merged [chunk.SlabSize]bool
			for a := 0; a < chunk.Size; a++ {
				for b := 0; b < chunk.Size; b++ {
					if merged[a*chunk.Size+b] {
						continue
					}

					var p [3]int
					p[d], p[u], p[v] = slice, a, b
					id := in.Blocks[chunk.Index(p[0], p[1], p[2])]
					if !in.colliderFaceOpen(p, id, dir) {
						continue
					}

					same := func(ca, cb int) bool {
						var q [3]int
						q[d], q[u], q[v] = slice, ca, cb
						return !merged[ca*chunk.Size+cb] &&
							in.Blocks[chunk.Index(q[0], q[1], q[2])] == id &&
							in.colliderFaceOpen(q, id, dir)
					}

					w := 1
					for b+w < chunk.Size && same(a, b+w) {
						w++
					}

					h := 1
				grow:
					for a+h < chunk.Size {
						for k := 0; k < w; k++ {
							if !same(a+h, b+k) {
								break grow
							}
						}
						h++
					}

					for i := 0; i < h; i++ {
						for k := 0; k < w; k++ {
							merged[(a+i)*chunk.Size+b+k] = true
						}
					}

					var o, du, dv mgl32.Vec3
					o[d], o[u], o[v] = float32(slice), float32(a), float32(b)
					if !back {
						o[d]++
					}
					du[u] = float32(h)
					dv[v] = float32(w)
					m.appendQuad(origin.Add(o), du, dv, faceNormals[dir], back)
				}
			}
		}
	}
	return m
}

func (in *Input) colliderFaceOpen(p [3]int, id block.ID, face block.Face) bool {
	if !in.blockOf(id).CanCollide {
		return false
	}
	neighbor := in.blockOf(in.neighborID(p[0], p[1], p[2], face))
	return !neighbor.CanCollide
}

func (m *ColliderMesh) appendQuad(o, du, dv, normal mgl32.Vec3, back bool) {
	start := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, o, o.Add(du), o.Add(du).Add(dv), o.Add(dv))
	m.Normals = append(m.Normals, normal, normal, normal, normal)
	if back {
		m.Indices = append(m.Indices, start+2, start+1, start, start+3, start+2, start)
	} else {
		m.Indices = append(m.Indices, start, start+1, start+2, start, start+2, start+3)
	}
}
