package chunk

import "github.com/annel0/voxel-world/internal/world/block"

// Slab вырезает из соседнего чанка слой, примыкающий к грани face центрального чанка.
// Например, для North сосед лежит по +Z и нужен его слой z=0.
func Slab(neighbor []block.ID, face block.Face) []block.ID {
	out := make([]block.ID, SlabSize)
	for a := 0; a < Size; a++ {
		for b := 0; b < Size; b++ {
			var x, y, z int
			switch face {
			case block.North:
				x, y, z = a, b, 0
			case block.South:
				x, y, z = a, b, Size-1
			case block.East:
				x, y, z = 0, a, b
			case block.West:
				x, y, z = Size-1, a, b
			case block.Up:
				x, y, z = a, 0, b
			default:
				x, y, z = a, Size-1, b
			}
			out[a*Size+b] = neighbor[Index(x, y, z)]
		}
	}
	return out
}

// SlabIndex индекс в слое для граничной ячейки (x, y, z) центрального чанка
func SlabIndex(face block.Face, x, y, z int) int {
	switch face {
	case block.North, block.South:
		return x*Size + y
	case block.East, block.West:
		return y*Size + z
	default:
		return x*Size + z
	}
}
