package world

import (
	"math"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

const boundaryEpsilon = 0.001

// BlockSource источник блоков для трассировки луча
type BlockSource interface {
	GetBlock(pos vec.Vec3) block.ID
}

// RaycastHit результат трассировки
type RaycastHit struct {
	Block            block.ID
	BlockPosition    vec.Vec3      // блок, в который попал луч
	AdjacentPosition vec.Vec3      // предыдущий блок на пути луча, куда можно поставить новый
	Direction        vec.Vec3Float // нормализованное направление
	ScenePosition    vec.Vec3Float // точка пересечения с гранью (в координатах со сдвигом на полблока)
}

// Raycast идёт по лучу от границы к границе блоков, пока не встретит непустой
// блок, не уйдёт дальше maxRange или не опустится до y <= 0. Без попадания
// Y обеих позиций обнуляется.
func Raycast(src BlockSource, origin, direction vec.Vec3Float, maxRange float64) (RaycastHit, bool) {
	dir := direction.Normalized()
	if dir.Length() == 0 {
		return RaycastHit{Block: block.AirID}, false
	}

	// центр блока (0,0,0) лежит в (0.5, 0.5, 0.5)
	start := origin.Sub(vec.Vec3Float{X: 0.5, Y: 0.5, Z: 0.5})
	pos := start

	bPos := pos.Round()
	adjacent := bPos
	sign := [3]int{signOf(dir.X), signOf(dir.Y), signOf(dir.Z)}
	speed := vec.Vec3Float{X: math.Abs(dir.X), Y: math.Abs(dir.Y), Z: math.Abs(dir.Z)}

	hitBlock := src.GetBlock(bPos)
	hit := hitBlock != block.AirID

	for hitBlock == block.AirID && start.DistanceTo(pos) < maxRange {
		bx := makeBoundary(sign[0], pos.X)
		by := makeBoundary(sign[1], pos.Y)
		bz := makeBoundary(sign[2], pos.Z)

		// время до каждой границы; деление на ноль даёт +Inf и ось не выбирается
		tx := math.Abs(bx-pos.X) / speed.X
		ty := math.Abs(by-pos.Y) / speed.Y
		tz := math.Abs(bz-pos.Z) / speed.Z

		switch {
		case tx < ty && tx < tz:
			pos = pos.Add(dir.Mul(tx))
		case ty < tz:
			pos = pos.Add(dir.Mul(ty))
		default:
			pos = pos.Add(dir.Mul(tz))
		}

		adjacent = bPos
		bPos = vec.New(
			resolveBlockPos(pos.X, sign[0]),
			resolveBlockPos(pos.Y, sign[1]),
			resolveBlockPos(pos.Z, sign[2]),
		)
		hitBlock = src.GetBlock(bPos)
		if hitBlock != block.AirID {
			hit = true
		}
		if bPos.Y <= 0 {
			break
		}
	}

	if !hit {
		bPos.Y = 0
		adjacent.Y = 0
	}

	return RaycastHit{
		Block:            hitBlock,
		BlockPosition:    bPos,
		AdjacentPosition: adjacent,
		Direction:        dir,
		ScenePosition:    pos,
	}, hit
}

// Raycast трассирует луч по загруженным чанкам мира
func (w *World) Raycast(origin, direction vec.Vec3Float, maxRange float64) (RaycastHit, bool) {
	return Raycast(w, origin, direction, maxRange)
}

func signOf(v float64) int {
	if v > 0 {
		return 1
	}
	return -1
}

// resolveBlockPos переводит координату в индекс блока; точка на границе
// относится к блоку по направлению движения
func resolveBlockPos(pos float64, sign int) int {
	f := pos + 0.5
	i := math.Round(f)
	if math.Abs(f-i) < boundaryEpsilon {
		if sign == 1 {
			return int(i)
		}
		return int(i) - 1
	}
	return int(math.Round(pos))
}

// makeBoundary ближайшая граница блока по направлению sign
func makeBoundary(sign int, pos float64) float64 {
	pos += 0.5
	var result float64
	if sign == -1 {
		result = math.Floor(pos)
	} else {
		result = math.Ceil(pos)
	}
	if math.Abs(result-pos) < boundaryEpsilon {
		result += float64(sign)
	}
	return result - 0.5
}
