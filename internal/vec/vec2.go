package vec

// Vec2 представляет координаты колонки в плоскости XZ
type Vec2 struct {
	X, Z int
}

// ColumnOf возвращает колонку, в которой лежит точка
func (v Vec3) ColumnOf() Vec2 {
	return Vec2{X: v.X, Z: v.Z}
}

// ChunkOf возвращает колонку чанка, содержащую точку
func (v Vec2) ChunkOf(size int) Vec2 {
	return Vec2{X: FloorDiv(v.X, size) * size, Z: FloorDiv(v.Z, size) * size}
}

// DistanceSq возвращает квадрат расстояния до другой колонки
func (v Vec2) DistanceSq(other Vec2) int {
	dx := v.X - other.X
	dz := v.Z - other.Z
	return dx*dx + dz*dz
}
