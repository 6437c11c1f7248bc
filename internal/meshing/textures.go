package meshing

import "github.com/go-gl/mathgl/mgl32"

// TextureMap сопоставляет ID текстуры ячейке атласа.
// Атлас собирается снаружи, здесь используется только готовое отображение.
type TextureMap map[int][2]int

// GridTextureMap раскладывает count текстур по сетке шириной columns
func GridTextureMap(columns, count int) TextureMap {
	if columns <= 0 {
		columns = 1
	}
	m := make(TextureMap, count)
	for i := 0; i < count; i++ {
		m[i] = [2]int{i % columns, i / columns}
	}
	return m
}

// Cell ячейка атласа для текстуры; неизвестная текстура даёт (0, 0)
func (m TextureMap) Cell(texture int) mgl32.Vec2 {
	c := m[texture]
	return mgl32.Vec2{float32(c[0]), float32(c[1])}
}
