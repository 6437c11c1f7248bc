package block

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ID идентификатор блока внутри одного процесса
type ID uint16

const (
	// AirID зарезервированный идентификатор воздуха
	AirID ID = 0
	// AirIdentifier строковый идентификатор воздуха в палитре
	AirIdentifier = "air"
)

// Face грань блока. Порядок совпадает с порядком обхода при построении меша.
type Face int

const (
	North Face = iota // +Z
	East              // +X
	South             // -Z
	West              // -X
	Up                // +Y
	Down              // -Y
)

// FaceCount количество граней куба
const FaceCount = 6

// Faces все грани в порядке обхода
var Faces = [FaceCount]Face{North, East, South, West, Up, Down}

var faceNames = [FaceCount]string{"north", "east", "south", "west", "up", "down"}

// String возвращает имя грани
func (f Face) String() string {
	if f < 0 || int(f) >= FaceCount {
		return "unknown"
	}
	return faceNames[f]
}

// Offset смещение к соседней ячейке через грань
func (f Face) Offset() (dx, dy, dz int) {
	switch f {
	case North:
		return 0, 0, 1
	case East:
		return 1, 0, 0
	case South:
		return 0, 0, -1
	case West:
		return -1, 0, 0
	case Up:
		return 0, 1, 0
	default:
		return 0, -1, 0
	}
}

// Opposite противоположная грань
func (f Face) Opposite() Face {
	switch f {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	default:
		return Up
	}
}

// ParseFace разбирает имя грани
func ParseFace(s string) (Face, bool) {
	for i, n := range faceNames {
		if n == s {
			return Face(i), true
		}
	}
	return 0, false
}

// Shape форма блока, определяет функцию построения геометрии
type Shape int

const (
	ShapeNone Shape = iota // воздух, геометрии нет
	ShapeCube
)

// String возвращает имя формы
func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeCube:
		return "cube"
	default:
		return "unknown"
	}
}

// White цвет граней по умолчанию
var White = mgl32.Vec4{1, 1, 1, 1}

// Block неизменяемое описание блока. Равенство определяется только по ID.
type Block struct {
	ID            ID
	Shape         Shape
	Textures      [FaceCount]int
	Colors        [FaceCount]mgl32.Vec4
	CanCollide    bool
	Transparent   bool
	ConnectToSame bool
}

// Air возвращает блок воздуха
func Air() Block {
	b := Block{ID: AirID, Shape: ShapeNone, Transparent: true}
	for i := range b.Colors {
		b.Colors[i] = White
	}
	return b
}

// Equal сравнивает блоки по ID
func (b Block) Equal(other Block) bool {
	return b.ID == other.ID
}

// IsAir проверяет, является ли блок воздухом
func (b Block) IsAir() bool {
	return b.ID == AirID
}

// IsTransparent решает, видна ли грань current, если за ней находится neighbor.
// Прозрачные соседи с ConnectToSame скрывают грань только между блоками одного типа.
func IsTransparent(neighbor, current Block) bool {
	if neighbor.ID == AirID {
		return true
	}
	if !neighbor.Transparent {
		return false
	}
	if !neighbor.ConnectToSame {
		return true
	}
	return neighbor.ID != current.ID
}
