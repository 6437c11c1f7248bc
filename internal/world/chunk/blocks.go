package chunk

import (
	"sort"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

const (
	// Size длина ребра чанка в блоках
	Size = 16
	// SlabSize количество ячеек в одном слое чанка
	SlabSize = Size * Size
	// Volume количество ячеек в чанке
	Volume = Size * Size * Size
)

// Index линейный индекс ячейки; X меняется медленнее всех, Z быстрее всех.
// Этот порядок общий для построения меша, сжатия и распаковки.
func Index(x, y, z int) int {
	return x*Size*Size + y*Size + z
}

// Coords обратное преобразование Index
func Coords(i int) (x, y, z int) {
	return i / SlabSize, (i / Size) % Size, i % Size
}

// InBounds проверяет локальные координаты
func InBounds(x, y, z int) bool {
	return x >= 0 && x < Size && y >= 0 && y < Size && z >= 0 && z < Size
}

// Blocks плотный массив ID блоков одного чанка
type Blocks struct {
	data []block.ID
}

// NewBlocks создаёт чанк, заполненный воздухом
func NewBlocks() *Blocks {
	return &Blocks{data: make([]block.ID, Volume)}
}

// FromSlice создаёт Blocks из копии среза длиной Volume
func FromSlice(ids []block.ID) *Blocks {
	b := NewBlocks()
	b.CopyFrom(ids)
	return b
}

// Get возвращает ID блока по локальным координатам
func (b *Blocks) Get(x, y, z int) block.ID {
	return b.data[Index(x, y, z)]
}

// Set записывает ID блока по локальным координатам
func (b *Blocks) Set(x, y, z int, id block.ID) {
	b.data[Index(x, y, z)] = id
}

// GetLocal возвращает ID по вектору локальных координат
func (b *Blocks) GetLocal(p vec.Vec3) block.ID {
	return b.Get(p.X, p.Y, p.Z)
}

// SetLocal записывает ID по вектору локальных координат
func (b *Blocks) SetLocal(p vec.Vec3, id block.ID) {
	b.Set(p.X, p.Y, p.Z, id)
}

// Fill заполняет весь чанк одним блоком
func (b *Blocks) Fill(id block.ID) {
	for i := range b.data {
		b.data[i] = id
	}
}

// SetRange заполняет параллелепипед [from, to] включительно в локальных координатах
func (b *Blocks) SetRange(from, to vec.Vec3, id block.ID) {
	lo := from.Min(to)
	hi := from.Max(to)
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				b.data[Index(x, y, z)] = id
			}
		}
	}
}

// Raw прямой доступ к массиву
func (b *Blocks) Raw() []block.ID {
	return b.data
}

// CopyFrom копирует содержимое из среза
func (b *Blocks) CopyFrom(ids []block.ID) {
	copy(b.data, ids)
}

// Snapshot независимая копия массива для фоновых задач
func (b *Blocks) Snapshot() []block.ID {
	out := make([]block.ID, Volume)
	copy(out, b.data)
	return out
}

// IsEmpty проверяет, состоит ли чанк только из воздуха
func (b *Blocks) IsEmpty() bool {
	for _, id := range b.data {
		if id != block.AirID {
			return false
		}
	}
	return true
}

// Used возвращает отсортированный список различных ID в чанке
func (b *Blocks) Used() []block.ID {
	return UsedIDs(b.data)
}

// UsedIDs отсортированный список различных ID в срезе
func UsedIDs(ids []block.ID) []block.ID {
	seen := make(map[block.ID]struct{})
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	out := make([]block.ID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
