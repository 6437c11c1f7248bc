package chunk

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/world/block"
)

// ErrRunLength сумма длин серий не совпадает с объёмом чанка
var ErrRunLength = errors.New("compressed runs do not cover chunk volume")

// Run серия одинаковых блоков
type Run struct {
	ID     int32
	Length int32
}

// Resolver сопоставляет строковый идентификатор текущему ID
type Resolver interface {
	ID(identifier string) (block.ID, bool)
}

// Compress кодирует массив сериями в порядке Index. Соседние серии всегда имеют разные ID.
func Compress(ids []block.ID) []Run {
	if len(ids) == 0 {
		return nil
	}

	runs := make([]Run, 0, 16)
	current := Run{ID: int32(ids[0]), Length: 1}
	for _, id := range ids[1:] {
		if int32(id) == current.ID {
			current.Length++
			continue
		}
		runs = append(runs, current)
		current = Run{ID: int32(id), Length: 1}
	}
	return append(runs, current)
}

// Compress кодирует блоки чанка сериями
func (b *Blocks) Compress() []Run {
	return Compress(b.data)
}

// DecompressReport итог распаковки
type DecompressReport struct {
	Substituted int     // ячеек заменено воздухом
	Unresolved  []int32 // сохранённые ID без соответствия в текущем реестре
}

// Decompress разворачивает серии в массив. Каждый сохранённый ID проходит через
// палитру файла и затем через текущий реестр; неразрешённые серии становятся воздухом.
func (b *Blocks) Decompress(runs []Run, palette map[int32]string, resolver Resolver, logger *logging.Logger) (DecompressReport, error) {
	var report DecompressReport

	total := 0
	for _, r := range runs {
		if r.Length < 0 {
			return report, fmt.Errorf("%w: negative run length %d", ErrRunLength, r.Length)
		}
		total += int(r.Length)
	}
	if total != Volume {
		return report, fmt.Errorf("%w: got %d, want %d", ErrRunLength, total, Volume)
	}

	resolved := make(map[int32]block.ID, len(palette))
	pos := 0
	for _, r := range runs {
		id, ok := resolved[r.ID]
		if !ok {
			id, ok = resolveID(r.ID, palette, resolver)
			if ok {
				resolved[r.ID] = id
			}
		}
		if !ok {
			logger.Warn("Неизвестный блок %d (%q) в сохранении, заменён воздухом", r.ID, palette[r.ID])
			report.Substituted += int(r.Length)
			report.Unresolved = appendUnique(report.Unresolved, r.ID)
			id = block.AirID
		}

		end := pos + int(r.Length)
		for i := pos; i < end; i++ {
			b.data[i] = id
		}
		pos = end
	}

	return report, nil
}

func resolveID(saved int32, palette map[int32]string, resolver Resolver) (block.ID, bool) {
	identifier, ok := palette[saved]
	if !ok {
		return block.AirID, false
	}
	if identifier == block.AirIdentifier {
		return block.AirID, true
	}
	return resolver.ID(identifier)
}

func appendUnique(ids []int32, id int32) []int32 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
