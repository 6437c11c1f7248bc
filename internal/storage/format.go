package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// FormatVersion текущая версия файла чанка
const FormatVersion uint16 = 1

// Ограничения при чтении, защищают от мусорных счётчиков в повреждённом файле
const (
	maxPaletteEntries = 1 << 16
	maxIdentifierLen  = 1 << 12
)

var (
	// ErrNotFound чанк не сохранён в данном расположении
	ErrNotFound = errors.New("chunk not found")
	// ErrUnsupportedVersion версия файла не поддерживается
	ErrUnsupportedVersion = errors.New("unsupported chunk format version")
	// ErrCorrupt файл обрезан или содержит некорректные данные
	ErrCorrupt = errors.New("corrupt chunk data")
)

// PaletteEntry пара ID -> строковый идентификатор, записанная в файл
type PaletteEntry struct {
	ID         int32
	Identifier string
}

// Record содержимое файла чанка.
// Формат (little-endian): version u16 | x,y,z i32 | paletteCount i32 + (id i32, string)* |
// runCount i32 + (id i32, length i32)*. Строка: uvarint длина в байтах + UTF-8.
type Record struct {
	Version  uint16
	Position vec.Vec3
	Palette  []PaletteEntry
	Runs     []chunk.Run
}

// IdentifierSource выдаёт строковые идентификаторы для палитры
type IdentifierSource interface {
	Identifier(id block.ID) (string, bool)
}

// NewRecord собирает запись из блоков чанка. В палитру попадают только ID,
// которые встречаются в чанке.
func NewRecord(pos vec.Vec3, blocks *chunk.Blocks, ids IdentifierSource) *Record {
	used := blocks.Used()
	palette := make([]PaletteEntry, 0, len(used))
	for _, id := range used {
		ident, ok := ids.Identifier(id)
		if !ok {
			continue
		}
		palette = append(palette, PaletteEntry{ID: int32(id), Identifier: ident})
	}
	return &Record{
		Version:  FormatVersion,
		Position: pos,
		Palette:  palette,
		Runs:     blocks.Compress(),
	}
}

// PaletteMap палитра записи в виде карты
func (r *Record) PaletteMap() map[int32]string {
	m := make(map[int32]string, len(r.Palette))
	for _, e := range r.Palette {
		m[e.ID] = e.Identifier
	}
	return m
}

// SortPalette упорядочивает палитру по ID
func (r *Record) SortPalette() {
	sort.Slice(r.Palette, func(i, j int) bool { return r.Palette[i].ID < r.Palette[j].ID })
}

// Marshal кодирует запись в бинарный формат
func Marshal(r *Record) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian

	var scratch [binary.MaxVarintLen64]byte
	put32 := func(v int32) {
		le.PutUint32(scratch[:4], uint32(v))
		buf.Write(scratch[:4])
	}

	le.PutUint16(scratch[:2], r.Version)
	buf.Write(scratch[:2])

	put32(int32(r.Position.X))
	put32(int32(r.Position.Y))
	put32(int32(r.Position.Z))

	put32(int32(len(r.Palette)))
	for _, e := range r.Palette {
		put32(e.ID)
		n := binary.PutUvarint(scratch[:], uint64(len(e.Identifier)))
		buf.Write(scratch[:n])
		buf.WriteString(e.Identifier)
	}

	put32(int32(len(r.Runs)))
	for _, run := range r.Runs {
		put32(run.ID)
		put32(run.Length)
	}

	return buf.Bytes()
}

// Unmarshal декодирует запись. Версия 0 и версии новее текущей отклоняются.
func Unmarshal(data []byte) (*Record, error) {
	rd := bytes.NewReader(data)
	le := binary.LittleEndian

	var version uint16
	if err := binary.Read(rd, le, &version); err != nil {
		return nil, corrupt(err)
	}
	if version == 0 || version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	var head [4]int32
	if err := binary.Read(rd, le, &head); err != nil {
		return nil, corrupt(err)
	}
	rec := &Record{
		Version:  version,
		Position: vec.Vec3{X: int(head[0]), Y: int(head[1]), Z: int(head[2])},
	}

	paletteCount := head[3]
	if paletteCount < 0 || paletteCount > maxPaletteEntries {
		return nil, fmt.Errorf("%w: palette count %d", ErrCorrupt, paletteCount)
	}
	rec.Palette = make([]PaletteEntry, 0, paletteCount)
	for i := int32(0); i < paletteCount; i++ {
		var id int32
		if err := binary.Read(rd, le, &id); err != nil {
			return nil, corrupt(err)
		}
		n, err := binary.ReadUvarint(rd)
		if err != nil {
			return nil, corrupt(err)
		}
		if n > maxIdentifierLen {
			return nil, fmt.Errorf("%w: identifier length %d", ErrCorrupt, n)
		}
		ident := make([]byte, n)
		if _, err := io.ReadFull(rd, ident); err != nil {
			return nil, corrupt(err)
		}
		rec.Palette = append(rec.Palette, PaletteEntry{ID: id, Identifier: string(ident)})
	}

	var runCount int32
	if err := binary.Read(rd, le, &runCount); err != nil {
		return nil, corrupt(err)
	}
	if runCount < 0 || runCount > chunk.Volume {
		return nil, fmt.Errorf("%w: run count %d", ErrCorrupt, runCount)
	}
	rec.Runs = make([]chunk.Run, runCount)
	if err := binary.Read(rd, le, rec.Runs); err != nil {
		return nil, corrupt(err)
	}

	return rec, nil
}

func corrupt(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated", ErrCorrupt)
	}
	return fmt.Errorf("%w: %v", ErrCorrupt, err)
}
