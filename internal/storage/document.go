package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// WorldDocument переносимое JSON-представление мира
type WorldDocument struct {
	Palette []PaletteJSON `json:"palette"`
	Chunks  []ChunkJSON   `json:"chunks"`
}

// PaletteJSON элемент палитры
type PaletteJSON struct {
	Index int32  `json:"index"`
	ID    string `json:"id"`
}

// ChunkJSON чанк: позиция и серии [id, length]
type ChunkJSON struct {
	Position [3]int     `json:"position"`
	Blocks   [][2]int32 `json:"blocks"`
}

// NewDocument создаёт документ с палитрой
func NewDocument(palette []PaletteEntry) *WorldDocument {
	doc := &WorldDocument{Palette: make([]PaletteJSON, 0, len(palette))}
	for _, e := range palette {
		doc.Palette = append(doc.Palette, PaletteJSON{Index: e.ID, ID: e.Identifier})
	}
	return doc
}

// AddChunk добавляет серии чанка в документ
func (d *WorldDocument) AddChunk(pos vec.Vec3, runs []chunk.Run) {
	c := ChunkJSON{Position: [3]int{pos.X, pos.Y, pos.Z}, Blocks: make([][2]int32, len(runs))}
	for i, r := range runs {
		c.Blocks[i] = [2]int32{r.ID, r.Length}
	}
	d.Chunks = append(d.Chunks, c)
}

// Records превращает документ в записи бинарного формата с общей палитрой
func (d *WorldDocument) Records() []*Record {
	palette := make([]PaletteEntry, len(d.Palette))
	for i, p := range d.Palette {
		palette[i] = PaletteEntry{ID: p.Index, Identifier: p.ID}
	}

	out := make([]*Record, 0, len(d.Chunks))
	for _, c := range d.Chunks {
		rec := &Record{
			Version:  FormatVersion,
			Position: vec.Vec3{X: c.Position[0], Y: c.Position[1], Z: c.Position[2]},
			Palette:  palette,
			Runs:     make([]chunk.Run, len(c.Blocks)),
		}
		for i, b := range c.Blocks {
			rec.Runs[i] = chunk.Run{ID: b[0], Length: b[1]}
		}
		out = append(out, rec)
	}
	return out
}

// WriteDocument пишет документ в JSON, при compress - внутри потока zstd
func WriteDocument(w io.Writer, doc *WorldDocument, compress bool) error {
	if !compress {
		return json.NewEncoder(w).Encode(doc)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(zw).Encode(doc); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ReadDocument читает документ; сжатие zstd определяется по сигнатуре
func ReadDocument(r io.Reader) (*WorldDocument, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	}

	var doc WorldDocument
	if err := json.NewDecoder(src).Decode(&doc); err != nil {
		return nil, fmt.Errorf("ошибка чтения документа мира: %w", err)
	}
	return &doc, nil
}
