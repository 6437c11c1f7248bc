package world

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

var errNoStore = errors.New("world has no chunk store")

// DumpToTemp сохраняет все изменённые загруженные чанки во временное хранилище
func (w *World) DumpToTemp() error {
	if w.store == nil {
		return nil
	}

	var items []storage.SaveItem
	var dumped []*Chunk
	for _, c := range w.chunks {
		if !c.changed || !c.hasTerrain || c.blocks == nil {
			continue
		}
		items = append(items, storage.SaveItem{Position: c.Position, Blocks: c.blocks})
		dumped = append(dumped, c)
	}
	if len(items) == 0 {
		return nil
	}

	if err := w.store.SaveMany(items, true); err != nil {
		return fmt.Errorf("ошибка сохранения чанков: %w", err)
	}
	for _, c := range dumped {
		c.changed = false
	}
	w.metrics.saved.Add(float64(len(dumped)))
	w.logger.Debug("Во временное хранилище сохранено %d чанков", len(dumped))
	return nil
}

// SaveAllToLocation сохраняет изменения и копирует временные чанки в каталог dir.
// Пустой dir переносит их в постоянное хранилище мира.
func (w *World) SaveAllToLocation(dir string) (int, error) {
	if w.store == nil {
		return 0, errNoStore
	}
	if err := w.DumpToTemp(); err != nil {
		return 0, err
	}
	if dir == "" {
		return w.store.PromoteTemp()
	}

	dst := storage.NewFileBackend(dir)
	defer dst.Close()
	n, err := w.store.CopyTo(dst, true)
	if err != nil {
		return n, fmt.Errorf("ошибка копирования чанков в %s: %w", dir, err)
	}
	w.logger.Info("Скопировано %d чанков в %s", n, dir)
	return n, nil
}

// ExportJSON пишет все сохранённые чанки (временные поверх постоянных) в JSON-документ.
// ignoreEmpty пропускает чанки из одного воздуха.
func (w *World) ExportJSON(out io.Writer, ignoreEmpty, compress bool) (int, error) {
	if w.store == nil {
		return 0, errNoStore
	}
	if err := w.DumpToTemp(); err != nil {
		return 0, err
	}

	positions, err := w.savedPositions()
	if err != nil {
		return 0, err
	}

	doc := storage.NewDocument(storage.Palette(w.registry))
	blocks := chunk.NewBlocks()
	for _, pos := range positions {
		ok, err := w.store.LoadAny(pos, blocks)
		if err != nil {
			return 0, err
		}
		if !ok || (ignoreEmpty && blocks.IsEmpty()) {
			continue
		}
		doc.AddChunk(pos, blocks.Compress())
	}

	if err := storage.WriteDocument(out, doc, compress); err != nil {
		return 0, fmt.Errorf("ошибка записи документа мира: %w", err)
	}
	return len(doc.Chunks), nil
}

// savedPositions объединение позиций временного и постоянного хранилищ
func (w *World) savedPositions() ([]vec.Vec3, error) {
	seen := make(map[vec.Vec3]struct{})
	for _, temporary := range []bool{true, false} {
		list, err := w.store.List(temporary)
		if err != nil {
			return nil, err
		}
		for _, pos := range list {
			seen[pos] = struct{}{}
		}
	}

	out := make([]vec.Vec3, 0, len(seen))
	for pos := range seen {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return lessVec(out[i], out[j]) })
	return out, nil
}

// ImportJSON записывает чанки документа во временное хранилище и перезагружает мир
func (w *World) ImportJSON(in io.Reader, clearTemp bool) (int, error) {
	if w.store == nil {
		return 0, errNoStore
	}
	doc, err := storage.ReadDocument(in)
	if err != nil {
		return 0, err
	}
	if clearTemp {
		if err := w.store.ClearTemp(); err != nil {
			return 0, err
		}
	}

	records := doc.Records()
	for _, rec := range records {
		if err := w.store.SaveRecord(rec, true); err != nil {
			return 0, err
		}
	}

	w.RefreshWorld()
	w.logger.Info("Импортировано %d чанков", len(records))
	return len(records), nil
}

// RefreshWorld выгружает все чанки без сохранения; они будут загружены
// заново из хранилища на следующем тике
func (w *World) RefreshWorld() {
	w.generateQueue.Clear()
	w.renderQueue.Clear()
	w.colliderQueue.Clear()

	w.completeAllJobs()
	w.releaseAll()
	w.desiredOnce = false
}
