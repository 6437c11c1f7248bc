package world

import (
	"sort"

	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/meshing"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// updateChunks приводит набор чанков к желаемому по точкам обзора
func (w *World) updateChunks() {
	desired := desiredSet(w.cfg, w.loaders)

	for _, pos := range sortedPositions(desired) {
		d := desired[pos]
		c, ok := w.chunks[pos]
		if !ok {
			w.createChunk(pos, d)
			continue
		}
		if c.requestedRemoval {
			w.reviveChunk(c, d.priority)
		}
		w.refreshChunk(c, d)
	}

	for pos, c := range w.chunks {
		if _, ok := desired[pos]; !ok {
			w.destroyChunk(c)
		}
	}
}

func (w *World) createChunk(pos vec.Vec3, d desiredChunk) {
	c := newChunk(pos)
	c.render = d.render
	w.chunks[pos] = c

	if w.loadChunk(c) {
		c.hasTerrain = true
		if c.render {
			w.tryQueueRender(c, d.priority, false)
		}
		return
	}

	c.needsTerrain = true
	w.generateQueue.Push(pos, d.priority)
}

// loadChunk читает чанк из временного, затем постоянного хранилища.
// Ошибка чтения логируется, чанк генерируется заново.
func (w *World) loadChunk(c *Chunk) bool {
	if w.store == nil {
		return false
	}
	ok, err := w.store.LoadAny(c.Position, c.blocks)
	if err != nil {
		w.logger.Error("Ошибка загрузки чанка %s: %v", c.Position, err)
		c.blocks.Fill(block.AirID)
		return false
	}
	if ok {
		w.metrics.loaded.Inc()
	}
	return ok
}

// refreshChunk применяет новый флаг видимости к существующему чанку
func (w *World) refreshChunk(c *Chunk, d desiredChunk) {
	_, hasSlot := w.renderers.get(c.Position)
	if !d.render && hasSlot {
		w.releaseRenderer(c.Position)
	}
	if d.render && c.hasRender && !hasSlot && c.mesh != nil {
		slot := w.renderers.acquire(c.Position)
		w.sink.InstallMesh(slot, c.Position, c.mesh)
	}
	if c.hasTerrain && !c.updatingRenderer && !c.hasRender && d.render {
		w.tryQueueRender(c, d.priority, false)
	}
	c.render = d.render
}

// reviveChunk отменяет удаление чанка, снова попавшего в желаемый набор
func (w *World) reviveChunk(c *Chunk, priority int) {
	c.requestedRemoval = false
	for i, other := range w.removals {
		if other == c {
			w.removals = append(w.removals[:i], w.removals[i+1:]...)
			break
		}
	}
	if c.needsTerrain && !c.generatingTerrain {
		w.generateQueue.Push(c.Position, priority)
	}
	if c.hasRender && c.collider == nil && !c.updatingCollider {
		w.colliderQueue.Push(c.Position, priority)
	}
}

// destroyChunk помечает чанк на удаление; сам чанк удаляется в processRemovals
func (w *World) destroyChunk(c *Chunk) {
	if c.requestedRemoval {
		return
	}
	c.requestedRemoval = true
	w.removals = append(w.removals, c)
}

// processChunks ставит изменённые видимые чанки на перестроение меша
func (w *World) processChunks() {
	for _, c := range w.chunks {
		if !c.dirty || !c.render || c.requestedRemoval {
			continue
		}
		if w.tryQueueRender(c, 0, c.urgentUpdate) {
			c.dirty = false
			c.urgentUpdate = false
		}
	}
}

// tryQueueRender ставит чанк на построение меша, если у него и соседей есть
// блоки. urgent запускает задачу сразу, и она применяется в этом же тике.
func (w *World) tryQueueRender(c *Chunk, priority int, urgent bool) bool {
	if !c.hasTerrain || w.renderJobs.has(c.Position) || !w.neighborsReady(c.Position) {
		return false
	}
	if urgent {
		w.startRenderJob(c, priority, true)
		return true
	}
	w.renderQueue.Push(c.Position, priority)
	return true
}

// neighborsReady у всех соседей есть блоки. Соседи за верхней и нижней
// границей мира и за конечными границами по X/Z считаются готовыми.
func (w *World) neighborsReady(pos vec.Vec3) bool {
	for _, face := range block.Faces {
		if face == block.Up && pos.Y >= chunk.Size*(w.cfg.MaxY-1) {
			continue
		}
		if face == block.Down && pos.Y <= 0 {
			continue
		}
		npos := neighborPos(pos, face)
		if !w.cfg.inBoundsXZ(vec.FloorDiv(npos.X, chunk.Size), vec.FloorDiv(npos.Z, chunk.Size)) {
			continue
		}
		n, ok := w.chunks[npos]
		if !ok || !n.hasTerrain {
			return false
		}
	}
	return true
}

func neighborPos(pos vec.Vec3, face block.Face) vec.Vec3 {
	dx, dy, dz := face.Offset()
	return pos.Add(vec.New(dx, dy, dz).Scale(chunk.Size))
}

// generate запускает генератор; без генератора чанк остаётся воздухом
func (w *World) generate(buf []block.ID, pos vec.Vec3) *jobs.Handle {
	if w.generator == nil {
		return jobs.Completed(nil)
	}
	return w.generator.GenerateChunk(buf, pos)
}

func (w *World) startGenerateJob(c *Chunk, priority int) {
	buf := c.startGenerating()
	w.generateJobs.add(&jobRecord{
		pos:      c.Position,
		handle:   w.generate(buf, c.Position),
		priority: priority,
	})
}

// meshInput снимок блоков чанка и граничных слоёв соседей для фоновой задачи
func (w *World) meshInput(c *Chunk) meshing.Input {
	in := meshing.Input{
		Position: c.Position,
		Blocks:   c.blocks.Snapshot(),
		Table:    w.registry.Table(),
		Textures: w.textures,
	}
	for _, face := range block.Faces {
		n, ok := w.chunks[neighborPos(c.Position, face)]
		if !ok || !n.hasTerrain || n.blocks == nil {
			continue
		}
		in.Neighbors[face] = chunk.Slab(n.blocks.Raw(), face)
	}
	return in
}

func (w *World) startRenderJob(c *Chunk, priority int, urgent bool) {
	rec := &jobRecord{pos: c.Position, priority: priority, urgent: urgent}
	in := w.meshInput(c)
	rec.handle = w.pool.Submit(func() {
		rec.mesh = meshing.BuildVisual(in)
	})
	w.renderJobs.add(rec)
	c.updatingRenderer = true
}

func (w *World) startColliderJob(c *Chunk, priority int) {
	rec := &jobRecord{pos: c.Position, priority: priority}
	in := w.meshInput(c)
	rec.handle = w.pool.Submit(func() {
		rec.collider = meshing.BuildCollider(in)
	})
	w.colliderJobs.add(rec)
	c.updatingCollider = true
}

// finishJob дожидается задачи и обновляет счётчики
func (w *World) finishJob(kind string, rec *jobRecord) {
	forced := !rec.handle.IsCompleted() && !rec.urgent
	rec.handle.Complete()
	if forced {
		w.metrics.forced.WithLabelValues(kind).Inc()
		w.logger.Trace("Задача %s для %s завершена принудительно после %d тиков", kind, rec.pos, rec.frames)
	}
	w.metrics.completed.WithLabelValues(kind).Inc()
}

func (w *World) processGenerateJobs() {
	w.generateJobs.sweep(func(rec *jobRecord) bool {
		if !rec.done(w.cfg.MaxJobFrames) {
			rec.frames++
			return false
		}
		w.finishJob(kindGenerate, rec)

		c, ok := w.chunks[rec.pos]
		if !ok {
			return true
		}
		c.completeGenerating()
		if !c.requestedRemoval && c.render {
			w.tryQueueRender(c, rec.priority, false)
		}
		return true
	})
}

func (w *World) processRenderJobs() {
	w.renderJobs.sweep(func(rec *jobRecord) bool {
		if !rec.done(w.cfg.MaxJobFrames) {
			rec.frames++
			return false
		}
		w.finishJob(kindRender, rec)

		c, ok := w.chunks[rec.pos]
		if !ok {
			return true
		}
		c.completeMeshUpdate(rec.mesh)
		if c.requestedRemoval {
			return true
		}
		if c.render {
			slot := w.renderers.acquire(rec.pos)
			w.sink.InstallMesh(slot, rec.pos, rec.mesh)
		}
		w.colliderQueue.Push(rec.pos, rec.priority)
		return true
	})
}

func (w *World) processColliderJobs() {
	w.colliderJobs.sweep(func(rec *jobRecord) bool {
		if !rec.done(w.cfg.MaxJobFrames) {
			rec.frames++
			return false
		}
		w.finishJob(kindCollider, rec)

		c, ok := w.chunks[rec.pos]
		if !ok {
			return true
		}
		c.completeColliderUpdate(rec.collider)
		if c.requestedRemoval {
			return true
		}
		slot := w.colliders.acquire(rec.pos)
		w.sink.InstallCollider(slot, rec.pos, rec.collider)
		return true
	})
}

// processRemovals удаляет помеченные чанки, у которых не осталось задач
func (w *World) processRemovals() {
	kept := w.removals[:0]
	for _, c := range w.removals {
		if !c.CanRemove() {
			kept = append(kept, c)
			continue
		}
		w.disposeChunk(c, true)
	}
	clear(w.removals[len(kept):])
	w.removals = kept
}

// disposeChunk сохраняет изменённый чанк во временное хранилище и освобождает его слоты
func (w *World) disposeChunk(c *Chunk, save bool) {
	if save && c.changed && c.hasTerrain {
		if err := w.saveTemp(c); err != nil {
			w.logger.Error("Ошибка сохранения чанка %s: %v", c.Position, err)
		}
	}
	w.releaseRenderer(c.Position)
	w.releaseCollider(c.Position)
	delete(w.chunks, c.Position)
	c.dispose()
}

func (w *World) saveTemp(c *Chunk) error {
	if w.store == nil {
		return nil
	}
	if err := w.store.Save(c.Position, c.blocks, true); err != nil {
		return err
	}
	c.changed = false
	w.metrics.saved.Inc()
	return nil
}

func (w *World) releaseRenderer(pos vec.Vec3) {
	if slot, ok := w.renderers.release(pos); ok {
		w.sink.ReleaseMesh(slot, pos)
	}
}

func (w *World) releaseCollider(pos vec.Vec3) {
	if slot, ok := w.colliders.release(pos); ok {
		w.sink.ReleaseCollider(slot, pos)
	}
}

func (w *World) drainGenerateQueue() {
	scheduled := 0
	for scheduled < w.cfg.MaxGenerateJobs {
		pos, priority, ok := w.generateQueue.Pop()
		if !ok {
			return
		}
		c, ok := w.chunks[pos]
		if !ok || w.generateJobs.has(pos) || !c.needsTerrain || c.requestedRemoval || c.generatingTerrain {
			continue
		}
		w.startGenerateJob(c, priority)
		scheduled++
	}
}

func (w *World) drainRenderQueue() {
	scheduled := 0
	for scheduled < w.cfg.MaxRenderJobs {
		pos, priority, ok := w.renderQueue.Pop()
		if !ok {
			return
		}
		c, ok := w.chunks[pos]
		if !ok || w.renderJobs.has(pos) || c.requestedRemoval || !c.hasTerrain {
			continue
		}
		w.startRenderJob(c, priority, false)
		scheduled++
	}
}

func (w *World) drainColliderQueue() {
	scheduled := 0
	for scheduled < w.cfg.MaxColliderJobs {
		pos, priority, ok := w.colliderQueue.Pop()
		if !ok {
			return
		}
		c, ok := w.chunks[pos]
		if !ok || w.colliderJobs.has(pos) || c.requestedRemoval {
			continue
		}
		w.startColliderJob(c, priority)
		scheduled++
	}
}

// completeAllJobs дожидается и применяет все запущенные задачи
func (w *World) completeAllJobs() {
	for _, t := range []*jobTable{w.generateJobs, w.renderJobs, w.colliderJobs} {
		for _, rec := range t.records {
			rec.urgent = true
		}
	}
	w.processGenerateJobs()
	w.processRenderJobs()
	w.processColliderJobs()
}

// releaseAll освобождает все чанки без сохранения и очищает очереди
func (w *World) releaseAll() {
	for _, c := range w.chunks {
		w.disposeChunk(c, false)
	}
	w.removals = nil
	w.generateQueue.Clear()
	w.renderQueue.Clear()
	w.colliderQueue.Clear()
}

func sortChunkInfos(infos []ChunkInfo) {
	sort.Slice(infos, func(i, j int) bool {
		return lessVec(infos[i].Position, infos[j].Position)
	})
}
