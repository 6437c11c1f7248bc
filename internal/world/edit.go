package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// GetBlock ID блока по мировой позиции. Незагруженные позиции возвращают воздух.
func (w *World) GetBlock(pos vec.Vec3) block.ID {
	c, ok := w.chunks[pos.ChunkOf(chunk.Size)]
	if !ok || c.blocks == nil {
		return block.AirID
	}
	local := pos.LocalOf(chunk.Size)
	return c.blocks.Get(local.X, local.Y, local.Z)
}

// GetBlockData описание блока по мировой позиции
func (w *World) GetBlockData(pos vec.Vec3) block.Block {
	return w.registry.Get(w.GetBlock(pos))
}

// SetBlock меняет блок и ставит чанк на перестроение меша. Соседи помечаются,
// только если блок лежит на их общей грани. urgent перестраивает меш в этом же тике.
// Возвращает false, если чанк не загружен.
func (w *World) SetBlock(pos vec.Vec3, id block.ID, urgent bool) bool {
	cpos := pos.ChunkOf(chunk.Size)
	c, ok := w.chunks[cpos]
	if !ok {
		return false
	}
	w.ensureTerrain(c)

	local := pos.LocalOf(chunk.Size)
	c.setBlockRaw(local.X, local.Y, local.Z, id)
	c.updateChunk(urgent)

	last := chunk.Size - 1
	w.updateNeighbors(cpos, edgeFlags{
		north:  local.Z == last,
		south:  local.Z == 0,
		east:   local.X == last,
		west:   local.X == 0,
		top:    local.Y == last,
		bottom: local.Y == 0,
	})
	return true
}

// SetBlockRaw меняет блок без перестроения мешей
func (w *World) SetBlockRaw(pos vec.Vec3, id block.ID) bool {
	c, ok := w.chunks[pos.ChunkOf(chunk.Size)]
	if !ok {
		return false
	}
	w.ensureTerrain(c)

	local := pos.LocalOf(chunk.Size)
	c.setBlockRaw(local.X, local.Y, local.Z, id)
	return true
}

// SetBlocks заполняет параллелепипед (границы включительно). Чанки вне
// загруженной области загружаются или генерируются только для правки,
// сохраняются во временное хранилище и сразу выгружаются.
func (w *World) SetBlocks(from, to vec.Vec3, id block.ID) error {
	from, to = from.Min(to), from.Max(to)
	chunkFrom := from.ChunkOf(chunk.Size)
	chunkTo := to.ChunkOf(chunk.Size)
	last := chunk.Size - 1

	var errs []error
	for cy := chunkFrom.Y; cy <= chunkTo.Y; cy += chunk.Size {
		minY := 0
		if cy == chunkFrom.Y {
			minY = vec.Mod(from.Y, chunk.Size)
		}
		maxY := min(to.Y-cy, last)

		for cz := chunkFrom.Z; cz <= chunkTo.Z; cz += chunk.Size {
			minZ := 0
			if cz == chunkFrom.Z {
				minZ = vec.Mod(from.Z, chunk.Size)
			}
			maxZ := min(to.Z-cz, last)

			for cx := chunkFrom.X; cx <= chunkTo.X; cx += chunk.Size {
				minX := 0
				if cx == chunkFrom.X {
					minX = vec.Mod(from.X, chunk.Size)
				}
				maxX := min(to.X-cx, last)

				cpos := vec.New(cx, cy, cz)
				lf := vec.New(minX, minY, minZ)
				lt := vec.New(maxX, maxY, maxZ)

				c, ok := w.chunks[cpos]
				if !ok {
					if err := w.editGhost(cpos, lf, lt, id); err != nil {
						errs = append(errs, err)
					}
					continue
				}

				w.ensureTerrain(c)
				c.setRangeRaw(lf, lt, id)
				c.updateChunk(false)
				// соседей внутри области обновлять незачем: они сами в ней
				w.updateNeighbors(cpos, edgeFlags{
					north:  lt.Z == last && cz == chunkTo.Z,
					south:  lf.Z == 0 && cz == chunkFrom.Z,
					east:   lt.X == last && cx == chunkTo.X,
					west:   lf.X == 0 && cx == chunkFrom.X,
					top:    lt.Y == last && cy == chunkTo.Y,
					bottom: lf.Y == 0 && cy == chunkFrom.Y,
				})
			}
		}
	}
	return errors.Join(errs...)
}

// editGhost правит чанк, которого нет в памяти: читает или генерирует его,
// записывает во временное хранилище и отбрасывает
func (w *World) editGhost(cpos, from, to vec.Vec3, id block.ID) error {
	if w.store == nil {
		w.logger.Warn("Правка чанка %s вне загруженной области потеряна: хранилище не настроено", cpos)
		return nil
	}

	c := newChunk(cpos)
	defer c.dispose()

	if w.loadChunk(c) {
		c.hasTerrain = true
	} else {
		buf := c.startGenerating()
		w.generate(buf, cpos).Complete()
		c.completeGenerating()
	}
	w.metrics.ghosts.Inc()

	c.setRangeRaw(from, to, id)
	if err := w.saveTemp(c); err != nil {
		return fmt.Errorf("ошибка сохранения временного чанка %s: %w", cpos, err)
	}
	w.logger.Debug("Временный чанк %s изменён и сохранён", cpos)
	return nil
}

// ensureTerrain гарантирует, что у чанка есть блоки до правки: дожидается
// запущенной генерации или генерирует синхронно
func (w *World) ensureTerrain(c *Chunk) {
	if c.hasTerrain {
		return
	}
	if rec, ok := w.generateJobs.get(c.Position); ok {
		rec.urgent = true
		w.finishJob(kindGenerate, rec)
		w.generateJobs.remove(c.Position)
		c.completeGenerating()
		return
	}
	buf := c.startGenerating()
	w.generate(buf, c.Position).Complete()
	c.completeGenerating()
}

type edgeFlags struct {
	north, south, east, west, top, bottom bool
}

// updateNeighbors помечает соседей с блоками для перестроения меша
func (w *World) updateNeighbors(cpos vec.Vec3, f edgeFlags) {
	flags := [block.FaceCount]bool{
		block.North: f.north,
		block.East:  f.east,
		block.South: f.south,
		block.West:  f.west,
		block.Up:    f.top,
		block.Down:  f.bottom,
	}
	for _, face := range block.Faces {
		if !flags[face] {
			continue
		}
		if n, ok := w.chunks[neighborPos(cpos, face)]; ok && n.hasTerrain {
			// срочное перестроение, запрошенное раньше, не сбрасывается
			n.updateChunk(n.urgentUpdate)
		}
	}
}
