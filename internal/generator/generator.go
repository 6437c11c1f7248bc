// Package generator содержит генераторы ландшафта чанков, работающие в пуле задач.
package generator

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// Resolver отображает строковый идентификатор блока в ID реестра
type Resolver interface {
	ID(identifier string) (block.ID, bool)
}

// fillFunc заполняет буфер объёмом чанка для позиции чанка
type fillFunc func(buf []block.ID, pos vec.Vec3)

// schedule отправляет заполнение буфера в пул; без пула задача выполнится в Complete
func schedule(pool *jobs.Pool, fill fillFunc, buf []block.ID, pos vec.Vec3) *jobs.Handle {
	if len(buf) != chunk.Volume {
		panic(fmt.Sprintf("generator: buffer length %d, want %d", len(buf), chunk.Volume))
	}
	return pool.Submit(func() { fill(buf, pos) })
}

func resolve(r Resolver, identifier string) (block.ID, error) {
	id, ok := r.ID(identifier)
	if !ok {
		return block.AirID, fmt.Errorf("блок %q не зарегистрирован", identifier)
	}
	return id, nil
}
