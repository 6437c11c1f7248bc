package world

import (
	"fmt"
	"time"
)

// Config настройки координатора чанков. Границы мира и высота заданы в чанках.
type Config struct {
	ChunkGenerateDelay time.Duration // период пересчёта желаемого набора чанков
	TickInterval       time.Duration // период тика в Run
	MaxJobFrames       int           // тиков до принудительного завершения задачи
	MaxGenerateJobs    int           // задач генерации за тик
	MaxRenderJobs      int           // задач меша за тик
	MaxColliderJobs    int           // задач коллайдера за тик

	MinX, MaxX int
	MinZ, MaxZ int
	InfiniteX  bool
	InfiniteZ  bool
	MaxY       int // количество чанков по высоте

	ClearTempOnClose bool
	SaveOnClose      bool // перенести временные чанки в постоянное хранилище при закрытии
}

// DefaultConfig значения по умолчанию
func DefaultConfig() Config {
	return Config{
		ChunkGenerateDelay: 200 * time.Millisecond,
		TickInterval:       time.Second / 60,
		MaxJobFrames:       3,
		MaxGenerateJobs:    40,
		MaxRenderJobs:      20,
		MaxColliderJobs:    20,
		MinX:               -10,
		MaxX:               10,
		MinZ:               -10,
		MaxZ:               10,
		InfiniteX:          true,
		InfiniteZ:          true,
		MaxY:               8,
		ClearTempOnClose:   true,
	}
}

// Validate проверяет согласованность настроек
func (c Config) Validate() error {
	if c.MaxY < 1 {
		return fmt.Errorf("max_y должен быть не меньше 1, получено %d", c.MaxY)
	}
	if c.MaxJobFrames < 0 {
		return fmt.Errorf("max_job_frames не может быть отрицательным")
	}
	if c.MaxGenerateJobs < 1 || c.MaxRenderJobs < 1 || c.MaxColliderJobs < 1 {
		return fmt.Errorf("лимиты задач за тик должны быть положительными")
	}
	if !c.InfiniteX && c.MinX > c.MaxX {
		return fmt.Errorf("min_x (%d) больше max_x (%d)", c.MinX, c.MaxX)
	}
	if !c.InfiniteZ && c.MinZ > c.MaxZ {
		return fmt.Errorf("min_z (%d) больше max_z (%d)", c.MinZ, c.MaxZ)
	}
	return nil
}

// inBoundsXZ лежит ли чанк (в чанковых единицах) внутри границ мира
func (c Config) inBoundsXZ(x, z int) bool {
	if !c.InfiniteX && (x < c.MinX || x > c.MaxX) {
		return false
	}
	if !c.InfiniteZ && (z < c.MinZ || z > c.MaxZ) {
		return false
	}
	return true
}
