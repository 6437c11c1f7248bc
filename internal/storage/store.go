package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// Registry источник палитры: прямое и обратное отображение идентификаторов
type Registry interface {
	IdentifierSource
	chunk.Resolver
}

// Options настройки хранилища
type Options struct {
	SaveDir        string
	DurableBackend string // "file", "badger", "redis" или "memory"
	CacheMB        int
	Redis          RedisOptions
}

// Store хранилище чанков с временным (на сессию) и постоянным расположением
type Store struct {
	temp     Backend
	durable  Backend
	registry Registry
	cache    *ristretto.Cache
	logger   *logging.Logger
}

// SaveItem чанк для пакетного сохранения
type SaveItem struct {
	Position vec.Vec3
	Blocks   *chunk.Blocks
}

// Open создаёт хранилище в SaveDir: временные файлы в SaveDir/temp, постоянные
// в SaveDir (файлы), SaveDir/world.db (badger) или в хеше Redis
func Open(opts Options, registry Registry, logger *logging.Logger) (*Store, error) {
	temp := NewFileBackend(filepath.Join(opts.SaveDir, "temp"))

	var durable Backend
	switch opts.DurableBackend {
	case "", "file":
		durable = NewFileBackend(opts.SaveDir)
	case "badger":
		bb, err := NewBadgerBackend(filepath.Join(opts.SaveDir, "world.db"))
		if err != nil {
			return nil, err
		}
		durable = bb
	case "redis":
		rb, err := NewRedisBackend(opts.Redis)
		if err != nil {
			return nil, err
		}
		durable = rb
	case "memory":
		durable = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown durable backend %q", opts.DurableBackend)
	}

	return NewStore(temp, durable, registry, int64(opts.CacheMB)<<20, logger)
}

// NewStore создаёт хранилище поверх готовых бэкендов. cacheBytes <= 0 отключает кеш.
func NewStore(temp, durable Backend, registry Registry, cacheBytes int64, logger *logging.Logger) (*Store, error) {
	s := &Store{
		temp:     temp,
		durable:  durable,
		registry: registry,
		logger:   logger,
	}

	if cacheBytes > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e5,
			MaxCost:     cacheBytes,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка создания кеша чанков: %w", err)
		}
		s.cache = cache
	}

	return s, nil
}

func (s *Store) backend(temporary bool) Backend {
	if temporary {
		return s.temp
	}
	return s.durable
}

func cacheKey(pos vec.Vec3, temporary bool) string {
	if temporary {
		return "t:" + pos.String()
	}
	return "d:" + pos.String()
}

// Save записывает чанк в выбранное расположение
func (s *Store) Save(pos vec.Vec3, blocks *chunk.Blocks, temporary bool) error {
	return s.SaveRecord(NewRecord(pos, blocks, s.registry), temporary)
}

// SaveRecord записывает готовую запись
func (s *Store) SaveRecord(rec *Record, temporary bool) error {
	if err := s.backend(temporary).Write(rec.Position, Marshal(rec)); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Del(cacheKey(rec.Position, temporary))
	}
	s.logger.Trace("Чанк %s сохранён (%s, серий: %d)", rec.Position, s.backend(temporary).Name(), len(rec.Runs))
	return nil
}

// SaveMany сохраняет несколько чанков параллельно
func (s *Store) SaveMany(items []SaveItem, temporary bool) error {
	var g errgroup.Group
	g.SetLimit(8)
	for _, item := range items {
		rec := NewRecord(item.Position, item.Blocks, s.registry)
		g.Go(func() error {
			return s.SaveRecord(rec, temporary)
		})
	}
	return g.Wait()
}

// LoadRecord читает запись без распаковки
func (s *Store) LoadRecord(pos vec.Vec3, temporary bool) (*Record, error) {
	key := cacheKey(pos, temporary)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return Unmarshal(v.([]byte))
		}
	}

	data, err := s.backend(temporary).Read(pos)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, data, int64(len(data)))
	}
	return Unmarshal(data)
}

// Load читает чанк и распаковывает его в dst. Отсутствие файла не ошибка: возвращается false.
func (s *Store) Load(pos vec.Vec3, dst *chunk.Blocks, temporary bool) (bool, error) {
	rec, err := s.LoadRecord(pos, temporary)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rec.Position != pos {
		s.logger.Warn("Файл чанка %s содержит позицию %s", pos, rec.Position)
	}

	report, err := dst.Decompress(rec.Runs, rec.PaletteMap(), s.registry, s.logger)
	if err != nil {
		return false, fmt.Errorf("%w: chunk %s: %v", ErrCorrupt, pos, err)
	}
	if report.Substituted > 0 {
		s.logger.Warn("Чанк %s: %d блоков заменено воздухом", pos, report.Substituted)
	}
	return true, nil
}

// LoadAny ищет чанк сначала во временном, затем в постоянном расположении
func (s *Store) LoadAny(pos vec.Vec3, dst *chunk.Blocks) (bool, error) {
	ok, err := s.Load(pos, dst, true)
	if ok || err != nil {
		return ok, err
	}
	return s.Load(pos, dst, false)
}

// List координаты сохранённых чанков
func (s *Store) List(temporary bool) ([]vec.Vec3, error) {
	return s.backend(temporary).List()
}

// Delete удаляет чанк из расположения
func (s *Store) Delete(pos vec.Vec3, temporary bool) error {
	if s.cache != nil {
		s.cache.Del(cacheKey(pos, temporary))
	}
	return s.backend(temporary).Delete(pos)
}

// ClearTemp удаляет все временные чанки
func (s *Store) ClearTemp() error {
	if s.cache != nil {
		s.cache.Clear()
	}
	if err := s.temp.Clear(); err != nil {
		return fmt.Errorf("ошибка очистки временных чанков: %w", err)
	}
	s.logger.Debug("Временные чанки удалены")
	return nil
}

// CopyTo копирует все чанки из расположения в другой бэкенд
func (s *Store) CopyTo(dst Backend, temporary bool) (int, error) {
	src := s.backend(temporary)
	positions, err := src.List()
	if err != nil {
		return 0, err
	}
	for _, pos := range positions {
		data, err := src.Read(pos)
		if err != nil {
			return 0, err
		}
		if err := dst.Write(pos, data); err != nil {
			return 0, err
		}
	}
	return len(positions), nil
}

// PromoteTemp переносит временные чанки в постоянное расположение
func (s *Store) PromoteTemp() (int, error) {
	positions, err := s.temp.List()
	if err != nil {
		return 0, err
	}
	n, err := s.CopyTo(s.durable, true)
	if s.cache != nil {
		for _, pos := range positions {
			s.cache.Del(cacheKey(pos, false))
		}
	}
	if err != nil {
		return n, fmt.Errorf("ошибка переноса временных чанков: %w", err)
	}
	s.logger.Info("Перенесено %d временных чанков в %s", n, s.durable.Name())
	return n, nil
}

// Close закрывает бэкенды и кеш
func (s *Store) Close() error {
	if s.cache != nil {
		s.cache.Close()
	}
	return errors.Join(s.temp.Close(), s.durable.Close())
}

// Palette полная палитра реестра для экспорта
func Palette(r interface{ Palette() map[block.ID]string }) []PaletteEntry {
	p := r.Palette()
	out := make([]PaletteEntry, 0, len(p))
	for id, ident := range p {
		out = append(out, PaletteEntry{ID: int32(id), Identifier: ident})
	}
	rec := Record{Palette: out}
	rec.SortPalette()
	return rec.Palette
}
