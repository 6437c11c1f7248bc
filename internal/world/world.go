package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/meshing"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// ErrClosed мир уже закрыт
var ErrClosed = errors.New("world is closed")

// loaderChangesBuffer сколько изменений точек обзора ждут тика без блокировки
const loaderChangesBuffer = 64

// Generator заполняет буфер длиной chunk.Volume блоками чанка с углом pos.
// Буфер принадлежит задаче до её завершения.
type Generator interface {
	GenerateChunk(buf []block.ID, pos vec.Vec3) *jobs.Handle
}

// Deps внешние зависимости мира
type Deps struct {
	Registry  *block.Registry
	Store     *storage.Store // nil отключает сохранение
	Pool      *jobs.Pool     // nil выполняет задачи в горутине тика
	Generator Generator      // nil оставляет незагруженные чанки пустыми
	Textures  meshing.TextureMap
	Sink      Sink
	Metrics   *Metrics
	Logger    *logging.Logger
}

// World координатор жизненного цикла чанков. Все методы, кроме Do, Run,
// RegisterLoader и UnregisterLoader, должны вызываться из одной горутины:
// той, что выполняет Tick (обычно Run).
type World struct {
	id  uuid.UUID
	cfg Config

	registry  *block.Registry
	store     *storage.Store
	pool      *jobs.Pool
	generator Generator
	textures  meshing.TextureMap
	sink      Sink
	metrics   *Metrics
	logger    *logging.Logger

	chunks   map[vec.Vec3]*Chunk
	removals []*Chunk

	generateQueue *chunkQueue
	renderQueue   *chunkQueue
	colliderQueue *chunkQueue

	generateJobs *jobTable
	renderJobs   *jobTable
	colliderJobs *jobTable

	renderers *slotPool
	colliders *slotPool

	loaders       *loaderSet
	loaderChanges chan func()
	lastDesired   time.Time
	desiredOnce   bool
	frame         uint64

	calls  chan call
	closed *atomic.Bool
	done   chan struct{}
}

type call struct {
	fn   func(*World)
	done chan struct{}
}

// New создаёт мир. Registry обязателен и должен быть инициализирован.
func New(cfg Config, deps Deps) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("неверная конфигурация мира: %w", err)
	}
	if deps.Registry == nil || !deps.Registry.IsInitialized() {
		return nil, errors.New("world requires an initialized block registry")
	}
	if deps.Sink == nil {
		deps.Sink = NopSink{}
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}

	w := &World{
		id:            uuid.New(),
		cfg:           cfg,
		registry:      deps.Registry,
		store:         deps.Store,
		pool:          deps.Pool,
		generator:     deps.Generator,
		textures:      deps.Textures,
		sink:          deps.Sink,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		chunks:        make(map[vec.Vec3]*Chunk),
		generateQueue: newChunkQueue(),
		renderQueue:   newChunkQueue(),
		colliderQueue: newChunkQueue(),
		generateJobs:  newJobTable(kindGenerate),
		renderJobs:    newJobTable(kindRender),
		colliderJobs:  newJobTable(kindCollider),
		renderers:     newSlotPool(),
		colliders:     newSlotPool(),
		loaders:       newLoaderSet(),
		loaderChanges: make(chan func(), loaderChangesBuffer),
		calls:         make(chan call),
		closed:        atomic.NewBool(false),
		done:          make(chan struct{}),
	}

	w.logger.Info("Мир %s создан (max_y=%d, генератор: %T)", w.id, cfg.MaxY, deps.Generator)
	return w, nil
}

// ID идентификатор сессии мира
func (w *World) ID() uuid.UUID {
	return w.id
}

// Config текущие настройки
func (w *World) Config() Config {
	return w.cfg
}

// RegisterLoader добавляет точку обзора. Безопасен для вызова из любой горутины:
// регистрация применяется в начале следующего тика.
func (w *World) RegisterLoader(l Loader) uuid.UUID {
	id := uuid.New()
	w.enqueueLoaderChange(func() {
		if w.loaders.add(id, l) {
			w.desiredOnce = false
		}
	})
	return id
}

// UnregisterLoader удаляет точку обзора по идентификатору
func (w *World) UnregisterLoader(id uuid.UUID) {
	w.enqueueLoaderChange(func() {
		if w.loaders.remove(id) {
			w.desiredOnce = false
		}
	})
}

// RemoveLoader удаляет точку обзора по значению
func (w *World) RemoveLoader(l Loader) {
	w.enqueueLoaderChange(func() {
		if w.loaders.removeLoader(l) {
			w.desiredOnce = false
		}
	})
}

func (w *World) enqueueLoaderChange(fn func()) {
	select {
	case w.loaderChanges <- fn:
	default:
		// очередь полна: дожидаемся места, пока мир не закрыт
		go func() {
			select {
			case w.loaderChanges <- fn:
			case <-w.done:
			}
		}()
	}
}

func (w *World) applyLoaderChanges() {
	for {
		select {
		case fn := <-w.loaderChanges:
			fn()
		default:
			return
		}
	}
}

// LoaderCount количество зарегистрированных точек обзора
func (w *World) LoaderCount() int {
	return w.loaders.len()
}

// Run крутит тики с интервалом cfg.TickInterval и выполняет вызовы Do
// до отмены ctx. Закрытие мира остаётся за вызывающим.
func (w *World) Run(ctx context.Context) {
	interval := w.cfg.TickInterval
	if interval <= 0 {
		interval = time.Second / 60
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("Цикл мира запущен (интервал %v)", interval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Цикл мира остановлен")
			return
		case <-w.done:
			return
		case now := <-ticker.C:
			w.Tick(now)
		case c := <-w.calls:
			c.fn(w)
			close(c.done)
		}
	}
}

// Do выполняет fn в горутине тика и ждёт завершения. Требует запущенного Run.
func (w *World) Do(ctx context.Context, fn func(*World)) error {
	if w.closed.Load() {
		return ErrClosed
	}
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case w.calls <- c:
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick один шаг координатора
func (w *World) Tick(now time.Time) {
	if w.closed.Load() {
		return
	}
	start := time.Now()
	w.frame++

	w.applyLoaderChanges()
	if !w.desiredOnce || now.Sub(w.lastDesired) >= w.cfg.ChunkGenerateDelay {
		w.updateChunks()
		w.lastDesired = now
		w.desiredOnce = true
	}

	w.processChunks()

	w.processGenerateJobs()
	w.processRenderJobs()
	w.processColliderJobs()

	w.processRemovals()

	w.drainGenerateQueue()
	w.drainRenderQueue()
	w.drainColliderQueue()

	w.updateMetrics()
	w.metrics.tickDuration.Observe(time.Since(start).Seconds())
}

func (w *World) updateMetrics() {
	w.metrics.chunks.Set(float64(len(w.chunks)))
	w.metrics.queueLength.WithLabelValues(kindGenerate).Set(float64(w.generateQueue.Len()))
	w.metrics.queueLength.WithLabelValues(kindRender).Set(float64(w.renderQueue.Len()))
	w.metrics.queueLength.WithLabelValues(kindCollider).Set(float64(w.colliderQueue.Len()))
	w.metrics.inflight.WithLabelValues(kindGenerate).Set(float64(w.generateJobs.len()))
	w.metrics.inflight.WithLabelValues(kindRender).Set(float64(w.renderJobs.len()))
	w.metrics.inflight.WithLabelValues(kindCollider).Set(float64(w.colliderJobs.len()))
}

// Close завершает задачи, сохраняет изменённые чанки во временное хранилище,
// при SaveOnClose переносит их в постоянное и при ClearTempOnClose очищает
// временные. Вызывается из горутины тика или после возврата из Run.
func (w *World) Close() error {
	if !w.closed.CAS(false, true) {
		return nil
	}
	close(w.done)

	w.completeAllJobs()
	var errs []error
	if err := w.DumpToTemp(); err != nil {
		errs = append(errs, err)
	}
	if w.store != nil {
		if w.cfg.SaveOnClose {
			if _, err := w.store.PromoteTemp(); err != nil {
				errs = append(errs, err)
			}
		}
		if w.cfg.ClearTempOnClose {
			if err := w.store.ClearTemp(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	w.releaseAll()
	w.logger.Info("Мир %s закрыт (кадров: %d)", w.id, w.frame)
	return errors.Join(errs...)
}

// Closed закрыт ли мир
func (w *World) Closed() bool {
	return w.closed.Load()
}

// Stats снимок состояния конвейера
type Stats struct {
	ID              string `json:"id"`
	Frame           uint64 `json:"frame"`
	Chunks          int    `json:"chunks"`
	Loaders         int    `json:"loaders"`
	PendingRemovals int    `json:"pending_removals"`
	GenerateQueue   int    `json:"generate_queue"`
	RenderQueue     int    `json:"render_queue"`
	ColliderQueue   int    `json:"collider_queue"`
	GenerateJobs    int    `json:"generate_jobs"`
	RenderJobs      int    `json:"render_jobs"`
	ColliderJobs    int    `json:"collider_jobs"`
	Renderers       int    `json:"renderers"`
	Colliders       int    `json:"colliders"`
	PooledRenderers int    `json:"pooled_renderers"`
	PooledColliders int    `json:"pooled_colliders"`
}

func (w *World) Stats() Stats {
	return Stats{
		ID:              w.id.String(),
		Frame:           w.frame,
		Chunks:          len(w.chunks),
		Loaders:         w.loaders.len(),
		PendingRemovals: len(w.removals),
		GenerateQueue:   w.generateQueue.Len(),
		RenderQueue:     w.renderQueue.Len(),
		ColliderQueue:   w.colliderQueue.Len(),
		GenerateJobs:    w.generateJobs.len(),
		RenderJobs:      w.renderJobs.len(),
		ColliderJobs:    w.colliderJobs.len(),
		Renderers:       w.renderers.active(),
		Colliders:       w.colliders.active(),
		PooledRenderers: w.renderers.allocated() - w.renderers.active(),
		PooledColliders: w.colliders.allocated() - w.colliders.active(),
	}
}

// Chunks состояние всех чанков в порядке координат
func (w *World) Chunks() []ChunkInfo {
	out := make([]ChunkInfo, 0, len(w.chunks))
	for _, c := range w.chunks {
		out = append(out, c.info())
	}
	sortChunkInfos(out)
	return out
}

// Chunk состояние одного чанка по мировой позиции угла
func (w *World) Chunk(pos vec.Vec3) (ChunkInfo, bool) {
	c, ok := w.chunks[pos]
	if !ok {
		return ChunkInfo{}, false
	}
	return c.info(), true
}
