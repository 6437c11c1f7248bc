package jobs

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/annel0/voxel-world/internal/logging"
)

// Pool управляет горутинами для фоновых задач генерации и построения мешей
type Pool struct {
	jobQueue chan *Handle
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *logging.Logger

	submitted *atomic.Int64
	executed  *atomic.Int64
	deferred  *atomic.Int64
	closed    *atomic.Bool
}

// Stats счётчики пула
type Stats struct {
	Workers     int   `json:"workers"`
	QueueLength int   `json:"queue_length"`
	Submitted   int64 `json:"submitted"`
	Executed    int64 `json:"executed"`
	Deferred    int64 `json:"deferred"`
}

// NewPool создаёт пул и запускает воркеры
func NewPool(workers, queueSize int, logger *logging.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		jobQueue:  make(chan *Handle, queueSize),
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		submitted: atomic.NewInt64(0),
		executed:  atomic.NewInt64(0),
		deferred:  atomic.NewInt64(0),
		closed:    atomic.NewBool(false),
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	logger.Debug("Пул задач запущен: воркеров %d, очередь %d", workers, queueSize)
	return pool
}

// Submit ставит задачу в очередь и никогда не блокирует. Если очередь
// переполнена или пул остановлен, задача остаётся в ожидании и будет
// выполнена при вызове Complete.
func (p *Pool) Submit(fn func()) *Handle {
	h := newHandle(fn)
	if p == nil || p.closed.Load() {
		return h
	}
	p.submitted.Inc()

	select {
	case p.jobQueue <- h:
	default:
		p.deferred.Inc()
	}
	return h
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case h := <-p.jobQueue:
			if h.run() {
				p.executed.Inc()
			}
		case <-p.ctx.Done():
			p.logger.Trace("Воркер %d остановлен", id)
			return
		}
	}
}

// Shutdown останавливает воркеры. Задачи, оставшиеся в очереди, выполняются
// в вызывающей горутине, чтобы ни один дескриптор не завис.
func (p *Pool) Shutdown() {
	if p == nil || !p.closed.CAS(false, true) {
		return
	}
	p.cancel()
	p.wg.Wait()

	for {
		select {
		case h := <-p.jobQueue:
			h.run()
		default:
			p.logger.Debug("Пул задач остановлен")
			return
		}
	}
}

// QueueLength количество задач в очереди
func (p *Pool) QueueLength() int {
	if p == nil {
		return 0
	}
	return len(p.jobQueue)
}

// Stats снимок счётчиков
func (p *Pool) Stats() Stats {
	if p == nil {
		return Stats{}
	}
	return Stats{
		Workers:     p.workers,
		QueueLength: len(p.jobQueue),
		Submitted:   p.submitted.Load(),
		Executed:    p.executed.Load(),
		Deferred:    p.deferred.Load(),
	}
}
