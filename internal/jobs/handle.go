package jobs

import (
	"go.uber.org/atomic"
)

// State состояние задачи
type State int32

const (
	StatePending State = iota // ждёт воркера
	StateRunning              // выполняется
	StateDone                 // завершена
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Handle дескриптор фоновой задачи. Задача выполняется ровно один раз:
// воркером пула либо синхронно в Complete, если воркер её ещё не забрал.
type Handle struct {
	fn    func()
	state *atomic.Int32
	polls *atomic.Int32
	done  chan struct{}
}

func newHandle(fn func()) *Handle {
	return &Handle{
		fn:    fn,
		state: atomic.NewInt32(int32(StatePending)),
		polls: atomic.NewInt32(0),
		done:  make(chan struct{}),
	}
}

// Completed возвращает уже выполненную задачу. fn вызывается сразу в текущей горутине.
func Completed(fn func()) *Handle {
	h := newHandle(fn)
	h.run()
	return h
}

// run забирает и выполняет задачу; false если её уже забрал кто-то другой
func (h *Handle) run() bool {
	if !h.state.CAS(int32(StatePending), int32(StateRunning)) {
		return false
	}
	if h.fn != nil {
		h.fn()
	}
	h.fn = nil
	h.state.Store(int32(StateDone))
	close(h.done)
	return true
}

// State текущее состояние задачи
func (h *Handle) State() State {
	return State(h.state.Load())
}

// IsCompleted не блокирует
func (h *Handle) IsCompleted() bool {
	return h.State() == StateDone
}

// Poll проверяет завершение и считает количество проверок
func (h *Handle) Poll() bool {
	h.polls.Inc()
	return h.IsCompleted()
}

// Polls сколько раз задачу проверяли через Poll
func (h *Handle) Polls() int {
	return int(h.polls.Load())
}

// Complete блокирует до завершения задачи. Если воркер задачу ещё не забрал,
// она выполняется в вызывающей горутине. Возвращает true, если задача была выполнена здесь.
func (h *Handle) Complete() bool {
	if h.run() {
		return true
	}
	<-h.done
	return false
}

// Done канал, закрывающийся после завершения задачи
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
