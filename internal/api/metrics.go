package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/annel0/voxel-world/internal/world"
)

// StageLoad нагрузка одной стадии конвейера чанков
type StageLoad struct {
	Queued  int `json:"queued"`
	Running int `json:"running"`
	// Limit сколько задач стадии запускается за тик
	Limit int `json:"limit"`
	// Backlog во сколько тиков разберётся очередь при текущем лимите
	Backlog float64 `json:"backlog_ticks"`
}

func stageLoad(queued, running, limit int) StageLoad {
	s := StageLoad{Queued: queued, Running: running, Limit: limit}
	if limit > 0 {
		s.Backlog = float64(queued) / float64(limit)
	}
	return s
}

// SlotUsage занятые и свободные слоты рендереров или коллайдеров
type SlotUsage struct {
	Active int `json:"active"`
	Pooled int `json:"pooled"`
	// Idle доля выделенных слотов, лежащих в пуле
	Idle float64 `json:"idle"`
}

func slotUsage(active, pooled int) SlotUsage {
	u := SlotUsage{Active: active, Pooled: pooled}
	if total := active + pooled; total > 0 {
		u.Idle = float64(pooled) / float64(total)
	}
	return u
}

// PipelineLoad сводка по очередям, задачам и слотам мира
type PipelineLoad struct {
	Generate      StageLoad `json:"generate"`
	Render        StageLoad `json:"render"`
	Collider      StageLoad `json:"collider"`
	RendererSlots SlotUsage `json:"renderer_slots"`
	ColliderSlots SlotUsage `json:"collider_slots"`
	// Streaming чанки, ещё не дошедшие до коллайдера или ожидающие удаления
	Streaming bool `json:"streaming"`
}

func pipelineLoad(s world.Stats, cfg world.Config) PipelineLoad {
	p := PipelineLoad{
		Generate:      stageLoad(s.GenerateQueue, s.GenerateJobs, cfg.MaxGenerateJobs),
		Render:        stageLoad(s.RenderQueue, s.RenderJobs, cfg.MaxRenderJobs),
		Collider:      stageLoad(s.ColliderQueue, s.ColliderJobs, cfg.MaxColliderJobs),
		RendererSlots: slotUsage(s.Renderers, s.PooledRenderers),
		ColliderSlots: slotUsage(s.Colliders, s.PooledColliders),
	}
	for _, st := range []StageLoad{p.Generate, p.Render, p.Collider} {
		if st.Queued+st.Running > 0 {
			p.Streaming = true
		}
	}
	if s.PendingRemovals > 0 {
		p.Streaming = true
	}
	return p
}

// ProcessStats состояние процесса сервера
type ProcessStats struct {
	Uptime     string  `json:"uptime"`
	RSSMB      float64 `json:"rss_mb"`
	HeapMB     float64 `json:"heap_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	Threads    int32   `json:"threads"`
	Goroutines int     `json:"goroutines"`
	NumGC      uint32  `json:"num_gc"`
}

// processSampler снимает ProcessStats; без доступа к /proc отдаёт только данные рантайма
type processSampler struct {
	start time.Time
	proc  *process.Process
}

func newProcessSampler() *processSampler {
	ps := &processSampler{start: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		ps.proc = proc
	}
	return ps
}

func (ps *processSampler) uptime() string {
	return formatUptime(time.Since(ps.start))
}

func (ps *processSampler) sample() ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	st := ProcessStats{
		Uptime:     ps.uptime(),
		HeapMB:     float64(m.HeapAlloc) / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
		NumGC:      m.NumGC,
	}
	if ps.proc == nil {
		return st
	}
	if mem, err := ps.proc.MemoryInfo(); err == nil {
		st.RSSMB = float64(mem.RSS) / 1024 / 1024
	}
	if cpu, err := ps.proc.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if n, err := ps.proc.NumThreads(); err == nil {
		st.Threads = n
	}
	return st
}

func formatUptime(d time.Duration) string {
	total := int(d.Seconds())
	days, hours := total/86400, total/3600%24
	minutes, seconds := total/60%60, total%60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// StatsResponse ответ /api/stats
type StatsResponse struct {
	World      world.Stats  `json:"world"`
	Pipeline   PipelineLoad `json:"pipeline"`
	Process    ProcessStats `json:"process"`
	ServerTime int64        `json:"server_time"`
}
