package world

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Виды задач конвейера, используются как метки метрик
const (
	kindGenerate = "generate"
	kindRender   = "render"
	kindCollider = "collider"
)

// Metrics Prometheus-метрики координатора чанков.
//
// Метрики:
// * voxel_world_chunks: gauge
// * voxel_world_queue_length{kind}: gauge
// * voxel_world_jobs_inflight{kind}: gauge
// * voxel_world_jobs_completed_total{kind}: counter
// * voxel_world_jobs_forced_total{kind}: counter (завершены по лимиту тиков)
// * voxel_world_chunks_saved_total, voxel_world_chunks_loaded_total, voxel_world_ghost_chunks_total: counter
// * voxel_world_tick_duration_seconds: histogram
type Metrics struct {
	chunks       prometheus.Gauge
	queueLength  *prometheus.GaugeVec
	inflight     *prometheus.GaugeVec
	completed    *prometheus.CounterVec
	forced       *prometheus.CounterVec
	saved        prometheus.Counter
	loaded       prometheus.Counter
	ghosts       prometheus.Counter
	tickDuration prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в reg. При reg == nil метрики
// работают без регистрации.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "chunks",
			Help:      "Количество чанков в памяти.",
		}),
		queueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "queue_length",
			Help:      "Длина очередей конвейера.",
		}, []string{"kind"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "jobs_inflight",
			Help:      "Задачи, запущенные и ещё не применённые.",
		}, []string{"kind"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "jobs_completed_total",
			Help:      "Применённые задачи конвейера.",
		}, []string{"kind"}),
		forced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "jobs_forced_total",
			Help:      "Задачи, завершённые принудительно в горутине тика.",
		}, []string{"kind"}),
		saved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "chunks_saved_total",
			Help:      "Сохранённые чанки.",
		}),
		loaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "chunks_loaded_total",
			Help:      "Чанки, загруженные из хранилища.",
		}),
		ghosts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "ghost_chunks_total",
			Help:      "Временные чанки, созданные для правок вне загруженной области.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "tick_duration_seconds",
			Help:      "Длительность тика.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1, 0.25},
		}),
	}

	if reg != nil {
		reg.MustRegister(m.chunks, m.queueLength, m.inflight, m.completed, m.forced,
			m.saved, m.loaded, m.ghosts, m.tickDuration)
	}
	return m
}
