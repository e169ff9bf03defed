package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ricirt/venturematch/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	TasksEnqueued     *prometheus.CounterVec
	TasksSucceeded    *prometheus.CounterVec
	TasksRetried      *prometheus.CounterVec
	TasksDeadLettered *prometheus.CounterVec
	TaskLatency       *prometheus.HistogramVec
	TasksByStatus     *prometheus.GaugeVec
	BufferDepth       *prometheus.GaugeVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasks_enqueued_total",
			Help: "Total number of tasks written to the queue.",
		}, []string{"kind"}),

		TasksSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasks_succeeded_total",
			Help: "Total number of tasks completed, no-op completions included.",
		}, []string{"kind"}),

		TasksRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasks_retried_total",
			Help: "Total number of failed attempts scheduled for retry.",
		}, []string{"kind"}),

		TasksDeadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasks_dead_lettered_total",
			Help: "Total number of tasks moved to the dead-letter state.",
		}, []string{"kind"}),

		TaskLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "task_processing_seconds",
			Help:    "Execution time of one task attempt, from dequeue to outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),

		TasksByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tasks",
			Help: "Number of tasks per status, refreshed by the queue monitor.",
		}, []string{"status"}),

		BufferDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_buffer_depth",
			Help: "Leased tasks waiting in the in-memory dispatch buffer.",
		}, []string{"priority"}),
	}

	reg.MustRegister(
		m.TasksEnqueued,
		m.TasksSucceeded,
		m.TasksRetried,
		m.TasksDeadLettered,
		m.TaskLatency,
		m.TasksByStatus,
		m.BufferDepth,
	)

	return m
}

// OnEnqueued is the queue.ProducerHooks callback.
func (m *Metrics) OnEnqueued(kind domain.TaskKind) {
	m.TasksEnqueued.WithLabelValues(string(kind)).Inc()
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
// Centralises the prometheus observation calls so the worker stays import-free.
func (m *Metrics) WorkerHooks() (
	onSucceeded func(domain.TaskKind, time.Duration),
	onRetried func(domain.TaskKind),
	onDeadLettered func(domain.TaskKind),
) {
	onSucceeded = func(k domain.TaskKind, latency time.Duration) {
		m.TasksSucceeded.WithLabelValues(string(k)).Inc()
		m.TaskLatency.WithLabelValues(string(k)).Observe(latency.Seconds())
	}
	onRetried = func(k domain.TaskKind) {
		m.TasksRetried.WithLabelValues(string(k)).Inc()
	}
	onDeadLettered = func(k domain.TaskKind) {
		m.TasksDeadLettered.WithLabelValues(string(k)).Inc()
	}
	return
}

// ObserveQueue publishes a monitor snapshot. Statuses absent from counts
// are reported as zero so stale values do not linger.
func (m *Metrics) ObserveQueue(counts map[domain.TaskStatus]int, high, normal, low int) {
	for _, s := range []domain.TaskStatus{
		domain.TaskEnqueued, domain.TaskRunning, domain.TaskRetrying,
		domain.TaskSucceeded, domain.TaskDeadLettered,
	} {
		m.TasksByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
	m.BufferDepth.WithLabelValues(string(domain.PriorityHigh)).Set(float64(high))
	m.BufferDepth.WithLabelValues(string(domain.PriorityNormal)).Set(float64(normal))
	m.BufferDepth.WithLabelValues(string(domain.PriorityLow)).Set(float64(low))
}
