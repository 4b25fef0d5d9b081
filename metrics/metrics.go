// Package metrics provides the Prometheus exporters for the task runtime:
// task lifecycle counters/gauges, plus the standard Go/process collectors.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentweave/a2a/protocol"
)

const namespace = "a2a"

// metricsReadHeaderTimeout bounds how long the /metrics listener waits for a
// scraper's request headers.
const metricsReadHeaderTimeout = 10 * time.Second

var (
	tasksCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
			Help:      "Total number of tasks created, by skill",
		},
		[]string{"skill"},
	)

	tasksSettledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_settled_total",
			Help:      "Total number of tasks that reached a terminal state, by skill and status",
		},
		[]string{"skill", "status"},
	)

	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration from task creation to settlement in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"skill", "status"},
	)

	tasksActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_active",
			Help:      "Number of tasks currently running",
		},
	)

	allMetrics = []prometheus.Collector{
		tasksCreatedTotal,
		tasksSettledTotal,
		taskDuration,
		tasksActive,
	}
)

// Recorder implements task.Metrics, reporting task lifecycle events to
// Prometheus. It holds no state of its own, so its zero value is usable;
// NewRecorder returns one.
type Recorder struct{}

// NewRecorder returns a Recorder that reports through the package-level
// metrics registered by NewExporter.
func NewRecorder() *Recorder { return &Recorder{} }

// TaskCreated records a task creation for skillID.
func (r *Recorder) TaskCreated(skillID string) {
	tasksCreatedTotal.WithLabelValues(skillID).Inc()
	tasksActive.Inc()
}

// TaskSettled records a task reaching a terminal status after elapsed.
func (r *Recorder) TaskSettled(skillID string, status protocol.TaskStatus, elapsed time.Duration) {
	tasksActive.Dec()
	tasksSettledTotal.WithLabelValues(skillID, string(status)).Inc()
	taskDuration.WithLabelValues(skillID, string(status)).Observe(elapsed.Seconds())
}

// Exporter serves the registered metrics over HTTP. Unlike a general-purpose
// HTTP server wrapper, it has exactly one route to offer, so its
// http.Server is built once at construction time rather than assembled
// lazily behind a mux on first Start.
type Exporter struct {
	registry *prometheus.Registry
	server   *http.Server
}

// NewExporter creates an Exporter serving at addr, with all package metrics
// plus the standard Go/process collectors registered.
func NewExporter(addr string) *Exporter {
	reg := prometheus.NewRegistry()
	for _, c := range allMetrics {
		reg.MustRegister(c)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e := &Exporter{registry: reg}
	e.server = &http.Server{
		Addr:              addr,
		Handler:           e.Handler(),
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}
	return e
}

// Handler returns an http.Handler serving the /metrics endpoint, for
// embedding into an existing mux instead of calling Start.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Start serves metrics at /metrics until the server is stopped. Blocks;
// returns http.ErrServerClosed on graceful shutdown.
func (e *Exporter) Start() error {
	return e.server.ListenAndServe()
}

// Shutdown gracefully stops the exporter. Safe to call even if Start was
// never invoked.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
