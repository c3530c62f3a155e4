package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "bridge_batch"

// Metrics tracks batch-run progress, exposed via the harness metrics server.
type Metrics struct {
	running   prometheus.Gauge
	completed prometheus.Counter
	failed    prometheus.Counter
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "tasks_running",
			Help:      "Number of task processes currently running",
		}),
		completed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tasks_completed_total",
			Help:      "Number of tasks that finished, regardless of outcome",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tasks_failed_total",
			Help:      "Number of tasks that finished with a failure",
		}),
	}
}

func (m *Metrics) taskStarted() {
	if m == nil {
		return
	}
	m.running.Inc()
}

func (m *Metrics) taskFinished(passed bool) {
	if m == nil {
		return
	}
	m.running.Dec()
	m.completed.Inc()
	if !passed {
		m.failed.Inc()
	}
}
