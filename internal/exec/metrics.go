package exec

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of an engine.
type Metrics struct {
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	RowsTotal         *prometheus.CounterVec
}

// NewMetrics creates the engine collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them process-wide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachequery_executions_total",
				Help: "Total number of query executions",
			},
			[]string{"kind", "status"},
		),
		ExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cachequery_execution_duration_seconds",
				Help:    "Duration of query executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		RowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachequery_rows_total",
				Help: "Total number of rows returned by query executions",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) observe(kind string, rows int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	m.ExecutionsTotal.WithLabelValues(kind, status).Inc()
	m.ExecutionDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err == nil {
		m.RowsTotal.WithLabelValues(kind).Add(float64(rows))
	}
}
