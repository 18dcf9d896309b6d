package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics tracks artifact store commands and circuit breaker state.
type StoreMetrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	BreakerState      prometheus.Gauge
}

// NewStoreMetrics creates and registers artifact store metrics on the given registry.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total artifact store operations by operation and status.",
		}, []string{"operation", "status"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Artifact store operation duration in seconds.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .5, 1},
		}, []string{"operation"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
	}

	reg.MustRegister(m.OperationsTotal, m.OperationDuration, m.BreakerState)
	return m
}

// Observe records one operation. A nil *StoreMetrics records nothing.
func (m *StoreMetrics) Observe(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}
