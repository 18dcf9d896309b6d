package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EncryptionMetrics tracks encryption requests and persisted artifacts.
// A nil *EncryptionMetrics records nothing.
type EncryptionMetrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	VectorLength      prometheus.Histogram
	ContextsCreated   prometheus.Counter
	ArtifactsStored   *prometheus.CounterVec
}

// NewEncryptionMetrics creates and registers encryption metrics on the given registry.
func NewEncryptionMetrics(reg prometheus.Registerer) *EncryptionMetrics {
	m := &EncryptionMetrics{
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "encryption",
			Name:      "operations_total",
			Help:      "Total number of encryption operations, by outcome.",
		}, []string{"outcome"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "encryption",
			Name:      "duration_seconds",
			Help:      "Time spent encoding, encrypting and serializing one vector.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"outcome"}),
		VectorLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "encryption",
			Name:      "vector_length",
			Help:      "Number of values per encryption request.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		}),
		ContextsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "encryption",
			Name:      "contexts_created_total",
			Help:      "Total number of key sets generated.",
		}),
		ArtifactsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "stored_total",
			Help:      "Total number of persist calls, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.OperationsTotal, m.OperationDuration, m.VectorLength, m.ContextsCreated, m.ArtifactsStored)
	return m
}

func (m *EncryptionMetrics) ObserveEncrypt(outcome string, length int, d time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(outcome).Inc()
	m.OperationDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if length > 0 {
		m.VectorLength.Observe(float64(length))
	}
}

func (m *EncryptionMetrics) ObserveContextCreated() {
	if m == nil {
		return
	}
	m.ContextsCreated.Inc()
}

func (m *EncryptionMetrics) ObservePersist(outcome string) {
	if m == nil {
		return
	}
	m.ArtifactsStored.WithLabelValues(outcome).Inc()
}
