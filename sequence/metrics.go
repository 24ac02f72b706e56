package sequence

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the allocator's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	allocations      *prometheus.CounterVec
	numbersAllocated *prometheus.CounterVec
	failures         *prometheus.CounterVec
	heals            *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// NewMetrics registers the allocator collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		allocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "id_allocations_total",
			Help: "Successful identifier allocations by resource kind and mode (single, block)",
		}, []string{"kind", "mode"}),
		numbersAllocated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "id_numbers_allocated_total",
			Help: "Identifier numbers handed out, counting every number of a block",
		}, []string{"kind"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "id_allocation_failures_total",
			Help: "Failed identifier allocations by resource kind and error class",
		}, []string{"kind", "class"}),
		heals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "id_counter_heals_total",
			Help: "Counters raised to the reconciled floor because they were behind the system of record",
		}, []string{"kind"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "id_allocation_duration_seconds",
			Help:    "Identifier allocation latency including resolution and reconciliation",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "mode"}),
	}
}

func (m *Metrics) observeAllocation(kind ResourceKind, mode string, count int64, took time.Duration) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(string(kind), mode).Inc()
	m.numbersAllocated.WithLabelValues(string(kind)).Add(float64(count))
	m.latency.WithLabelValues(string(kind), mode).Observe(took.Seconds())
}

func (m *Metrics) observeFailure(kind ResourceKind, err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(string(kind), errorClass(err)).Inc()
}

func (m *Metrics) observeHeal(kind ResourceKind) {
	if m == nil {
		return
	}
	m.heals.WithLabelValues(string(kind)).Inc()
}
