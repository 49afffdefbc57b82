package invalidation

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts applied evictions by entity and operation.
type Metrics struct {
	evictions *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// NewMetrics creates the invalidation counters and registers them on registerer.
// A nil registerer leaves them unregistered, which is what tests want.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_cache_evictions_total",
			Help: "Cache evictions applied for catalog change events.",
		}, []string{"entity", "operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_cache_eviction_failures_total",
			Help: "Change events whose eviction failed.",
		}, []string{"entity"}),
	}
	if registerer != nil {
		registerer.MustRegister(m.evictions, m.failures)
	}
	return m
}

func (m *Metrics) evicted(entity, operation string) {
	m.evictions.WithLabelValues(entity, operation).Inc()
}

func (m *Metrics) failed(entity string) {
	m.failures.WithLabelValues(entity).Inc()
}
