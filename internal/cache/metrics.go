package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the cache-level prometheus counters.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	writes    prometheus.Counter
	evictions prometheus.Counter
}

// NewMetrics creates and registers the cache counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "varcache_hits_total",
			Help: "Total number of cache reads served from a valid entry.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "varcache_misses_total",
			Help: "Total number of cache reads that found no valid entry.",
		}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "varcache_writes_total",
			Help: "Total number of variant writes that landed in the store.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "varcache_evictions_total",
			Help: "Total number of objects deleted by evictions, sweeps, and purges.",
		}),
	}
	for _, c := range []prometheus.Counter{m.hits, m.misses, m.writes, m.evictions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// The accessors tolerate a nil receiver so instrumentation stays optional.

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) write() {
	if m != nil {
		m.writes.Inc()
	}
}

func (m *Metrics) evicted(n int) {
	if m != nil && n > 0 {
		m.evictions.Add(float64(n))
	}
}
