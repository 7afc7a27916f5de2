package cache

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// cacheMetrics mirrors the cache counters as Prometheus collectors.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	inserts   prometheus.Counter
	updates   prometheus.Counter
	evictions prometheus.Counter
	size      prometheus.Gauge
}

func newCacheMetrics(reg prometheus.Registerer, name string) (*cacheMetrics, error) {
	labels := prometheus.Labels{"cache": name}
	counter := func(metric, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "static_cache",
			Subsystem:   "lru",
			Name:        metric,
			Help:        help,
			ConstLabels: labels,
		})
	}
	m := &cacheMetrics{
		hits:      counter("hits_total", "Total number of cache hits"),
		misses:    counter("misses_total", "Total number of cache misses"),
		inserts:   counter("inserts_total", "Total number of new entries stored"),
		updates:   counter("updates_total", "Total number of entries replaced in place"),
		evictions: counter("evictions_total", "Total number of least-recently-used evictions"),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "static_cache",
			Subsystem:   "lru",
			Name:        "entries",
			Help:        "Current number of entries in the cache",
			ConstLabels: labels,
		}),
	}
	registered := make([]prometheus.Collector, 0, 6)
	for _, c := range []prometheus.Collector{m.hits, m.misses, m.inserts, m.updates, m.evictions, m.size} {
		if err := reg.Register(c); err != nil {
			// leave the registry as we found it so the name can be reused
			for _, r := range registered {
				reg.Unregister(r)
			}
			return nil, fmt.Errorf("register cache metrics: %w", err)
		}
		registered = append(registered, c)
	}
	return m, nil
}
