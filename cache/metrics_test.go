package cache

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(Config{Capacity: 2, Registerer: reg, Name: "files"})
	require.NoError(t, err)
	defer c.Close()

	put(t, c, "a")
	put(t, c, "b")
	put(t, c, "c")
	put(t, c, "c")
	c.Get("c")
	c.Get("a")

	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.hits))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.misses))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.metrics.inserts))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.updates))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.evictions))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.metrics.size))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "static_cache_lru_hits_total")
	assert.Contains(t, names, "static_cache_lru_entries")
}

func TestCacheMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(Config{Capacity: 1, Registerer: reg, Name: "files"})
	require.NoError(t, err)
	defer c.Close()

	_, err = New(Config{Capacity: 1, Registerer: reg, Name: "files"})
	assert.Error(t, err)
}

func TestCacheMetricsFailedRegistrationIsRolledBack(t *testing.T) {
	reg := prometheus.NewRegistry()
	clash := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "static_cache",
		Subsystem:   "lru",
		Name:        "evictions_total",
		Help:        "Total number of least-recently-used evictions",
		ConstLabels: prometheus.Labels{"cache": "files"},
	})
	require.NoError(t, reg.Register(clash))

	_, err := New(Config{Capacity: 1, Registerer: reg, Name: "files"})
	require.Error(t, err)

	// the collectors registered before the clash must be gone again
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		assert.Equal(t, "static_cache_lru_evictions_total", mf.GetName())
	}

	require.True(t, reg.Unregister(clash))
	c, err := New(Config{Capacity: 1, Registerer: reg, Name: "files"})
	require.NoError(t, err)
	defer c.Close()
}
