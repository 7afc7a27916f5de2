package cache

import "sync/atomic"

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Inserts   int64
	Updates   int64
	Evictions int64
	Size      int
	Capacity  int
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// counters are always kept, whether or not Prometheus metrics are enabled.
type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	inserts   atomic.Int64
	updates   atomic.Int64
	evictions atomic.Int64
}
