package staticcache

import (
	"hash/maphash"
	"sync"
)

const generationStripes = 256

// writeGenerations counts writes per key so a cache fill that read content
// before a write can tell it is holding stale bytes. Keys share a fixed set
// of stripes; a write to any key of a stripe invalidates fills for all of
// them, which only costs a cache miss.
type writeGenerations struct {
	seed    maphash.Seed
	stripes [generationStripes]struct {
		mu  sync.Mutex
		gen uint64
	}
}

func newWriteGenerations() *writeGenerations {
	return &writeGenerations{seed: maphash.MakeSeed()}
}

func (g *writeGenerations) stripe(key string) int {
	return int(maphash.String(g.seed, key) % generationStripes)
}

// current returns the generation to compare against after reading key.
func (g *writeGenerations) current(key string) uint64 {
	s := &g.stripes[g.stripe(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// fillIfUnchanged runs fill only if no write to key's stripe happened since
// seen was taken, and reports whether it ran.
func (g *writeGenerations) fillIfUnchanged(key string, seen uint64, fill func()) bool {
	s := &g.stripes[g.stripe(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != seen {
		return false
	}
	fill()
	return true
}

// written records a write to key and runs refresh under the same lock.
func (g *writeGenerations) written(key string, refresh func()) {
	s := &g.stripes[g.stripe(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	refresh()
}
