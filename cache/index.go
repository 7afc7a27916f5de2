package cache

// Handle addresses an entry slot in the cache's entry arena.
// Handles are stable for as long as the entry they refer to is cached.
type Handle int32

// noHandle marks the absence of a link (the end of the recency list).
const noHandle Handle = -1

// KeyIndex maps cache keys to entry handles.
// It is purely a lookup accelerator: it never owns the entries themselves
// and makes no ordering guarantee.
//
// Implementations need not be thread-safe; the cache serializes access.
type KeyIndex interface {
	// Put associates key with h, replacing any prior association for key.
	Put(key string, h Handle)
	// Get returns the handle stored for key and whether one was found.
	Get(key string) (Handle, bool)
	// Delete removes the association for key. Deleting an absent key is a no-op.
	Delete(key string)
	// Len returns the number of associations.
	Len() int
	// Clear drops every association.
	Clear()
}

// MapIndex is the default KeyIndex, backed by a Go map.
type MapIndex struct {
	hint int
	m    map[string]Handle
}

// NewMapIndex creates an empty index sized for capacityHint keys.
func NewMapIndex(capacityHint int) *MapIndex {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &MapIndex{
		hint: capacityHint,
		m:    make(map[string]Handle, capacityHint),
	}
}

func (i *MapIndex) Put(key string, h Handle) {
	i.m[key] = h
}

func (i *MapIndex) Get(key string) (Handle, bool) {
	h, ok := i.m[key]
	return h, ok
}

func (i *MapIndex) Delete(key string) {
	delete(i.m, key)
}

func (i *MapIndex) Len() int {
	return len(i.m)
}

// Clear releases the backing map and starts over with a fresh one.
func (i *MapIndex) Clear() {
	i.m = make(map[string]Handle, i.hint)
}
