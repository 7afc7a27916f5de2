package cache

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Config controls cache construction.
type Config struct {
	// Maximum number of entries. Must be at least 1.
	Capacity int
	// Size hint for the key index. Zero means "same as capacity".
	IndexHint int
	// Optional key index. A MapIndex sized by IndexHint is used if nil.
	Index KeyIndex
	// Optional registerer for Prometheus metrics. Metrics are disabled if nil.
	Registerer prometheus.Registerer
	// Name used as the "cache" label on metrics and in log lines.
	Name string
	// Logger to use. Logging is disabled if nil.
	Logger *zerolog.Logger
}

// Entry is a cached payload together with its metadata.
type Entry struct {
	Key         string
	ContentType string
	Content     []byte
	Length      int
}

// node is an arena slot. Links are handles into the same arena.
type node struct {
	key         string
	contentType string
	content     []byte
	prev, next  Handle
}

// LRUCache is a bounded in-memory cache that evicts the least recently used
// entry once more than Capacity entries are stored.
//
// Entries live in an arena addressed by Handle; the recency list runs from
// head (most recently used) to tail (least recently used) through the
// prev/next handles of each slot.
//
// LRUCache is safe for concurrent use.
type LRUCache struct {
	mu sync.Mutex

	index    KeyIndex
	nodes    []node
	free     []Handle
	head     Handle
	tail     Handle
	capacity int
	size     int
	closed   bool

	stats   counters
	metrics *cacheMetrics
	log     zerolog.Logger
}

// New creates an empty cache.
func New(config Config) (*LRUCache, error) {
	if config.Capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, config.Capacity)
	}
	if config.IndexHint < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIndexHint, config.IndexHint)
	}
	if config.Name == "" {
		config.Name = "default"
	}

	index := config.Index
	if index == nil {
		hint := config.IndexHint
		if hint == 0 {
			hint = config.Capacity
		}
		index = NewMapIndex(hint)
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	c := &LRUCache{
		index:    index,
		nodes:    make([]node, 0, min(config.Capacity+1, 1024)),
		head:     noHandle,
		tail:     noHandle,
		capacity: config.Capacity,
		log: logger.With().
			Str("cache", config.Name).
			Int("capacity", config.Capacity).
			Logger(),
	}

	if config.Registerer != nil {
		m, err := newCacheMetrics(config.Registerer, config.Name)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}

	return c, nil
}

// Get returns a copy of the entry stored under key and marks it as the most
// recently used. The boolean is false on a miss.
func (c *LRUCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.recordMiss()
		return Entry{}, false
	}
	h, ok := c.index.Get(key)
	if !ok {
		c.recordMiss()
		return Entry{}, false
	}
	c.moveToFront(h)
	c.recordHit()

	n := &c.nodes[h]
	return Entry{
		Key:         n.key,
		ContentType: n.contentType,
		Content:     cloneBytes(n.content),
		Length:      len(n.content),
	}, true
}

// Put stores the first length bytes of content under key.
// The bytes are copied; the caller may reuse its buffer afterwards.
//
// An existing key is updated in place and becomes the most recently used.
// A new key that pushes the cache over capacity evicts the least recently
// used entry.
func (c *LRUCache) Put(key, contentType string, content []byte, length int) error {
	owned, err := ownedContent("put", key, content, length)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("put %q: %w", key, ErrClosed)
	}

	if h, ok := c.index.Get(key); ok {
		c.update(h, contentType, owned)
		return nil
	}

	h := c.alloc()
	c.nodes[h] = node{
		key:         key,
		contentType: contentType,
		content:     owned,
		prev:        noHandle,
		next:        noHandle,
	}
	c.pushFront(h)
	c.index.Put(key, h)
	c.stats.inserts.Add(1)
	if c.metrics != nil {
		c.metrics.inserts.Inc()
	}
	c.log.Trace().Str("key", key).Int("length", length).Int("size", c.size).Msg("Stored cache entry")

	if c.size > c.capacity {
		c.evict()
	}
	if c.metrics != nil {
		c.metrics.size.Set(float64(c.size))
	}
	return nil
}

// Replace updates key in place if it is cached and reports whether it was.
// Unlike Put it never inserts, so it never evicts.
func (c *LRUCache) Replace(key, contentType string, content []byte, length int) (bool, error) {
	owned, err := ownedContent("replace", key, content, length)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, fmt.Errorf("replace %q: %w", key, ErrClosed)
	}
	h, ok := c.index.Get(key)
	if !ok {
		return false, nil
	}
	c.update(h, contentType, owned)
	return true, nil
}

// Contains reports whether key is cached, without touching its recency.
func (c *LRUCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	_, ok := c.index.Get(key)
	return ok
}

// Keys returns the cached keys from most to least recently used.
func (c *LRUCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.size)
	for h := c.head; h != noHandle; h = c.nodes[h].next {
		keys = append(keys, c.nodes[h].key)
	}
	return keys
}

// Len returns the number of cached entries.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Cap returns the maximum number of entries.
func (c *LRUCache) Cap() int {
	return c.capacity
}

// Stats returns a snapshot of the cache counters.
func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	size := c.size
	c.mu.Unlock()
	return Stats{
		Hits:      c.stats.hits.Load(),
		Misses:    c.stats.misses.Load(),
		Inserts:   c.stats.inserts.Load(),
		Updates:   c.stats.updates.Load(),
		Evictions: c.stats.evictions.Load(),
		Size:      size,
		Capacity:  c.capacity,
	}
}

// Close releases the index and every cached entry.
// Close is safe to call on an empty cache and more than once.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.index.Clear()
	released := 0
	for h := c.head; h != noHandle; {
		next := c.nodes[h].next
		c.nodes[h] = node{}
		h = next
		released++
	}
	c.nodes = nil
	c.free = nil
	c.head, c.tail = noHandle, noHandle
	c.size = 0
	if c.metrics != nil {
		c.metrics.size.Set(0)
	}
	c.log.Debug().Int("released", released).Msg("Cache closed")
	return nil
}

// update swaps the payload of h and promotes it. Callers hold c.mu.
func (c *LRUCache) update(h Handle, contentType string, owned []byte) {
	n := &c.nodes[h]
	n.contentType = contentType
	n.content = owned
	c.moveToFront(h)
	c.stats.updates.Add(1)
	if c.metrics != nil {
		c.metrics.updates.Inc()
	}
	c.log.Trace().Str("key", n.key).Int("length", len(owned)).Msg("Updated cache entry")
}

// evict drops the tail. Callers hold c.mu.
func (c *LRUCache) evict() {
	h := c.tail
	key := c.nodes[h].key
	c.unlink(h)
	c.index.Delete(key)
	c.release(h)
	c.stats.evictions.Add(1)
	if c.metrics != nil {
		c.metrics.evictions.Inc()
	}
	c.log.Trace().Str("key", key).Msg("Evicted least recently used entry")
}

// pushFront links h in as the new head.
func (c *LRUCache) pushFront(h Handle) {
	n := &c.nodes[h]
	n.prev = noHandle
	n.next = c.head
	if c.head != noHandle {
		c.nodes[c.head].prev = h
	} else {
		c.tail = h
	}
	c.head = h
	c.size++
}

// unlink detaches h from the list, patching its neighbours (or head/tail).
func (c *LRUCache) unlink(h Handle) {
	n := &c.nodes[h]
	if n.prev != noHandle {
		c.nodes[n.prev].next = n.next
	} else {
		c.head = n.next
	}
	if n.next != noHandle {
		c.nodes[n.next].prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = noHandle, noHandle
	c.size--
}

func (c *LRUCache) moveToFront(h Handle) {
	if h == c.head {
		return
	}
	c.unlink(h)
	c.pushFront(h)
}

// alloc returns a free arena slot, growing the arena if none is free.
func (c *LRUCache) alloc() Handle {
	if n := len(c.free); n > 0 {
		h := c.free[n-1]
		c.free = c.free[:n-1]
		return h
	}
	c.nodes = append(c.nodes, node{})
	return Handle(len(c.nodes) - 1)
}

func (c *LRUCache) release(h Handle) {
	c.nodes[h] = node{prev: noHandle, next: noHandle}
	c.free = append(c.free, h)
}

func (c *LRUCache) recordHit() {
	c.stats.hits.Add(1)
	if c.metrics != nil {
		c.metrics.hits.Inc()
	}
}

func (c *LRUCache) recordMiss() {
	c.stats.misses.Add(1)
	if c.metrics != nil {
		c.metrics.misses.Inc()
	}
}

// ownedContent validates length against content and returns a private copy
// of the first length bytes.
func ownedContent(op, key string, content []byte, length int) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("%s %q: %w: got %d", op, key, ErrInvalidLength, length)
	}
	if len(content) < length {
		return nil, fmt.Errorf("%s %q: %w: have %d bytes, want %d", op, key, ErrShortContent, len(content), length)
	}
	return cloneBytes(content[:length]), nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
