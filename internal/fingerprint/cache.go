package fingerprint

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// DefaultCapacity is the number of results a cache keeps when none is given.
const DefaultCapacity = 256

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

type cacheEntry struct {
	sum    Sum
	handle any
}

// Cache is a bounded LRU of filter results keyed by fingerprint. Concurrent
// fills of the same fingerprint run once; failed fills are not stored.
//
// The cache never releases the handles it holds. Results kept here are
// borrowed by each pass that reuses them.
type Cache struct {
	mu       sync.Mutex
	capacity int
	lru      *list.List
	entries  map[Sum]*list.Element
	flight   singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewCache creates a cache holding at most capacity results.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		lru:      list.New(),
		entries:  make(map[Sum]*list.Element),
	}
}

// Get returns the result stored under sum and marks it recently used.
func (c *Cache) Get(sum Sum) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[sum]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(el)
	return el.Value.(*cacheEntry).handle, true
}

func (c *Cache) store(sum Sum, handle any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[sum]; ok {
		el.Value.(*cacheEntry).handle = handle
		c.lru.MoveToFront(el)
		return
	}
	c.entries[sum] = c.lru.PushFront(&cacheEntry{sum: sum, handle: handle})
	for c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).sum)
		c.evictions.Add(1)
	}
}

// Do returns the result stored under sum, or runs fill once and stores its
// result. hit reports whether fill was skipped for this caller, either
// because the result was resident or because a concurrent caller filled it.
func (c *Cache) Do(ctx context.Context, sum Sum, fill func(ctx context.Context) (any, error)) (handle any, hit bool, err error) {
	if h, ok := c.Get(sum); ok {
		c.hits.Add(1)
		return h, true, nil
	}

	ran := false
	v, err, _ := c.flight.Do(sum.String(), func() (any, error) {
		// Another flight may have stored it between Get and Do.
		if h, ok := c.Get(sum); ok {
			return h, nil
		}
		ran = true
		h, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		c.store(sum, h)
		return h, nil
	})
	if ran {
		c.misses.Add(1)
	} else if err == nil {
		c.hits.Add(1)
	}
	return v, !ran && err == nil, err
}

// Reset drops every stored result.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Init()
	c.entries = make(map[Sum]*list.Element)
}

// Len returns the number of stored results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.Len(),
	}
}
