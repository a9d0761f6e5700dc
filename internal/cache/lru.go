package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/resource"
)

// LRU implements a byte-budgeted least-recently-used BitmapCache.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List
	rc        *resource.Controller
	onEvict   func(key string, bytes int64)

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	rejected  atomic.Int64
}

type entry struct {
	key  string
	b    *wah.Bitmap
	cost int64
}

// NewLRU creates a cache holding at most capacity bytes.
// If rc is provided, cached bytes are reserved against its memory budget.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// OnEvict registers fn to be called for every capacity eviction.
// fn runs with the cache locked and must not call back into the cache.
func (c *LRU) OnEvict(fn func(key string, bytes int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onEvict = fn
}

// Get returns the cached bitmap for key.
func (c *LRU) Get(key string) (*wah.Bitmap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)

		return ent.Value.(*entry).b, true
	}

	c.misses.Add(1)

	return nil, false
}

// Add caches b under key, replacing any previous entry.
// Bitmaps larger than the capacity, or refused by the memory budget, are not
// cached.
func (c *LRU) Add(key string, b *wah.Bitmap) bool {
	cost := b.SizeBytes()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}

	if cost > c.capacity {
		c.rejected.Add(1)
		return false
	}

	// Evict locally first so released bytes are back in the budget.
	for c.size+cost > c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			break
		}

		kv := ent.Value.(*entry)
		c.removeElement(ent)
		c.evictions.Add(1)

		if c.onEvict != nil {
			c.onEvict(kv.key, kv.cost)
		}
	}

	if err := c.rc.ReserveMemory(cost); err != nil {
		c.rejected.Add(1)
		return false
	}

	c.items[key] = c.evictList.PushFront(&entry{key: key, b: b, cost: cost})
	c.size += cost

	return true
}

// Remove drops key if cached.
func (c *LRU) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}
}

// Purge drops every entry and releases its memory reservation.
func (c *LRU) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
}

// Len returns the number of cached bitmaps.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Size returns the current size of the cache in bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.size
}

// Stats returns a snapshot of the cache counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	entries, size := len(c.items), c.size
	c.mu.Unlock()

	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Rejected:  c.rejected.Load(),
		Entries:   entries,
		Bytes:     size,
	}
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)

	kv := e.Value.(*entry)
	delete(c.items, kv.key)
	c.size -= kv.cost
	c.rc.ReleaseMemory(kv.cost)
}
