package cache

import (
	"container/list"
	"sync"
	"time"
)

// MemoryCache is an LRU cache bounded by the total size of its items.
type MemoryCache[V any] struct {
	capacity int64 // Maximum size in bytes
	size     int64 // Current size in bytes

	items    map[string]*list.Element
	eviction *list.List

	mu sync.Mutex

	stats Stats
}

type entry[V any] struct {
	key   string
	value V
	size  int64
}

// NewMemoryCache creates a cache holding at most capacity bytes.
func NewMemoryCache[V any](capacity int64) *MemoryCache[V] {
	return &MemoryCache[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get retrieves a value and marks it as most recently used.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*entry[V]).value, true
}

// Put stores a value of the given size, evicting the least recently used
// items as needed.
func (c *MemoryCache[V]) Put(key string, value V, size int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if size > c.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}

	for c.size+size > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&entry[V]{key: key, value: value, size: size})
	c.items[key] = elem
	c.size += size

	return nil
}

// Delete removes an entry. Deleting a missing key is not an error.
func (c *MemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Stats returns cache statistics.
func (c *MemoryCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// evictOldest removes the least recently used item (must be called with lock held).
func (c *MemoryCache[V]) evictOldest() {
	elem := c.eviction.Back()
	if elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
		c.stats.LastEvict = time.Now()
	}
}

// removeElement removes an element from the cache (must be called with lock held).
func (c *MemoryCache[V]) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	e := elem.Value.(*entry[V])
	delete(c.items, e.key)
	c.size -= e.size
}
