package resolver

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// DefaultCacheSize bounds the number of domains remembered by a Cache.
const DefaultCacheSize = 1000

// Cache is a fixed-capacity LRU map from domain to "has MX records".
// It is safe for concurrent use. Get promotes the entry, so it takes the
// write lock as well.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	domain string
	hasMX  bool
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Size     int   `json:"size"`
	Capacity int   `json:"capacity"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
}

// NewCache creates a cache holding at most capacity domains. A non-positive
// capacity selects DefaultCacheSize.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached answer for domain and whether it was present.
func (c *Cache) Get(domain string) (hasMX bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[domain]
	if !ok {
		c.misses.Add(1)
		return false, false
	}
	c.hits.Add(1)
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).hasMX, true
}

// Add stores the answer for domain, evicting the least recently used entry
// when the cache is full.
func (c *Cache) Add(domain string, hasMX bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[domain]; ok {
		el.Value.(*cacheEntry).hasMX = hasMX
		c.ll.MoveToFront(el)
		return
	}

	c.items[domain] = c.ll.PushFront(&cacheEntry{domain: domain, hasMX: hasMX})
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).domain)
	}
}

// Len returns the number of cached domains.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Purge drops every entry. Counters are kept.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Size:     c.Len(),
		Capacity: c.capacity,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
	}
}
