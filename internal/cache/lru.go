package cache

import (
	"container/list"
	"sync"
	"time"
)

const defaultCapacity = 1024

// LRU is a generic LRU cache with per-entry TTL expiration. It backs
// lookups whose answers rarely change, such as a contract's token standard.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[K]*list.Element
	order    *list.List
	nowFn    func() time.Time

	hits   int64
	misses int64
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// NewLRU creates a cache holding at most capacity entries for ttl each.
func NewLRU[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &LRU[K, V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
		nowFn:    time.Now,
	}
}

// Get returns the cached value and true if present and not expired.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}

	e := elem.Value.(*entry[K, V])
	if c.nowFn().After(e.expiresAt) {
		c.removeElement(elem)
		c.misses++
		var zero V
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return e.value, true
}

// Put adds or refreshes a value.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.nowFn().Add(c.ttl)
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		e := elem.Value.(*entry[K, V])
		e.value = value
		e.expiresAt = expiresAt
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Load errors are returned as-is and never cached. Concurrent misses on the
// same key may call load more than once.
func (c *LRU[K, V]) GetOrLoad(key K, load func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.Put(key, v)
	return v, false, nil
}

// Len returns the number of items in the cache (including expired but not yet evicted).
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns cache hit and miss counts.
func (c *LRU[K, V]) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *LRU[K, V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry[K, V]).key)
}
