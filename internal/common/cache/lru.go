// internal/common/cache/lru.go
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a size-bounded, TTL-aware in-process cache safe for concurrent use.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List
	now      func() time.Time
}

type lruEntry[V any] struct {
	key     string
	value   V
	expires time.Time
}

// NewLRU creates a cache; non-positive capacity defaults to 512 and ttl 0 means entries never expire.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = 512
	}
	return &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := elem.Value.(*lruEntry[V])
	if !ent.expires.IsZero() && !c.now().Before(ent.expires) {
		c.remove(elem)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return ent.value, true
}

// Set stores value; a zero ttl uses the cache default.
func (c *LRU[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = c.ttl
	}
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*lruEntry[V])
		ent.value = value
		ent.expires = expires
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}

	c.items[key] = c.order.PushFront(&lruEntry[V]{key: key, value: value, expires: expires})
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

func (c *LRU[V]) remove(elem *list.Element) {
	ent := c.order.Remove(elem).(*lruEntry[V])
	delete(c.items, ent.key)
}
