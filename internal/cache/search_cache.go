package cache

import (
	"sync"
	"time"
)

// TTLCache is an in-memory map whose entries expire after a fixed TTL.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]*cachedEntry[V]
	ttl     time.Duration
	now     func() time.Time
}

type cachedEntry[V any] struct {
	value     V
	timestamp time.Time
}

// NewTTLCache creates a cache. A zero or negative ttl disables caching.
func NewTTLCache[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		entries: make(map[string]*cachedEntry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, false
	}

	c.mu.RLock()
	cached, exists := c.entries[key]
	c.mu.RUnlock()
	if !exists {
		return zero, false
	}

	if c.now().Sub(cached.timestamp) > c.ttl {
		c.mu.Lock()
		// re-check under the write lock; Set may have refreshed it
		if cur, ok := c.entries[key]; ok && cur == cached {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return cached.value, true
}

func (c *TTLCache[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cachedEntry[V]{value: value, timestamp: c.now()}
}
