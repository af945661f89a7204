package cache

import (
	"context"
	"sync"
	"time"

	"ContentDigest/internal/ports"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is a single-process TTL map. When MaxEntries is positive the oldest keys are
// evicted first.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]memoryEntry
	order      []string
	maxEntries int
	now        func() time.Time
}

var _ ports.KeyValueCache = (*MemoryCache)(nil)

// NewMemoryCache builds an empty cache. A nil clock means time.Now.
func NewMemoryCache(maxEntries int, now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		items:      make(map[string]memoryEntry),
		order:      make([]string, 0, 128),
		maxEntries: maxEntries,
		now:        now,
	}
}

// Exists reports whether key is present and unexpired.
func (c *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		c.removeFromOrder(key)
		return false, nil
	}
	return true, nil
}

// Set stores key with the given ttl; zero or negative ttl never expires.
func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = e
	c.evictIfNeeded()
	return nil
}

// Len returns the number of stored keys, expired ones included until touched.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *MemoryCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}
	for len(c.items) > c.maxEntries && len(c.order) > 0 {
		victim := c.order[0]
		c.order = c.order[1:]
		delete(c.items, victim)
	}
}
