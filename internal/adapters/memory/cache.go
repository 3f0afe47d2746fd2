// Package memory provides an in-process CacheService used when Valkey is
// not configured or unreachable.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samirrijal/poimap/internal/core/ports"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a mutex-guarded map with per-key expiry.
type Cache struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{data: make(map[string]entry), now: time.Now}
}

// Get returns ports.ErrCacheMiss for absent or expired keys.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.data, key)
		return nil, ports.ErrCacheMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a copy of value. A non-positive TTL never expires.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttlSeconds int) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttlSeconds > 0 {
		e.expiresAt = c.now().Add(time.Duration(ttlSeconds) * time.Second)
	}
	c.mu.Lock()
	c.data[key] = e
	c.mu.Unlock()
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.data {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(c.data, k)
			n++
		}
	}
	return n
}
