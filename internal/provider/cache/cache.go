// Package cache holds fetched results between calls. The aggregator takes a
// Cache explicitly; nothing in the pipeline caches implicitly.
package cache

import (
	"sync"
	"time"

	"marketbridge/internal/provider"
)

// Cache stores successful results keyed by provider.Request.Key.
type Cache interface {
	Get(key string) (provider.Result, bool)
	Set(key string, res provider.Result)
}

// entry stores a cached result with expiry.
type entry struct {
	expiresAt time.Time
	result    provider.Result
}

// Memory is an in-process Cache whose entries expire after TTL. A TTL <= 0
// disables it. MaxItems caps the entry count; 0 means unbounded.
type Memory struct {
	TTL      time.Duration
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

// NewMemory returns a Memory cache.
func NewMemory(ttl time.Duration, maxItems int) *Memory {
	return &Memory{TTL: ttl, MaxItems: maxItems}
}

func (c *Memory) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Get returns the cached result for key if present and not expired.
func (c *Memory) Get(key string) (provider.Result, bool) {
	if c == nil || c.TTL <= 0 {
		return provider.Result{}, false
	}
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !c.clock().Before(e.expiresAt) {
		return provider.Result{}, false
	}
	return e.result, true
}

// Set stores res under key. Failed results are not cached.
func (c *Memory) Set(key string, res provider.Result) {
	if c == nil || c.TTL <= 0 || !res.OK() {
		return
	}
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]entry)
	}
	c.items[key] = entry{expiresAt: now.Add(c.TTL), result: res}

	// best-effort cap cache size
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		// remove expired first, then arbitrary
		for k, v := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			if !now.Before(v.expiresAt) {
				delete(c.items, k)
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			if k != key {
				delete(c.items, k)
			}
		}
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
