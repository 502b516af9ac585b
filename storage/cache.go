// Write-through memory cache presenting a synchronous read API over
// asynchronous disk I/O.
//
// The cache is an explicit owned object with a documented lifecycle: it is
// populated by FileStore.PreloadCache before any synchronous Get is
// trusted, then kept current by every mutation path. Correctness depends
// on mutations never bypassing it.

package storage

import "sync"

// Cache is a small keyed value cache guarded by an RWMutex.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]any),
	}
}

// Get returns the cached value for key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.entries[key]
	return v, ok
}

// Set stores a value for key.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = value
}

// Delete removes a key. No-op if absent.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Reset drops every cached entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]any)
}
