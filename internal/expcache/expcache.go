// Package expcache is a typed expiring cache over patrickmn/go-cache.
package expcache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache maps keys to values that expire after a fixed TTL.
type Cache[K ~string, V any] struct {
	store *gocache.Cache
	group singleflight.Group
	ttl   time.Duration
}

// New creates a cache whose entries live for ttl. Expired entries are purged
// every cleanup interval; a zero interval means twice the TTL.
func New[K ~string, V any](ttl, cleanup time.Duration) *Cache[K, V] {
	if cleanup <= 0 {
		cleanup = 2 * ttl
	}
	return &Cache[K, V]{store: gocache.New(ttl, cleanup), ttl: ttl}
}

// TTL returns the entry lifetime.
func (c *Cache[K, V]) TTL() time.Duration { return c.ttl }

// Get returns a live value.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.store.Get(string(key))
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Set stores a value with the default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.store.Set(string(key), value, gocache.DefaultExpiration)
}

// Delete removes a value.
func (c *Cache[K, V]) Delete(key K) {
	c.store.Delete(string(key))
}

// Clear removes all values.
func (c *Cache[K, V]) Clear() {
	c.store.Flush()
}

// Len returns the number of stored items, including expired ones not yet
// purged.
func (c *Cache[K, V]) Len() int {
	return c.store.ItemCount()
}

// GetOrLoad returns the cached value or calls load once per key across
// concurrent callers and caches its result. Errors are not cached.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	res, err, _ := c.group.Do(string(key), func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}
