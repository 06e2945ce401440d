package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Flush removes every key
	Flush()

	// Size returns the current number of items in the cache
	Size() int
}

// TTLCache is a typed view over go-cache. Expired entries are removed by
// go-cache's janitor every cleanup interval.
type TTLCache[T any] struct {
	items *gocache.Cache
}

// NewTTLCache creates a cache whose entries live for ttl. A zero ttl disables
// caching: Set becomes a no-op.
func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	if ttl <= 0 {
		return &TTLCache[T]{}
	}
	return &TTLCache[T]{items: gocache.New(ttl, 2*ttl)}
}

func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	if c.items == nil {
		return zero, false
	}
	v, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	data, ok := v.(T)
	return data, ok
}

func (c *TTLCache[T]) Set(key string, data T) {
	if c.items == nil {
		return
	}
	c.items.SetDefault(key, data)
}

func (c *TTLCache[T]) Delete(key string) {
	if c.items != nil {
		c.items.Delete(key)
	}
}

func (c *TTLCache[T]) Flush() {
	if c.items != nil {
		c.items.Flush()
	}
}

// Size counts entries including expired ones not yet collected
func (c *TTLCache[T]) Size() int {
	if c.items == nil {
		return 0
	}
	return c.items.ItemCount()
}
