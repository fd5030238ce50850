// Package cache provides a simple in-memory TTL cache.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory cache with TTL.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures an InMemory cache.
type Option func(*options)

type options struct {
	now     func() time.Time
	janitor bool
}

// WithClock replaces time.Now. Used by tests to move time forward.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithoutJanitor disables the background cleanup goroutine.
// Expired entries are still invisible to Get.
func WithoutJanitor() Option {
	return func(o *options) { o.janitor = false }
}

// New creates a new in-memory cache with the given TTL.
func New[T any](ttl time.Duration, opts ...Option) *InMemory[T] {
	o := options{now: time.Now, janitor: true}
	for _, opt := range opts {
		opt(&o)
	}

	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		now:   o.now,
		stop:  make(chan struct{}),
	}
	if o.janitor && ttl > 0 {
		go c.cleanup()
	}
	return c
}

// Get retrieves a value from the cache. Returns false if not found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value in the cache with the configured TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len reports the number of stored entries, expired or not.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (c *InMemory[T]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cleanup periodically removes expired entries.
func (c *InMemory[T]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purge()
		}
	}
}

func (c *InMemory[T]) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, v := range c.items {
		if !now.Before(v.expiresAt) {
			delete(c.items, k)
		}
	}
}
