// Package cache provides a small in-memory TTL map.
package cache

import (
	"sync"
	"time"
)

// TTLCache stores values for a fixed time. Expired entries are invisible to
// readers and swept in the background once a minute.
type TTLCache[V any] struct {
	data    map[string]entry[V]
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once
}

type entry[V any] struct {
	value      V
	expiration time.Time
}

// Option configures a TTLCache.
type Option func(*options)

type options struct {
	now      func() time.Time
	interval time.Duration
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithCleanupInterval changes how often expired entries are swept.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// New creates a cache whose entries live for ttl.
func New[V any](ttl time.Duration, opts ...Option) *TTLCache[V] {
	o := options{now: time.Now, interval: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	c := &TTLCache[V]{
		data:    make(map[string]entry[V]),
		ttl:     ttl,
		now:     o.now,
		cleanup: time.NewTicker(o.interval),
		done:    make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// Get retrieves a value from the cache
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || c.now().After(e.expiration) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *TTLCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *TTLCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = entry[V]{value: value, expiration: c.now().Add(ttl)}
}

// SetIfAbsent stores value unless a live entry exists. It reports whether
// the value was stored.
func (c *TTLCache[V]) SetIfAbsent(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.data[key]; ok && !now.After(e.expiration) {
		return false
	}
	c.data[key] = entry[V]{value: value, expiration: now.Add(c.ttl)}
	return true
}

func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
}

// Size returns the number of entries, expired ones included until swept.
func (c *TTLCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}

func (c *TTLCache[V]) cleanupLoop() {
	for {
		select {
		case <-c.cleanup.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

func (c *TTLCache[V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.data {
		if now.After(e.expiration) {
			delete(c.data, key)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (c *TTLCache[V]) Stop() {
	c.once.Do(func() {
		c.cleanup.Stop()
		close(c.done)
	})
}
