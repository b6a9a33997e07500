// Package cache provides TTL-bounded memoization for expensive aggregation results.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	value      V
	computedAt time.Time
	ttl        time.Duration
}

// ResultCache memoizes computed results keyed by request identity. Entries
// expire purely by TTL; there is no invalidation signal from chain-state
// changes. Single-flight is not guaranteed: concurrent misses may compute the
// same result twice, which is acceptable because computations are idempotent
// and side-effect free.
type ResultCache[K comparable, V any] struct {
	entries *lru.Cache[K, entry[V]]
	now     func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a ResultCache holding at most size entries.
func New[K comparable, V any](size int) (*ResultCache[K, V], error) {
	entries, err := lru.New[K, entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &ResultCache[K, V]{
		entries: entries,
		now:     time.Now,
	}, nil
}

// Get returns the cached value for key if present and not expired.
func (c *ResultCache[K, V]) Get(key K) (V, bool) {
	e, ok := c.entries.Get(key)
	if !ok || c.now().Sub(e.computedAt) >= e.ttl {
		var zero V
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value for key with the given TTL, replacing any previous entry.
func (c *ResultCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.entries.Add(key, entry[V]{value: value, computedAt: c.now(), ttl: ttl})
}

// GetOrCompute returns the cached value for key, or runs compute and caches
// its result for ttl. Compute errors are returned uncached so the next caller
// retries.
func (c *ResultCache[K, V]) GetOrCompute(ctx context.Context, key K, ttl time.Duration, compute func(context.Context) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := compute(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, value, ttl)
	return value, nil
}

// Stats reports cumulative hit and miss counts.
func (c *ResultCache[K, V]) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
