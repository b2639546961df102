// Package storecache holds at most one live value per canonical store
// address.
//
// Concurrent GetOrCreate calls for the same address share a single factory
// invocation and receive the same value or the same error. Different
// addresses never wait on each other. Entries are never evicted.
package storecache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/ddb/internal/address"
)

// Factory opens the value for an address on a cache miss.
type Factory[T any] func(ctx context.Context) (T, error)

// Cache maps canonical address keys to values.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
	closed  bool
	group   singleflight.Group
}

// New returns an empty cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{entries: make(map[string]T)}
}

// Get returns the cached value for addr.
func (c *Cache[T]) Get(addr address.Address) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[addr.Key()]
	return v, ok
}

// Add stores v under addr unless a value is already present or the cache
// is closed. It returns the value now cached and whether v was inserted.
func (c *Cache[T]) Add(addr address.Address, v T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return v, false
	}
	key := addr.Key()
	if existing, ok := c.entries[key]; ok {
		return existing, false
	}
	c.entries[key] = v
	return v, true
}

// GetOrCreate returns the cached value for addr, calling factory on a miss.
//
// The factory runs on a context detached from ctx: a caller that gives up
// gets ctx.Err(), but the factory still completes and its value is cached
// for later callers. Factory errors are returned to every waiter and are
// not cached.
func (c *Cache[T]) GetOrCreate(ctx context.Context, addr address.Address, factory Factory[T]) (T, error) {
	if v, ok := c.Get(addr); ok {
		return v, nil
	}

	key := addr.Key()
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// A flight that finished just before this one started may have
		// populated the entry.
		if v, ok := c.Get(addr); ok {
			return v, nil
		}
		v, err := factory(detached)
		if err != nil {
			return nil, err
		}
		v, _ = c.Add(addr, v)
		return v, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Len returns the number of cached values.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Values returns every cached value in no particular order.
func (c *Cache[T]) Values() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.entries))
	for _, v := range c.entries {
		out = append(out, v)
	}
	return out
}

// Clear removes every entry and returns what was cached.
func (c *Cache[T]) Clear() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, 0, len(c.entries))
	for _, v := range c.entries {
		out = append(out, v)
	}
	c.entries = make(map[string]T)
	return out
}

// Close removes every entry, returns what was cached, and makes later Add
// calls no-ops. Flights still running when Close is called do not
// repopulate the cache.
func (c *Cache[T]) Close() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	out := make([]T, 0, len(c.entries))
	for _, v := range c.entries {
		out = append(out, v)
	}
	c.entries = make(map[string]T)
	return out
}
