// Package resolver turns human-meaningful identifiers such as "user.alice"
// into canonical store addresses.
//
// A Registry maps resolver keys ("user") to Resolver implementations. An
// identifier "<key>.<id>" is split on its first ".", and the id is handed
// to the resolver registered under key.
package resolver

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Resolver looks up the address string for id.
//
// Found is false when the id is recognised but maps to no store; that is
// not an error. The returned address is validated by the Registry.
type Resolver interface {
	Resolve(ctx context.Context, id string) (addr string, found bool, err error)
}

// Func adapts a function to the Resolver interface.
type Func func(ctx context.Context, id string) (string, bool, error)

// Resolve implements Resolver.
func (f Func) Resolve(ctx context.Context, id string) (string, bool, error) {
	return f(ctx, id)
}

// Static resolves ids from a fixed map.
type Static map[string]string

// Resolve implements Resolver.
func (s Static) Resolve(_ context.Context, id string) (string, bool, error) {
	addr, ok := s[id]
	return addr, ok, nil
}

// Lookup is a keyvalue read; a DDB keyvalue store satisfies it.
type Lookup interface {
	Get(key string) (any, bool, error)
}

// Directory resolves ids by reading them as keys from a keyvalue store that
// maps ids to address strings.
type Directory struct {
	Store Lookup
}

// Resolve implements Resolver.
func (d Directory) Resolve(_ context.Context, id string) (string, bool, error) {
	v, ok, err := d.Store.Get(id)
	if err != nil || !ok {
		return "", false, err
	}
	addr, isString := v.(string)
	if !isString {
		return "", false, fmt.Errorf("directory entry %s is %T, not an address string", id, v)
	}
	return addr, true, nil
}

type cachedResult struct {
	addr  string
	found bool
}

// Cached memoises another resolver's results, hits and misses alike, for a
// fixed TTL. Errors are not cached.
type Cached struct {
	next  Resolver
	cache *gocache.Cache
}

// NewCached wraps next with a TTL cache. A ttl <= 0 keeps results until
// Forget drops them.
func NewCached(next Resolver, ttl time.Duration) *Cached {
	if ttl <= 0 {
		return &Cached{next: next, cache: gocache.New(gocache.NoExpiration, 0)}
	}
	return &Cached{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Resolve implements Resolver.
func (c *Cached) Resolve(ctx context.Context, id string) (string, bool, error) {
	if v, ok := c.cache.Get(id); ok {
		r := v.(cachedResult)
		return r.addr, r.found, nil
	}
	addr, found, err := c.next.Resolve(ctx, id)
	if err != nil {
		return "", false, err
	}
	c.cache.SetDefault(id, cachedResult{addr: addr, found: found})
	return addr, found, nil
}

// Forget drops any cached result for id.
func (c *Cached) Forget(id string) {
	c.cache.Delete(id)
}
