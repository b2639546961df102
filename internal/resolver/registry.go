package resolver

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/ddb/internal/address"
	"github.com/roach88/ddb/internal/fault"
)

// Registry holds resolvers by key. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]Resolver)}
}

// Register installs r under key, replacing any previous resolver.
func (r *Registry) Register(key string, res Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[key] = res
}

// Lookup returns the resolver registered under key.
func (r *Registry) Lookup(key string) (Resolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resolvers[key]
	return res, ok
}

// Keys returns the registered keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []string
	for k := range r.resolvers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Split breaks identifier into resolver key and id at the first ".".
func Split(identifier string) (key, id string, err error) {
	key, id, ok := strings.Cut(identifier, ".")
	if !ok || key == "" || id == "" {
		return "", "", fault.New(fault.ErrCodeInvalidIdentifierForm,
			"identifier %q is not of the form <resolver>.<id>", identifier)
	}
	return key, id, nil
}

// Resolve maps identifier to an address.
//
// Returns found=false with a nil error when the resolver knows no store for
// the id. The registry lock is not held while the resolver runs.
func (r *Registry) Resolve(ctx context.Context, identifier string) (address.Address, bool, error) {
	key, id, err := Split(identifier)
	if err != nil {
		return address.Address{}, false, err
	}

	res, ok := r.Lookup(key)
	if !ok {
		return address.Address{}, false, fault.New(fault.ErrCodeResolverNotFound,
			"no resolver registered for %q", key)
	}

	raw, found, err := res.Resolve(ctx, id)
	if err != nil {
		return address.Address{}, false, err
	}
	if !found || raw == "" {
		return address.Address{}, false, nil
	}
	if !address.IsValid(raw) {
		return address.Address{}, false, fault.New(fault.ErrCodeResolvedAddressInvalid,
			"resolver %s returned invalid address for %s", key, id).WithAddress(raw)
	}
	addr, err := address.Parse(raw)
	if err != nil {
		return address.Address{}, false, err
	}
	return addr, true, nil
}
