package blueprint

import (
	"slices"

	"github.com/roach88/ddb/internal/fault"
)

// Registry is the static table of blueprints. It has no mutation API once
// built and is safe for concurrent reads.
type Registry struct {
	byName map[string]Blueprint
}

// NewRegistry validates and registers bps.
func NewRegistry(bps ...Blueprint) (*Registry, error) {
	r := &Registry{byName: make(map[string]Blueprint, len(bps))}
	for _, bp := range bps {
		if err := bp.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byName[bp.Name]; dup {
			return nil, fault.New(fault.ErrCodeDuplicateBlueprint, "blueprint %s registered twice", bp.Name)
		}
		r.byName[bp.Name] = bp
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(bps ...Blueprint) *Registry {
	r, err := NewRegistry(bps...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the blueprint registered under name.
func (r *Registry) Get(name string) (Blueprint, error) {
	bp, ok := r.byName[name]
	if !ok {
		return Blueprint{}, fault.New(fault.ErrCodeBlueprintNotFound, "no blueprint named %s", name)
	}
	return bp, nil
}

// Names returns the registered blueprint names, sorted.
func (r *Registry) Names() []string {
	var keys []string
	for k := range r.byName {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of registered blueprints.
func (r *Registry) Len() int {
	return len(r.byName)
}
