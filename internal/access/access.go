// Package access defines the access controllers that govern which
// identities may append to a log.
//
// Controllers are recorded in a log's manifest, so each one has a canonical
// manifest form and can be rebuilt from it with FromManifest.
package access

import (
	"fmt"
	"slices"
)

// Wildcard grants write access to every identity.
const Wildcard = "*"

// Controller types as recorded in manifests.
const (
	TypePublic  = "public"
	TypeWriters = "writers"
)

// Props are the caller-supplied properties a blueprint's access controller
// factory receives (e.g. the owning identity of a new store).
type Props map[string]any

// String returns the string value of key, or "" if absent or not a string.
func (p Props) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Strings returns the string list under key. Accepts []string and []any.
func (p Props) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// Controller decides whether an identity may append to a log.
type Controller interface {
	// Type is the controller type recorded in the manifest.
	Type() string

	// CanAppend reports whether the identity may write.
	CanAppend(identityID string) bool

	// Manifest returns the canonical manifest form of the controller.
	Manifest() map[string]any
}

// Writers allows a fixed set of identities to append. A Wildcard member
// allows everyone.
type Writers struct {
	ids []string
}

// NewWriters creates a Writers controller. Duplicates are removed and the
// list is kept sorted so equal controllers produce equal manifests.
func NewWriters(ids ...string) *Writers {
	out := slices.Clone(ids)
	slices.Sort(out)
	return &Writers{ids: slices.Compact(out)}
}

// Public allows every identity to append.
func Public() *Writers {
	return NewWriters(Wildcard)
}

// Type implements Controller.
func (w *Writers) Type() string {
	if slices.Equal(w.ids, []string{Wildcard}) {
		return TypePublic
	}
	return TypeWriters
}

// CanAppend implements Controller.
func (w *Writers) CanAppend(identityID string) bool {
	_, found := slices.BinarySearch(w.ids, Wildcard)
	if found {
		return true
	}
	_, found = slices.BinarySearch(w.ids, identityID)
	return found
}

// IDs returns the allowed identities.
func (w *Writers) IDs() []string {
	return slices.Clone(w.ids)
}

// Manifest implements Controller.
func (w *Writers) Manifest() map[string]any {
	write := make([]any, len(w.ids))
	for i, id := range w.ids {
		write[i] = id
	}
	return map[string]any{
		"type":  w.Type(),
		"write": write,
	}
}

// FromManifest rebuilds a controller from its manifest form.
func FromManifest(m map[string]any) (Controller, error) {
	if m == nil {
		return Public(), nil
	}
	typ, _ := m["type"].(string)
	switch typ {
	case TypePublic:
		return Public(), nil
	case TypeWriters:
		ids := Props(m).Strings("write")
		if len(ids) == 0 {
			return nil, fmt.Errorf("access manifest: %s controller without writers", typ)
		}
		return NewWriters(ids...), nil
	default:
		return nil, fmt.Errorf("access manifest: unknown controller type %q", typ)
	}
}

// Factory builds a controller from store props. It may return nil, which
// DDB treats as "no access restriction".
type Factory func(props Props) Controller

// PublicFactory always grants write access to everyone.
func PublicFactory() Factory {
	return func(Props) Controller { return Public() }
}

// WritersFactory restricts writes to the identities listed under key in the
// props, plus any fixed ids. Returns nil when no writer is known.
func WritersFactory(key string, fixed ...string) Factory {
	return func(props Props) Controller {
		ids := append(slices.Clone(fixed), props.Strings(key)...)
		if len(ids) == 0 {
			return nil
		}
		return NewWriters(ids...)
	}
}
