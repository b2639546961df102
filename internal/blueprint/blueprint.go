// Package blueprint declares store kinds.
//
// A Blueprint names a kind of store, the schema its documents must satisfy,
// the access controller new and reopened logs are guarded by, and the log
// kind the substrate must provide. Blueprints are registered once at start
// in a Registry and are shared by every store of that kind.
package blueprint

import (
	"slices"
	"strings"

	"github.com/roach88/ddb/internal/access"
	"github.com/roach88/ddb/internal/fault"
	"github.com/roach88/ddb/internal/schema"
)

// Kind is the type of replicated log a store requires.
type Kind string

const (
	// KeyValue is a last-write-wins map of keys to values.
	KeyValue Kind = "keyvalue"

	// Feed is an ordered list of entries that may be removed.
	Feed Kind = "feed"

	// EventLog is an immutable ordered list of entries.
	EventLog Kind = "eventlog"

	// DocStore is a map of documents keyed by their "_id" field.
	DocStore Kind = "docstore"
)

// Kinds lists every supported log kind.
func Kinds() []Kind {
	return []Kind{KeyValue, Feed, EventLog, DocStore}
}

// Valid reports whether k is a supported log kind.
func (k Kind) Valid() bool {
	return slices.Contains(Kinds(), k)
}

func (k Kind) String() string { return string(k) }

// Blueprint describes one kind of store.
type Blueprint struct {
	// Name is the store name; it becomes the first segment of every store
	// path and must not contain ".".
	Name string

	// Schema validates every document written through the store.
	Schema schema.Schema

	// AccessController builds the controller for a store from caller props.
	// Nil, or a factory returning nil, means no access restriction.
	AccessController access.Factory

	// Kind is the log kind the substrate must report.
	Kind Kind
}

// Validate checks the blueprint's static invariants.
func (b Blueprint) Validate() error {
	if b.Name == "" {
		return fault.New(fault.ErrCodeInvalidStoreName, "blueprint name is empty")
	}
	if strings.Contains(b.Name, ".") {
		return fault.New(fault.ErrCodeInvalidStoreName, "blueprint name %q contains '.'", b.Name)
	}
	if b.Schema == nil {
		return fault.New(fault.ErrCodeSchemaMissing, "blueprint %s has no schema", b.Name)
	}
	if !b.Kind.Valid() {
		return fault.New(fault.ErrCodeStoreKindMismatch, "blueprint %s has unknown log kind %q", b.Name, b.Kind)
	}
	return nil
}

// Controller computes the access controller for props, or nil.
func (b Blueprint) Controller(props access.Props) access.Controller {
	if b.AccessController == nil {
		return nil
	}
	return b.AccessController(props)
}
