// Package peer defines the contracts DDB consumes from the replicated-log
// substrate: a peer Node that creates and opens logs, and the LogHandle of
// one opened log.
//
// Errors returned by implementations are substrate failures and are passed
// to DDB callers unwrapped.
package peer

import (
	"context"

	"github.com/roach88/ddb/internal/access"
	"github.com/roach88/ddb/internal/address"
	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/identity"
)

// Node is a running peer able to create and open replicated logs.
type Node interface {
	// Ready blocks until the node can serve Create and Open.
	Ready(ctx context.Context) error

	// IsOnline reports whether the node is connected.
	IsOnline() bool

	// Start brings an offline node back online.
	Start(ctx context.Context) error

	// Create makes a new log of kind under path.
	Create(ctx context.Context, path string, kind blueprint.Kind, opts CreateOptions) (LogHandle, error)

	// Open opens the existing log at addr.
	Open(ctx context.Context, addr address.Address, opts OpenOptions) (LogHandle, error)

	// Stop shuts the node down. Handles opened from it become unusable.
	Stop(ctx context.Context) error
}

// CreateOptions configure Node.Create.
type CreateOptions struct {
	// AccessController guards appends. Nil means no restriction.
	AccessController access.Controller

	// Identity signs the log's entries.
	Identity *identity.Identity
}

// OpenOptions configure Node.Open.
type OpenOptions struct {
	// AccessController overrides the controller recorded with the log.
	// Nil uses the recorded one.
	AccessController access.Controller

	// Identity signs entries appended through the handle.
	Identity *identity.Identity
}

// LogHandle is one opened log.
//
// Get, Entry, Entries and All read the in-memory index built by Load and by
// appends through this handle; they never block on I/O.
type LogHandle interface {
	// Address is the log's canonical address.
	Address() address.Address

	// Type is the log kind the substrate recorded for the log.
	Type() blueprint.Kind

	// Load rebuilds the index from storage, picking up other peers' appends.
	Load(ctx context.Context) error

	// Get returns the current value of key (keyvalue and docstore logs).
	Get(key string) (any, bool)

	// All returns every live key and value (keyvalue and docstore logs).
	All() map[string]any

	// Put sets key to value and returns the entry hash.
	Put(ctx context.Context, key string, value any) (string, error)

	// Delete removes key and returns the entry hash.
	Delete(ctx context.Context, key string) (string, error)

	// Add appends value (feed and eventlog logs) and returns the entry hash.
	Add(ctx context.Context, value any) (string, error)

	// Remove tombstones the entry with the given hash (feed logs).
	Remove(ctx context.Context, hash string) (string, error)

	// Entry returns the live entry with the given hash.
	Entry(hash string) (Entry, bool)

	// Entries returns the live entries in log order.
	Entries() []Entry

	// Close releases the handle.
	Close() error
}
