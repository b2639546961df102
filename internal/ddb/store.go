package ddb

import (
	"context"
	"slices"
	"strings"

	"github.com/roach88/ddb/internal/address"
	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/fault"
	"github.com/roach88/ddb/internal/metrics"
	"github.com/roach88/ddb/internal/peer"
	"github.com/roach88/ddb/internal/schema"
)

// DocIDField is the document field docstore stores are keyed by.
const DocIDField = "_id"

// Store is a typed façade over one log. Stores are created by a Manager
// and live until the manager stops.
type Store struct {
	log     peer.LogHandle
	name    string
	kind    blueprint.Kind
	schema  schema.Schema
	metrics *metrics.Metrics
}

func newStore(log peer.LogHandle, bp blueprint.Blueprint, m *metrics.Metrics) *Store {
	return &Store{
		log:     log,
		name:    bp.Name,
		kind:    bp.Kind,
		schema:  bp.Schema,
		metrics: m,
	}
}

// Address is the canonical address reported by the underlying log.
func (s *Store) Address() address.Address { return s.log.Address() }

// Name is the blueprint name.
func (s *Store) Name() string { return s.name }

// Kind is the log kind.
func (s *Store) Kind() blueprint.Kind { return s.kind }

// Schema is the schema every write is validated against.
func (s *Store) Schema() schema.Schema { return s.schema }

// Load reloads the store from storage, picking up other peers' appends.
func (s *Store) Load(ctx context.Context) error {
	return s.log.Load(ctx)
}

// Validate checks doc against the store's schema without writing.
func (s *Store) Validate(doc any) error {
	if errs := s.schema.Validate(doc); len(errs) > 0 {
		s.metrics.ValidationFailure(s.name)
		return fault.NewValidationError(s.name, errs).WithAddress(s.Address().String())
	}
	return nil
}

func (s *Store) require(op string, kinds ...blueprint.Kind) error {
	if slices.Contains(kinds, s.kind) {
		return nil
	}
	return fault.New(fault.ErrCodeUnsupportedOperation,
		"%s is not supported by %s store %s", op, s.kind, s.name).WithAddress(s.Address().String())
}

// Get returns the value stored under key. Keyvalue stores only.
func (s *Store) Get(key string) (any, bool, error) {
	if err := s.require("get", blueprint.KeyValue); err != nil {
		return nil, false, err
	}
	v, ok := s.log.Get(key)
	return v, ok, nil
}

// All returns every key and value. Keyvalue stores only.
func (s *Store) All() (map[string]any, error) {
	if err := s.require("all", blueprint.KeyValue); err != nil {
		return nil, err
	}
	return s.log.All(), nil
}

// Put validates value and stores it under key. Keyvalue stores only.
// Returns the entry hash.
func (s *Store) Put(ctx context.Context, key string, value any) (string, error) {
	if err := s.require("put", blueprint.KeyValue); err != nil {
		return "", err
	}
	if err := s.Validate(value); err != nil {
		return "", err
	}
	hash, err := s.log.Put(ctx, key, value)
	if err != nil {
		return "", err
	}
	s.metrics.Write(string(s.kind), string(peer.OpPut))
	return hash, nil
}

// Delete removes key. Keyvalue stores only.
func (s *Store) Delete(ctx context.Context, key string) (string, error) {
	if err := s.require("delete", blueprint.KeyValue); err != nil {
		return "", err
	}
	hash, err := s.log.Delete(ctx, key)
	if err != nil {
		return "", err
	}
	s.metrics.Write(string(s.kind), string(peer.OpDelete))
	return hash, nil
}

// Add validates value and appends it. Feed and eventlog stores only.
func (s *Store) Add(ctx context.Context, value any) (string, error) {
	if err := s.require("add", blueprint.Feed, blueprint.EventLog); err != nil {
		return "", err
	}
	if err := s.Validate(value); err != nil {
		return "", err
	}
	hash, err := s.log.Add(ctx, value)
	if err != nil {
		return "", err
	}
	s.metrics.Write(string(s.kind), string(peer.OpAdd))
	return hash, nil
}

// Remove drops the entry with hash from the feed. Feed stores only.
func (s *Store) Remove(ctx context.Context, hash string) (string, error) {
	if err := s.require("remove", blueprint.Feed); err != nil {
		return "", err
	}
	h, err := s.log.Remove(ctx, hash)
	if err != nil {
		return "", err
	}
	s.metrics.Write(string(s.kind), string(peer.OpRemove))
	return h, nil
}

// Entry returns the live entry with hash. Feed and eventlog stores only.
func (s *Store) Entry(hash string) (peer.Entry, bool, error) {
	if err := s.require("entry", blueprint.Feed, blueprint.EventLog); err != nil {
		return peer.Entry{}, false, err
	}
	e, ok := s.log.Entry(hash)
	return e, ok, nil
}

// IterateOptions select entries for Iterate.
type IterateOptions struct {
	// Limit caps the number of entries returned; 0 means no limit.
	Limit int

	// Reverse returns the newest entries first.
	Reverse bool
}

// Iterate returns the live entries in log order. Feed and eventlog stores
// only.
func (s *Store) Iterate(opts IterateOptions) ([]peer.Entry, error) {
	if err := s.require("iterate", blueprint.Feed, blueprint.EventLog); err != nil {
		return nil, err
	}
	entries := s.log.Entries()
	if opts.Reverse {
		slices.Reverse(entries)
	}
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}
	return entries, nil
}

// History returns every entry of any kind of store in log order.
func (s *Store) History() []peer.Entry {
	return s.log.Entries()
}

// PutDoc validates doc and stores it under its "_id" field. Docstore
// stores only.
func (s *Store) PutDoc(ctx context.Context, doc map[string]any) (string, error) {
	if err := s.require("put_doc", blueprint.DocStore); err != nil {
		return "", err
	}
	if err := s.Validate(doc); err != nil {
		return "", err
	}
	id, _ := doc[DocIDField].(string)
	if strings.TrimSpace(id) == "" {
		return "", fault.NewValidationError(s.name, []fault.FieldError{{
			Path:    DocIDField,
			Message: "document must have a non-empty string _id",
		}}).WithAddress(s.Address().String())
	}
	hash, err := s.log.Put(ctx, id, doc)
	if err != nil {
		return "", err
	}
	s.metrics.Write(string(s.kind), string(peer.OpPut))
	return hash, nil
}

// GetDoc returns the document with the given id. Docstore stores only.
func (s *Store) GetDoc(id string) (map[string]any, bool, error) {
	if err := s.require("get_doc", blueprint.DocStore); err != nil {
		return nil, false, err
	}
	v, ok := s.log.Get(id)
	if !ok {
		return nil, false, nil
	}
	doc, _ := v.(map[string]any)
	return doc, doc != nil, nil
}

// Query returns the documents matching pred, ordered by id. A nil pred
// matches every document. Docstore stores only.
func (s *Store) Query(pred func(doc map[string]any) bool) ([]map[string]any, error) {
	if err := s.require("query", blueprint.DocStore); err != nil {
		return nil, err
	}
	all := s.log.All()
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []map[string]any
	for _, id := range ids {
		doc, ok := all[id].(map[string]any)
		if !ok {
			continue
		}
		if pred == nil || pred(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// DeleteDoc removes the document with the given id. Docstore stores only.
func (s *Store) DeleteDoc(ctx context.Context, id string) (string, error) {
	if err := s.require("delete_doc", blueprint.DocStore); err != nil {
		return "", err
	}
	hash, err := s.log.Delete(ctx, id)
	if err != nil {
		return "", err
	}
	s.metrics.Write(string(s.kind), string(peer.OpDelete))
	return hash, nil
}
