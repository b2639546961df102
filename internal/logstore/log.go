package logstore

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/roach88/ddb/internal/access"
	"github.com/roach88/ddb/internal/address"
	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/canon"
	"github.com/roach88/ddb/internal/identity"
	"github.com/roach88/ddb/internal/peer"
)

// Log is an opened log. Its index is rebuilt by Load and kept current by
// appends made through the handle.
type Log struct {
	node     *Node
	addr     address.Address
	kind     blueprint.Kind
	ac       access.Controller
	identity *identity.Identity

	mu     sync.RWMutex
	closed bool
	idx    *index
}

var _ peer.LogHandle = (*Log)(nil)

func (n *Node) newLog(addr address.Address, kind blueprint.Kind, ac access.Controller, id *identity.Identity) *Log {
	l := &Log{
		node:     n,
		addr:     addr,
		kind:     kind,
		ac:       ac,
		identity: id,
		idx:      newIndex(),
	}
	n.track(l)
	return l
}

// Address implements peer.LogHandle.
func (l *Log) Address() address.Address { return l.addr }

// Type implements peer.LogHandle.
func (l *Log) Type() blueprint.Kind { return l.kind }

// AccessController returns the controller guarding appends.
func (l *Log) AccessController() access.Controller { return l.ac }

// Load implements peer.LogHandle. Entries that fail verification are
// skipped and logged; the rest are replayed in seq order.
func (l *Log) Load(ctx context.Context) error {
	if err := l.usable(); err != nil {
		return err
	}

	rows, err := l.node.db.QueryContext(ctx, `
		SELECT seq, hash, op, key, payload, identity, signature
		FROM entries
		WHERE log_root = ?
		ORDER BY seq ASC
	`, l.addr.Root)
	if err != nil {
		return fmt.Errorf("load %s: %w", l.addr, err)
	}
	defer rows.Close()

	idx := newIndex()
	skipped := 0
	for rows.Next() {
		var (
			e       peer.Entry
			op      string
			payload string
		)
		if err := rows.Scan(&e.Seq, &e.Hash, &op, &e.Key, &payload, &e.Identity, &e.Signature); err != nil {
			return fmt.Errorf("load %s: scan: %w", l.addr, err)
		}
		e.Op = peer.Op(op)

		if err := l.verify(&e, payload); err != nil {
			skipped++
			l.node.logger.Warn("skipping entry",
				"address", l.addr.String(),
				"seq", e.Seq,
				"reason", err.Error())
			continue
		}
		idx.apply(e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load %s: %w", l.addr, err)
	}

	l.mu.Lock()
	l.idx = idx
	l.mu.Unlock()

	l.node.logger.Debug("log loaded",
		"address", l.addr.String(),
		"entries", len(idx.log),
		"skipped", skipped)
	return nil
}

func (l *Log) verify(e *peer.Entry, payload string) error {
	value, err := canon.Decode([]byte(payload))
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	e.Value = value
	if !allows(l.kind, e.Op) {
		return fmt.Errorf("op %s not valid for %s log", e.Op, l.kind)
	}

	digest, err := entryDigest(l.addr.Root, *e)
	if err != nil {
		return err
	}
	if hex.EncodeToString(digest) != e.Hash {
		return fmt.Errorf("hash mismatch")
	}
	if !identity.Verify(e.Identity, digest, e.Signature) {
		return fmt.Errorf("bad signature")
	}
	if !l.ac.CanAppend(e.Identity) {
		return fmt.Errorf("writer %s not permitted", e.Identity)
	}
	return nil
}

// Get implements peer.LogHandle. The value is a copy; changing it does
// not change the log.
func (l *Log) Get(key string) (any, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.idx.kv[key]
	return canon.Clone(v), ok
}

// All implements peer.LogHandle. Values are copies.
func (l *Log) All() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]any, len(l.idx.kv))
	for k, v := range l.idx.kv {
		out[k] = canon.Clone(v)
	}
	return out
}

// Put implements peer.LogHandle.
func (l *Log) Put(ctx context.Context, key string, value any) (string, error) {
	return l.append(ctx, peer.OpPut, key, value)
}

// Delete implements peer.LogHandle.
func (l *Log) Delete(ctx context.Context, key string) (string, error) {
	return l.append(ctx, peer.OpDelete, key, nil)
}

// Add implements peer.LogHandle.
func (l *Log) Add(ctx context.Context, value any) (string, error) {
	return l.append(ctx, peer.OpAdd, "", value)
}

// Remove implements peer.LogHandle.
func (l *Log) Remove(ctx context.Context, hash string) (string, error) {
	l.mu.RLock()
	_, live := l.idx.live(hash)
	l.mu.RUnlock()
	if !live {
		return "", fmt.Errorf("%w: entry %s", ErrNotFound, hash)
	}
	return l.append(ctx, peer.OpRemove, hash, nil)
}

// Entry implements peer.LogHandle.
func (l *Log) Entry(hash string) (peer.Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.idx.live(hash)
	e.Value = canon.Clone(e.Value)
	return e, ok
}

// Entries implements peer.LogHandle. Feed and eventlog logs return their
// live additions; keyvalue and docstore logs return their full history.
func (l *Log) Entries() []peer.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]peer.Entry, 0, len(l.idx.log))
	for _, e := range l.idx.log {
		switch l.kind {
		case blueprint.Feed, blueprint.EventLog:
			if e.Op != peer.OpAdd || l.idx.removed[e.Hash] {
				continue
			}
		}
		e.Value = canon.Clone(e.Value)
		out = append(out, e)
	}
	return out
}

// Close implements peer.LogHandle.
func (l *Log) Close() error {
	l.markClosed()
	l.node.untrack(l)
	return nil
}

func (l *Log) markClosed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *Log) usable() error {
	if err := l.node.checkStopped(); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}

// append signs and writes one entry, then applies it to the index. The
// handle's write lock is held across the transaction so the index sees
// this handle's appends in seq order.
func (l *Log) append(ctx context.Context, op peer.Op, key string, value any) (string, error) {
	if err := l.usable(); err != nil {
		return "", err
	}
	if !allows(l.kind, op) {
		return "", fmt.Errorf("%w: %s on %s log", ErrUnsupportedOp, op, l.kind)
	}
	if l.identity == nil {
		return "", ErrNoIdentity
	}
	if !l.ac.CanAppend(l.identity.ID) {
		return "", fmt.Errorf("%w: %s on %s", ErrUnauthorized, l.identity.ID, l.addr)
	}

	payload, err := canon.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", l.addr, err)
	}
	normalized, err := canon.Decode(payload)
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", l.addr, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.node.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("append to %s: begin tx: %w", l.addr, err)
	}
	defer tx.Rollback()

	e := peer.Entry{
		Op:       op,
		Key:      key,
		Value:    normalized,
		Identity: l.identity.ID,
	}
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM entries WHERE log_root = ?
	`, l.addr.Root).Scan(&e.Seq); err != nil {
		return "", fmt.Errorf("append to %s: next seq: %w", l.addr, err)
	}

	digest, err := entryDigest(l.addr.Root, e)
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", l.addr, err)
	}
	e.Hash = hex.EncodeToString(digest)
	e.Signature = l.identity.Sign(digest)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entries
		(log_root, seq, hash, op, key, payload, identity, signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		l.addr.Root,
		e.Seq,
		e.Hash,
		string(e.Op),
		e.Key,
		string(payload),
		e.Identity,
		e.Signature,
	); err != nil {
		return "", fmt.Errorf("append to %s: %w", l.addr, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("append to %s: commit: %w", l.addr, err)
	}

	l.idx.apply(e)
	return e.Hash, nil
}

// entryDigest is the domain-separated hash of an entry's signed fields.
func entryDigest(root string, e peer.Entry) ([]byte, error) {
	digest, err := canon.HashValue(canon.DomainEntry, map[string]any{
		"log":      root,
		"seq":      e.Seq,
		"op":       string(e.Op),
		"key":      e.Key,
		"value":    e.Value,
		"identity": e.Identity,
	})
	if err != nil {
		return nil, fmt.Errorf("hash entry: %w", err)
	}
	return digest, nil
}
