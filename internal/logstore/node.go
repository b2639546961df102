package logstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/ddb/internal/access"
	"github.com/roach88/ddb/internal/address"
	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/canon"
	"github.com/roach88/ddb/internal/peer"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (manifests, entries)
// 1 - Added idx_entries_identity for per-writer lookups
const currentSchemaVersion = 1

// Option configures a Node.
type Option func(*Node)

// WithLogger sets the logger used for skipped entries and lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(n *Node) {
		n.logger = l
	}
}

// Node is a peer node whose logs live in one SQLite database.
type Node struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	online  bool
	stopped bool
	handles map[*Log]struct{}
}

var _ peer.Node = (*Node)(nil)

// Open creates or opens the node database at path. The node starts online.
//
// The database is configured with WAL mode, NORMAL synchronous mode, a
// 5-second busy timeout, foreign key enforcement and immediate transaction
// locking. This function is idempotent.
func Open(path string, opts ...Option) (*Node, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_txlock=immediate", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	n := &Node{
		db:      db,
		path:    path,
		logger:  slog.Default(),
		online:  true,
		handles: make(map[*Log]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_entries_identity ON entries(log_root, identity)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Path returns the database path.
func (n *Node) Path() string { return n.path }

// Ready implements peer.Node.
func (n *Node) Ready(ctx context.Context) error {
	if err := n.checkStopped(); err != nil {
		return err
	}
	return n.db.PingContext(ctx)
}

// IsOnline implements peer.Node.
func (n *Node) IsOnline() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online && !n.stopped
}

// Disconnect takes the node offline without closing it. Stop refuses to run
// until Start brings the node back.
func (n *Node) Disconnect() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.online = false
	n.logger.Info("node disconnected", "path", n.path)
}

// Start implements peer.Node.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return ErrClosed
	}
	n.mu.Unlock()

	if err := n.db.PingContext(ctx); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.online = true
	n.logger.Info("node started", "path", n.path)
	return nil
}

// Stop implements peer.Node. It closes every open handle and the database.
func (n *Node) Stop(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return ErrClosed
	}
	if !n.online {
		return ErrOffline
	}
	for h := range n.handles {
		h.markClosed()
	}
	n.handles = nil
	n.stopped = true
	n.online = false
	n.logger.Info("node stopped", "path", n.path)
	return n.db.Close()
}

func (n *Node) checkStopped() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return ErrClosed
	}
	return nil
}

func (n *Node) checkOnline() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return ErrClosed
	}
	if !n.online {
		return ErrOffline
	}
	return nil
}

func (n *Node) track(l *Log) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.handles != nil {
		n.handles[l] = struct{}{}
	}
}

func (n *Node) untrack(l *Log) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.handles, l)
}

// manifest is the record a log's root is derived from.
func manifest(path string, kind blueprint.Kind, ac access.Controller) map[string]any {
	return map[string]any{
		"name":   path,
		"type":   string(kind),
		"access": ac.Manifest(),
	}
}

// Create implements peer.Node.
func (n *Node) Create(ctx context.Context, path string, kind blueprint.Kind, opts peer.CreateOptions) (peer.LogHandle, error) {
	if err := n.checkOnline(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("create log %s: unknown kind %q", path, kind)
	}

	ac := opts.AccessController
	if ac == nil {
		ac = access.Public()
	}

	m := manifest(path, kind, ac)
	digest, err := canon.HashValue(canon.DomainManifest, m)
	if err != nil {
		return nil, fmt.Errorf("create log %s: %w", path, err)
	}
	root, err := address.NewRoot(digest)
	if err != nil {
		return nil, fmt.Errorf("create log %s: %w", path, err)
	}
	addr, err := address.Parse(root + "/" + path)
	if err != nil {
		return nil, fmt.Errorf("create log: %w", err)
	}

	accessJSON, err := canon.Marshal(ac.Manifest())
	if err != nil {
		return nil, fmt.Errorf("create log %s: %w", path, err)
	}

	res, err := n.db.ExecContext(ctx, `
		INSERT INTO manifests (root, name, kind, access)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(root) DO NOTHING
	`, root, path, string(kind), string(accessJSON))
	if err != nil {
		return nil, fmt.Errorf("create log %s: %w", path, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("create log %s: rows affected: %w", path, err)
	}
	if inserted == 0 {
		return nil, fmt.Errorf("%w: %s", ErrExists, addr)
	}

	n.logger.Debug("log created", "address", addr.String(), "kind", kind, "access", ac.Type())
	return n.newLog(addr, kind, ac, opts.Identity), nil
}

// Open implements peer.Node.
func (n *Node) Open(ctx context.Context, addr address.Address, opts peer.OpenOptions) (peer.LogHandle, error) {
	if err := n.checkOnline(); err != nil {
		return nil, err
	}

	var name, kind, accessJSON string
	err := n.db.QueryRowContext(ctx, `
		SELECT name, kind, access FROM manifests WHERE root = ?
	`, addr.Root).Scan(&name, &kind, &accessJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no manifest for %s", ErrNotFound, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", addr, err)
	}
	if name != addr.Path {
		return nil, fmt.Errorf("%w: manifest %s is for %s, not %s", ErrNotFound, addr.Root, name, addr.Path)
	}

	ac := opts.AccessController
	if ac == nil {
		recorded, err := canon.Decode([]byte(accessJSON))
		if err != nil {
			return nil, fmt.Errorf("open log %s: decode access: %w", addr, err)
		}
		m, _ := recorded.(map[string]any)
		ac, err = access.FromManifest(m)
		if err != nil {
			return nil, fmt.Errorf("open log %s: %w", addr, err)
		}
	}

	return n.newLog(addr, blueprint.Kind(kind), ac, opts.Identity), nil
}
