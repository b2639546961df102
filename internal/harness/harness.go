package harness

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/roach88/ddb/internal/access"
	"github.com/roach88/ddb/internal/address"
	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/canon"
	"github.com/roach88/ddb/internal/config"
	"github.com/roach88/ddb/internal/ddb"
	"github.com/roach88/ddb/internal/fault"
	"github.com/roach88/ddb/internal/identity"
	"github.com/roach88/ddb/internal/logstore"
	"github.com/roach88/ddb/internal/testutil"
)

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true if every step met its expectation.
	Pass bool `json:"pass"`

	// Trace has one line per step.
	Trace []string `json:"trace"`

	// Errors describes every unmet expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []string{}, Errors: []string{}}
}

// AddError records an unmet expectation and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

func (r *Result) trace(format string, args ...any) {
	r.Trace = append(r.Trace, fmt.Sprintf(format, args...))
}

// TraceText is the trace as newline-terminated lines.
func (r *Result) TraceText() string {
	if len(r.Trace) == 0 {
		return ""
	}
	return strings.Join(r.Trace, "\n") + "\n"
}

// Option configures Run.
type Option func(*Harness)

// WithDir runs the scenario in dir instead of a fresh temp directory.
// The directory is not removed afterwards.
func WithDir(dir string) Option {
	return func(h *Harness) {
		h.dir = dir
	}
}

// WithLogger sets the logger for the manager and node. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Harness executes one scenario. It is not safe for concurrent use.
type Harness struct {
	dir    string
	logger *slog.Logger

	blueprints *blueprint.Registry
	idp        identity.Provider
	ids        *testutil.SequenceIDGenerator

	manager *ddb.Manager

	// addrs and bps outlive reopen; stores does not.
	addrs  map[string]address.Address
	bps    map[string]blueprint.Blueprint
	stores map[string]*ddb.Store
}

// harnessSeed derives the identity every scenario writes with.
var harnessSeed = sha256.Sum256([]byte("ddb scenario harness"))

// Run executes a scenario against a fresh database.
//
// Unmet expectations are reported in the result; the error is reserved
// for failures to run the scenario at all.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		ids:    testutil.NewSequenceIDGenerator("id"),
		idp: identity.ProviderFunc(func(context.Context) (*identity.Identity, error) {
			return identity.FromSeed(harnessSeed[:])
		}),
		addrs:  make(map[string]address.Address),
		bps:    make(map[string]blueprint.Blueprint),
		stores: make(map[string]*ddb.Store),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.dir == "" {
		dir, err := os.MkdirTemp("", "ddb-harness-")
		if err != nil {
			return nil, fmt.Errorf("failed to create scenario dir: %w", err)
		}
		defer os.RemoveAll(dir)
		h.dir = dir
	}

	cfg := &config.Config{Blueprints: scenario.Blueprints}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build blueprints: %w", err)
	}
	h.blueprints = reg

	if err := h.start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if h.manager != nil {
			_ = h.manager.Stop(ctx)
		}
	}()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return result, nil
}

func (h *Harness) start(ctx context.Context) error {
	node, err := logstore.Open(filepath.Join(h.dir, "scenario.db"), logstore.WithLogger(h.logger))
	if err != nil {
		return fmt.Errorf("failed to open node: %w", err)
	}
	m, err := ddb.CreateDatabase(ctx, node, h.idp,
		ddb.WithIDGenerator(h.ids),
		ddb.WithLogger(h.logger))
	if err != nil {
		_ = node.Stop(ctx)
		return fmt.Errorf("failed to create database: %w", err)
	}
	h.manager = m
	return nil
}

func (h *Harness) reopen(ctx context.Context) error {
	err := h.manager.Stop(ctx)
	h.manager = nil
	h.stores = make(map[string]*ddb.Store)
	if err != nil {
		return fmt.Errorf("failed to stop database: %w", err)
	}
	return h.start(ctx)
}

func (h *Harness) runStep(ctx context.Context, n int, step Step, result *Result) error {
	switch step.Op() {
	case "create":
		alias := step.As
		if alias == "" {
			alias = step.Create
		}
		s, err := h.create(ctx, step.Create, alias)
		h.check(n, step, err, result, fmt.Sprintf("create %s as %s", step.Create, alias), pathOf(s))
	case "open":
		alias := step.As
		if alias == "" {
			alias = step.Open.Store
		}
		s, err := h.open(ctx, step.Open.Blueprint, step.Open.Store, alias)
		h.check(n, step, err, result, fmt.Sprintf("open %s %s", step.Open.Blueprint, step.Open.Store), pathOf(s))
	case "put":
		err := h.put(ctx, step.Put)
		h.check(n, step, err, result, fmt.Sprintf("put %s %s %s", step.Put.Store, step.Put.Key, render(step.Put.Value)), "ok")
	case "get":
		h.get(ctx, n, step, result)
	case "add":
		err := h.add(ctx, step.Add)
		h.check(n, step, err, result, fmt.Sprintf("add %s %s", step.Add.Store, render(step.Add.Value)), "ok")
	case "delete":
		err := h.delete(ctx, step.Delete)
		h.check(n, step, err, result, fmt.Sprintf("delete %s %s", step.Delete.Store, step.Delete.Key), "ok")
	case "entries":
		h.entries(ctx, n, step, result)
	case "reopen":
		if err := h.reopen(ctx); err != nil {
			return err
		}
		result.trace("%d reopen", n)
	default:
		return fmt.Errorf("no operation")
	}
	return nil
}

// check records "<n> <head>: <outcome>", or the error code in place of the
// outcome, and compares the result with expect_error.
func (h *Harness) check(n int, step Step, err error, result *Result, head, outcome string) {
	if err != nil {
		code := errorCode(err)
		result.trace("%d %s: error %s", n, head, code)
		if step.ExpectError == "" {
			result.AddError("step %d: unexpected error: %v", n, err)
		} else if code != step.ExpectError {
			result.AddError("step %d: expected error %s, got %s (%v)", n, step.ExpectError, code, err)
		}
		return
	}
	result.trace("%d %s: %s", n, head, outcome)
	if step.ExpectError != "" {
		result.AddError("step %d: expected error %s, got success", n, step.ExpectError)
	}
}

func (h *Harness) create(ctx context.Context, bpName, alias string) (*ddb.Store, error) {
	bp, err := h.blueprints.Get(bpName)
	if err != nil {
		return nil, err
	}
	s, err := h.manager.CreateStore(ctx, bp, access.Props{config.WritersProp: h.manager.Identity().ID})
	if err != nil {
		return nil, err
	}
	h.remember(alias, bp, s)
	return s, nil
}

func (h *Harness) open(ctx context.Context, bpName, ref, alias string) (*ddb.Store, error) {
	bp, err := h.blueprints.Get(bpName)
	if err != nil {
		return nil, err
	}
	identifier := ref
	if addr, ok := h.addrs[ref]; ok {
		identifier = addr.String()
	}
	s, err := h.manager.GetStore(ctx, bp, identifier, nil)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%s: %w", ref, errMissing)
	}
	h.remember(alias, bp, s)
	return s, nil
}

func (h *Harness) remember(alias string, bp blueprint.Blueprint, s *ddb.Store) {
	h.addrs[alias] = s.Address()
	h.bps[alias] = bp
	h.stores[alias] = s
}

// store returns the store named alias, reopening it after a reopen step.
func (h *Harness) store(ctx context.Context, alias string) (*ddb.Store, error) {
	if s, ok := h.stores[alias]; ok {
		return s, nil
	}
	addr, ok := h.addrs[alias]
	if !ok {
		return nil, fmt.Errorf("unknown store %q", alias)
	}
	s, err := h.manager.OpenStore(ctx, h.bps[alias], addr, nil)
	if err != nil {
		return nil, err
	}
	h.stores[alias] = s
	return s, nil
}

func (h *Harness) put(ctx context.Context, step *PutStep) error {
	s, err := h.store(ctx, step.Store)
	if err != nil {
		return err
	}
	if s.Kind() != blueprint.DocStore {
		_, err = s.Put(ctx, step.Key, step.Value)
		return err
	}
	value, ok := step.Value.(map[string]any)
	if !ok {
		return fmt.Errorf("docstore value must be a mapping, got %T", step.Value)
	}
	doc := maps.Clone(value)
	if _, has := doc[ddb.DocIDField]; !has {
		doc[ddb.DocIDField] = step.Key
	}
	_, err = s.PutDoc(ctx, doc)
	return err
}

func (h *Harness) add(ctx context.Context, step *AddStep) error {
	s, err := h.store(ctx, step.Store)
	if err != nil {
		return err
	}
	_, err = s.Add(ctx, step.Value)
	return err
}

func (h *Harness) delete(ctx context.Context, step *KeyStep) error {
	s, err := h.store(ctx, step.Store)
	if err != nil {
		return err
	}
	if s.Kind() == blueprint.DocStore {
		_, err = s.DeleteDoc(ctx, step.Key)
	} else {
		_, err = s.Delete(ctx, step.Key)
	}
	return err
}

func (h *Harness) get(ctx context.Context, n int, step Step, result *Result) {
	head := fmt.Sprintf("get %s %s", step.Get.Store, step.Get.Key)
	value, found, err := h.lookup(ctx, step.Get)
	if err != nil {
		h.check(n, step, err, result, head, "")
		return
	}

	shown := "missing"
	if found {
		shown = render(value)
	}
	h.check(n, step, nil, result, head, shown)

	switch {
	case step.ExpectMissing && found:
		result.AddError("step %d: expected %s to be missing, got %s", n, step.Get.Key, shown)
	case step.Expect != nil && !found:
		result.AddError("step %d: expected %s, got missing", n, render(step.Expect))
	case step.Expect != nil && render(step.Expect) != shown:
		result.AddError("step %d: expected %s, got %s", n, render(step.Expect), shown)
	}
}

func (h *Harness) lookup(ctx context.Context, step *KeyStep) (any, bool, error) {
	s, err := h.store(ctx, step.Store)
	if err != nil {
		return nil, false, err
	}
	if s.Kind() == blueprint.DocStore {
		return s.GetDoc(step.Key)
	}
	return s.Get(step.Key)
}

func (h *Harness) entries(ctx context.Context, n int, step Step, result *Result) {
	head := "entries " + step.Entries
	s, err := h.store(ctx, step.Entries)
	if err != nil {
		h.check(n, step, err, result, head, "")
		return
	}

	var count int
	switch s.Kind() {
	case blueprint.Feed, blueprint.EventLog:
		entries, err := s.Iterate(ddb.IterateOptions{})
		if err != nil {
			h.check(n, step, err, result, head, "")
			return
		}
		count = len(entries)
	default:
		count = len(s.History())
	}

	h.check(n, step, nil, result, head, strconv.Itoa(count))
	if want, ok := step.Expect.(int); ok && want != count {
		result.AddError("step %d: expected %d entries, got %d", n, want, count)
	}
}

var errMissing = errors.New("not found")

// errorCode names err for the trace: its fault code, or a stable name for
// substrate and harness errors.
func errorCode(err error) string {
	if code := fault.CodeOf(err); code != "" {
		return string(code)
	}
	switch {
	case errors.Is(err, errMissing), errors.Is(err, logstore.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, logstore.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, logstore.ErrClosed):
		return "CLOSED"
	default:
		return "ERROR"
	}
}

// render is the canonical JSON of v, as trace lines show values.
func render(v any) string {
	data, err := canon.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func pathOf(s *ddb.Store) string {
	if s == nil {
		return "-"
	}
	return s.Address().Path
}
