package testutil

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/ddb/internal/address"
	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/peer"
)

// ErrFakeNotFound is returned by FakeNode.Open for unknown addresses.
var ErrFakeNotFound = errors.New("fake node: log not found")

// FakeNode is an in-memory peer.Node that records how it is called.
//
// Logs are shared between every handle opened for the same address, so a
// reopen sees earlier writes without a real substrate.
type FakeNode struct {
	mu       sync.Mutex
	online   bool
	stopped  bool
	logs     map[string]*fakeLogData
	openGate chan struct{}

	// Errors returned by the corresponding calls when set.
	ReadyErr error
	StartErr error
	StopErr  error

	creates atomic.Int32
	opens   atomic.Int32
	starts  atomic.Int32
	stops   atomic.Int32
	puts    atomic.Int32
	closes  atomic.Int32
}

var _ peer.Node = (*FakeNode)(nil)

// NewFakeNode returns an online node with no logs.
func NewFakeNode() *FakeNode {
	return &FakeNode{online: true, logs: make(map[string]*fakeLogData)}
}

// Counters.
func (n *FakeNode) CreateCalls() int { return int(n.creates.Load()) }
func (n *FakeNode) OpenCalls() int   { return int(n.opens.Load()) }
func (n *FakeNode) StartCalls() int  { return int(n.starts.Load()) }
func (n *FakeNode) StopCalls() int   { return int(n.stops.Load()) }
func (n *FakeNode) PutCalls() int    { return int(n.puts.Load()) }
func (n *FakeNode) CloseCalls() int  { return int(n.closes.Load()) }

// SetOnline sets the value IsOnline reports.
func (n *FakeNode) SetOnline(online bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.online = online
}

// GateOpens makes every Open block until the returned function is called.
func (n *FakeNode) GateOpens() (release func()) {
	gate := make(chan struct{})
	n.mu.Lock()
	n.openGate = gate
	n.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// Seed adds a log at path reporting kind, as if another peer had created
// it, and returns its address.
func (n *FakeNode) Seed(path string, kind blueprint.Kind) address.Address {
	addr := fakeAddress(path, kind)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logs[addr.Key()] = newFakeLogData(addr, kind)
	return addr
}

// Stopped reports whether Stop succeeded.
func (n *FakeNode) Stopped() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stopped
}

func fakeAddress(path string, kind blueprint.Kind) address.Address {
	sum := sha256.Sum256([]byte(string(kind) + "\x00" + path))
	root, err := address.NewRoot(sum[:])
	if err != nil {
		panic(err)
	}
	return address.Address{Root: root, Path: path}
}

// Ready implements peer.Node.
func (n *FakeNode) Ready(context.Context) error { return n.ReadyErr }

// IsOnline implements peer.Node.
func (n *FakeNode) IsOnline() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online
}

// Start implements peer.Node.
func (n *FakeNode) Start(context.Context) error {
	n.starts.Add(1)
	if n.StartErr != nil {
		return n.StartErr
	}
	n.SetOnline(true)
	return nil
}

// Stop implements peer.Node. Like a real substrate it refuses to stop
// while offline.
func (n *FakeNode) Stop(context.Context) error {
	n.stops.Add(1)
	if n.StopErr != nil {
		return n.StopErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.online {
		return errors.New("fake node: stop while offline")
	}
	n.stopped = true
	return nil
}

// Create implements peer.Node.
func (n *FakeNode) Create(_ context.Context, path string, kind blueprint.Kind, _ peer.CreateOptions) (peer.LogHandle, error) {
	n.creates.Add(1)
	addr := fakeAddress(path, kind)
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.logs[addr.Key()]; exists {
		return nil, fmt.Errorf("fake node: %s exists", addr)
	}
	data := newFakeLogData(addr, kind)
	n.logs[addr.Key()] = data
	return &FakeLog{node: n, data: data}, nil
}

// Open implements peer.Node.
func (n *FakeNode) Open(ctx context.Context, addr address.Address, _ peer.OpenOptions) (peer.LogHandle, error) {
	n.opens.Add(1)

	n.mu.Lock()
	gate := n.openGate
	n.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	data, ok := n.logs[addr.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFakeNotFound, addr)
	}
	return &FakeLog{node: n, data: data}, nil
}

type fakeLogData struct {
	mu      sync.RWMutex
	addr    address.Address
	kind    blueprint.Kind
	kv      map[string]any
	entries []peer.Entry
}

func newFakeLogData(addr address.Address, kind blueprint.Kind) *fakeLogData {
	return &fakeLogData{addr: addr, kind: kind, kv: make(map[string]any)}
}

// FakeLog is a handle on an in-memory log. It does not sign entries or
// enforce access control.
type FakeLog struct {
	node *FakeNode
	data *fakeLogData
}

var _ peer.LogHandle = (*FakeLog)(nil)

func (l *FakeLog) Address() address.Address { return l.data.addr }
func (l *FakeLog) Type() blueprint.Kind     { return l.data.kind }
func (l *FakeLog) Load(context.Context) error {
	return nil
}

func (l *FakeLog) Get(key string) (any, bool) {
	l.data.mu.RLock()
	defer l.data.mu.RUnlock()
	v, ok := l.data.kv[key]
	return v, ok
}

func (l *FakeLog) All() map[string]any {
	l.data.mu.RLock()
	defer l.data.mu.RUnlock()
	return maps.Clone(l.data.kv)
}

func (l *FakeLog) append(op peer.Op, key string, value any) string {
	l.data.mu.Lock()
	defer l.data.mu.Unlock()
	seq := int64(len(l.data.entries) + 1)
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(fmt.Sprintf("%s/%d", l.data.addr, seq))))
	l.data.entries = append(l.data.entries, peer.Entry{Seq: seq, Hash: hash, Op: op, Key: key, Value: value})
	switch op {
	case peer.OpPut:
		l.data.kv[key] = value
	case peer.OpDelete:
		delete(l.data.kv, key)
	}
	return hash
}

func (l *FakeLog) Put(_ context.Context, key string, value any) (string, error) {
	l.node.puts.Add(1)
	return l.append(peer.OpPut, key, value), nil
}

func (l *FakeLog) Delete(_ context.Context, key string) (string, error) {
	return l.append(peer.OpDelete, key, nil), nil
}

func (l *FakeLog) Add(_ context.Context, value any) (string, error) {
	return l.append(peer.OpAdd, "", value), nil
}

func (l *FakeLog) Remove(_ context.Context, hash string) (string, error) {
	return l.append(peer.OpRemove, hash, nil), nil
}

func (l *FakeLog) removed() map[string]bool {
	out := make(map[string]bool)
	for _, e := range l.data.entries {
		if e.Op == peer.OpRemove {
			out[e.Key] = true
		}
	}
	return out
}

func (l *FakeLog) Entry(hash string) (peer.Entry, bool) {
	l.data.mu.RLock()
	defer l.data.mu.RUnlock()
	if l.removed()[hash] {
		return peer.Entry{}, false
	}
	i := slices.IndexFunc(l.data.entries, func(e peer.Entry) bool { return e.Hash == hash })
	if i < 0 {
		return peer.Entry{}, false
	}
	return l.data.entries[i], true
}

func (l *FakeLog) Entries() []peer.Entry {
	l.data.mu.RLock()
	defer l.data.mu.RUnlock()
	removed := l.removed()
	var out []peer.Entry
	for _, e := range l.data.entries {
		if e.Op == peer.OpAdd && !removed[e.Hash] {
			out = append(out, e)
		}
	}
	return out
}

func (l *FakeLog) Close() error {
	l.node.closes.Add(1)
	return nil
}
