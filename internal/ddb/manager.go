package ddb

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/ddb/internal/access"
	"github.com/roach88/ddb/internal/address"
	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/fault"
	"github.com/roach88/ddb/internal/identity"
	"github.com/roach88/ddb/internal/metrics"
	"github.com/roach88/ddb/internal/peer"
	"github.com/roach88/ddb/internal/resolver"
	"github.com/roach88/ddb/internal/storecache"
)

// Manager creates, opens and caches stores on one peer node.
//
// Thread-safety: all methods are safe for concurrent use. Concurrent opens
// of the same address share one substrate Open; opens of different
// addresses proceed independently.
type Manager struct {
	node      peer.Node
	identity  *identity.Identity
	resolvers *resolver.Registry
	cache     *storecache.Cache[*Store]
	ids       IDGenerator
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu      sync.RWMutex
	stopped bool
}

// CreateDatabase obtains an identity from idp, waits for node to be ready,
// and returns a manager bound to both. Errors from idp and node are
// returned as is.
func CreateDatabase(ctx context.Context, node peer.Node, idp identity.Provider, opts ...Option) (*Manager, error) {
	id, err := idp.CreateIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := node.Ready(ctx); err != nil {
		return nil, err
	}

	m := &Manager{
		node:     node,
		identity: id,
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.resolvers == nil {
		m.resolvers = resolver.NewRegistry()
	}
	if m.cache == nil {
		m.cache = storecache.New[*Store]()
	}

	m.logger.Info("database ready", "identity", id.ID)
	return m, nil
}

// Identity returns the identity the manager signs with.
func (m *Manager) Identity() *identity.Identity { return m.identity }

// Resolvers returns the manager's resolver registry.
func (m *Manager) Resolvers() *resolver.Registry { return m.resolvers }

// AddResolver registers r under key, replacing any previous resolver.
func (m *Manager) AddResolver(key string, r resolver.Resolver) {
	m.resolvers.Register(key, r)
}

// Stores returns every live store, ordered by address.
func (m *Manager) Stores() []*Store {
	stores := m.cache.Values()
	slices.SortFunc(stores, func(a, b *Store) int {
		return strings.Compare(a.Address().String(), b.Address().String())
	})
	return stores
}

func (m *Manager) checkRunning() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stopped {
		return fault.New(fault.ErrCodeManagerStopped, "manager is stopped")
	}
	return nil
}

// accessController computes the controller for a store. A missing
// controller is not an error: the store is unrestricted and a warning is
// recorded.
func (m *Manager) accessController(bp blueprint.Blueprint, props access.Props) access.Controller {
	ac := bp.Controller(props)
	if ac == nil {
		m.logger.Warn("store has no access controller, writes are unrestricted", "store", bp.Name)
		m.metrics.MissingAccessController(bp.Name)
	}
	return ac
}

// CreateStore creates a new store from bp under a fresh id.
func (m *Manager) CreateStore(ctx context.Context, bp blueprint.Blueprint, props access.Props) (*Store, error) {
	if err := m.checkRunning(); err != nil {
		return nil, err
	}
	if err := bp.Validate(); err != nil {
		return nil, err
	}

	path := bp.Name + "." + m.ids.Generate()
	ac := m.accessController(bp, props)

	log, err := m.node.Create(ctx, path, bp.Kind, peer.CreateOptions{
		AccessController: ac,
		Identity:         m.identity,
	})
	if err != nil {
		return nil, err
	}
	if err := log.Load(ctx); err != nil {
		log.Close()
		return nil, err
	}

	s, err := m.admit(newStore(log, bp, m.metrics))
	if err != nil {
		return nil, err
	}
	m.metrics.StoreOpened(string(bp.Kind), metrics.SourceCreate)
	m.logger.Info("store created",
		"address", s.Address().String(),
		"kind", bp.Kind)
	return s, nil
}

// GetStore opens the store identifier names, using bp to type it.
//
// Identifier is either a canonical address or a resolver identifier
// "<key>.<id>". It returns (nil, nil) when a resolver knows no store for
// the identifier; every other failure is an error.
func (m *Manager) GetStore(ctx context.Context, bp blueprint.Blueprint, identifier string, props access.Props) (*Store, error) {
	if err := m.checkRunning(); err != nil {
		return nil, err
	}
	if identifier == "" {
		return nil, fault.New(fault.ErrCodeInvalidIdentifierForm, "store identifier is empty")
	}

	addr, found, err := m.resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return m.OpenStore(ctx, bp, addr, props)
}

// Resolve maps identifier to a canonical address without opening it.
func (m *Manager) Resolve(ctx context.Context, identifier string) (address.Address, bool, error) {
	if err := m.checkRunning(); err != nil {
		return address.Address{}, false, err
	}
	return m.resolve(ctx, identifier)
}

func (m *Manager) resolve(ctx context.Context, identifier string) (address.Address, bool, error) {
	if address.IsValid(identifier) {
		m.metrics.Resolution(metrics.ResolvedAddress)
		addr, err := address.Parse(identifier)
		return addr, err == nil, err
	}

	addr, found, err := m.resolvers.Resolve(ctx, identifier)
	switch {
	case err != nil:
		m.metrics.Resolution(metrics.ResolvedError)
	case !found:
		m.metrics.Resolution(metrics.ResolvedMissing)
		m.logger.Debug("identifier not resolved", "identifier", identifier)
	default:
		m.metrics.Resolution(metrics.ResolvedFound)
	}
	return addr, found, err
}

// OpenStore opens the store at addr, using bp to type it. A cached store is
// returned as is; otherwise exactly one substrate Open runs for addr no
// matter how many callers ask concurrently.
func (m *Manager) OpenStore(ctx context.Context, bp blueprint.Blueprint, addr address.Address, props access.Props) (*Store, error) {
	if err := m.checkRunning(); err != nil {
		return nil, err
	}
	if bp.Schema == nil {
		return nil, fault.New(fault.ErrCodeSchemaMissing, "blueprint %s has no schema", bp.Name)
	}

	if s, ok := m.cache.Get(addr); ok {
		m.metrics.CacheLookup(true)
		return s, nil
	}
	m.metrics.CacheLookup(false)

	return m.cache.GetOrCreate(ctx, addr, func(ctx context.Context) (*Store, error) {
		s, err := m.open(ctx, bp, addr, props)
		if err != nil {
			return nil, err
		}
		return m.admit(s)
	})
}

// admit caches s, or closes it if the manager stopped while s was being
// opened. Holding the read lock orders every admit before or after Stop.
func (m *Manager) admit(s *Store) (*Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stopped {
		s.log.Close()
		return nil, fault.New(fault.ErrCodeManagerStopped,
			"manager stopped while opening store").WithAddress(s.Address().String())
	}
	cached, inserted := m.cache.Add(s.Address(), s)
	if !inserted {
		// Only possible with a non-unique id generator.
		s.log.Close()
	}
	return cached, nil
}

func (m *Manager) open(ctx context.Context, bp blueprint.Blueprint, addr address.Address, props access.Props) (*Store, error) {
	if addr.Name() != bp.Name {
		return nil, fault.New(fault.ErrCodeWrongBlueprintForStore,
			"store %s cannot be opened with blueprint %s", addr.Name(), bp.Name).WithAddress(addr.String())
	}

	// Without props the controller recorded at creation applies.
	var ac access.Controller
	if props != nil {
		ac = m.accessController(bp, props)
	}
	log, err := m.node.Open(ctx, addr, peer.OpenOptions{
		AccessController: ac,
		Identity:         m.identity,
	})
	if err != nil {
		return nil, err
	}
	if log.Type() != bp.Kind {
		log.Close()
		return nil, fault.New(fault.ErrCodeStoreKindMismatch,
			"log is %s, blueprint %s expects %s", log.Type(), bp.Name, bp.Kind).WithAddress(addr.String())
	}
	if err := log.Load(ctx); err != nil {
		log.Close()
		return nil, err
	}

	m.metrics.StoreOpened(string(bp.Kind), metrics.SourceOpen)
	m.logger.Info("store opened",
		"address", addr.String(),
		"kind", bp.Kind)
	return newStore(log, bp, m.metrics), nil
}

// Stop shuts down every store and the node.
//
// An offline node is restarted first, because the substrate cannot stop
// an offline node cleanly; failure to restart is returned and the manager
// stays stopped. Stop is not retried, and every manager call afterwards
// fails with ErrCodeManagerStopped.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return fault.New(fault.ErrCodeManagerStopped, "manager is stopped")
	}
	m.stopped = true
	m.mu.Unlock()

	if !m.node.IsOnline() {
		m.logger.Info("node offline, restarting before stop")
		if err := m.node.Start(ctx); err != nil {
			return err
		}
	}

	var errs []error
	for _, s := range m.cache.Close() {
		if err := s.log.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.node.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	switch len(errs) {
	case 0:
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}

	m.logger.Info("database stopped")
	return nil
}
