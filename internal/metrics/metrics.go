// Package metrics holds the Prometheus collectors for store management.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ddb"

// Cache lookup results.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Store open sources.
const (
	SourceCreate = "create"
	SourceOpen   = "open"
)

// Resolution results.
const (
	ResolvedAddress = "address"
	ResolvedFound   = "found"
	ResolvedMissing = "missing"
	ResolvedError   = "error"
)

// Metrics are the collectors a manager reports to.
type Metrics struct {
	storesOpened            *prometheus.CounterVec
	cacheLookups            *prometheus.CounterVec
	writes                  *prometheus.CounterVec
	validationFailures      *prometheus.CounterVec
	missingAccessController *prometheus.CounterVec
	resolutions             *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		storesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "stores_opened_total",
			Help:      "Stores instantiated, by log kind and whether created or opened",
		}, []string{"kind", "source"}),

		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "cache_lookups_total",
			Help:      "Store cache lookups by result",
		}, []string{"result"}),

		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Accepted writes by log kind and operation",
		}, []string{"kind", "op"}),

		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "validation_failures_total",
			Help:      "Writes rejected by schema validation, by store name",
		}, []string{"store"}),

		missingAccessController: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "missing_access_controller_total",
			Help:      "Stores created or opened without an access controller",
		}, []string{"store"}),

		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Identifier resolutions by result",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		m.storesOpened,
		m.cacheLookups,
		m.writes,
		m.validationFailures,
		m.missingAccessController,
		m.resolutions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// StoreOpened records a store instantiated from source.
func (m *Metrics) StoreOpened(kind, source string) {
	if m == nil {
		return
	}
	m.storesOpened.WithLabelValues(kind, source).Inc()
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Write records an accepted write.
func (m *Metrics) Write(kind, op string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(kind, op).Inc()
}

// ValidationFailure records a write rejected by the schema.
func (m *Metrics) ValidationFailure(store string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(store).Inc()
}

// MissingAccessController records a store without an access controller.
func (m *Metrics) MissingAccessController(store string) {
	if m == nil {
		return
	}
	m.missingAccessController.WithLabelValues(store).Inc()
}

// Resolution records the result of resolving an identifier.
func (m *Metrics) Resolution(result string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(result).Inc()
}
