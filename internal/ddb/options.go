package ddb

import (
	"log/slog"

	"github.com/roach88/ddb/internal/metrics"
	"github.com/roach88/ddb/internal/resolver"
	"github.com/roach88/ddb/internal/storecache"
)

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator sets the generator for new store ids.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) {
		m.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics sets the metrics sink. Default: none.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithResolvers uses an existing resolver registry, e.g. one shared with
// another manager.
func WithResolvers(r *resolver.Registry) Option {
	return func(m *Manager) {
		m.resolvers = r
	}
}

// WithCache uses an existing store cache. Managers sharing a cache share
// store instances.
func WithCache(c *storecache.Cache[*Store]) Option {
	return func(m *Manager) {
		m.cache = c
	}
}
