package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.StoreOpened("keyvalue", SourceCreate)
	m.StoreOpened("keyvalue", SourceCreate)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.Write("feed", "add")
	m.ValidationFailure("profile")
	m.MissingAccessController("profile")
	m.Resolution(ResolvedMissing)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.storesOpened.WithLabelValues("keyvalue", SourceCreate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("feed", "add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationFailures.WithLabelValues("profile")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.missingAccessController.WithLabelValues("profile")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues(ResolvedMissing)))

	n, err := testutil.GatherAndCount(reg, "ddb_manager_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_DoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.StoreOpened("keyvalue", SourceOpen)
		m.CacheLookup(true)
		m.Write("keyvalue", "put")
		m.ValidationFailure("x")
		m.MissingAccessController("x")
		m.Resolution(ResolvedFound)
	})
}
