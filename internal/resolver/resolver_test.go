package resolver

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ddb/internal/address"
	"github.com/roach88/ddb/internal/fault"
)

func testAddress(t *testing.T, path string) string {
	t.Helper()
	sum := sha256.Sum256([]byte(path))
	root, err := address.NewRoot(sum[:])
	require.NoError(t, err)
	return root + "/" + path
}

func TestRegistry_Resolve(t *testing.T) {
	ctx := context.Background()
	want := testAddress(t, "profile.1")

	r := NewRegistry()
	r.Register("user", Static{"alice": want})

	got, found, err := r.Resolve(ctx, "user.alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got.String())
}

func TestRegistry_SplitsOnFirstDot(t *testing.T) {
	var seen string
	r := NewRegistry()
	r.Register("user", Func(func(_ context.Context, id string) (string, bool, error) {
		seen = id
		return "", false, nil
	}))

	_, found, err := r.Resolve(context.Background(), "user.alice.smith")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "alice.smith", seen)
}

func TestRegistry_Miss(t *testing.T) {
	r := NewRegistry()
	r.Register("user", Static{})

	got, found, err := r.Resolve(context.Background(), "user.bob")
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, got.IsZero())
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry()
	r.Register("user", Static{"eve": "not an address"})

	tests := []struct {
		identifier string
		code       fault.Code
	}{
		{"", fault.ErrCodeInvalidIdentifierForm},
		{"user", fault.ErrCodeInvalidIdentifierForm},
		{".alice", fault.ErrCodeInvalidIdentifierForm},
		{"user.", fault.ErrCodeInvalidIdentifierForm},
		{"group.admins", fault.ErrCodeResolverNotFound},
		{"user.eve", fault.ErrCodeResolvedAddressInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			_, _, err := r.Resolve(context.Background(), tt.identifier)
			assert.True(t, fault.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestRegistry_PropagatesResolverError(t *testing.T) {
	boom := errors.New("directory offline")
	r := NewRegistry()
	r.Register("user", Func(func(context.Context, string) (string, bool, error) {
		return "", false, boom
	}))

	_, _, err := r.Resolve(context.Background(), "user.alice")
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_LastWriteWins(t *testing.T) {
	first := testAddress(t, "profile.1")
	second := testAddress(t, "profile.2")

	r := NewRegistry()
	r.Register("user", Static{"alice": first})
	r.Register("user", Static{"alice": second})
	r.Register("group", Static{})

	got, _, err := r.Resolve(context.Background(), "user.alice")
	require.NoError(t, err)
	assert.Equal(t, second, got.String())
	assert.Equal(t, []string{"group", "user"}, r.Keys())
}

type mapLookup map[string]any

func (m mapLookup) Get(key string) (any, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func TestDirectory(t *testing.T) {
	want := testAddress(t, "profile.9")
	d := Directory{Store: mapLookup{"alice": want, "bob": 42}}

	addr, found, err := d.Resolve(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, addr)

	_, found, err = d.Resolve(context.Background(), "carol")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = d.Resolve(context.Background(), "bob")
	assert.Error(t, err)
}

func TestCached_MemoisesHitsAndMisses(t *testing.T) {
	var calls atomic.Int32
	want := testAddress(t, "profile.3")
	next := Func(func(_ context.Context, id string) (string, bool, error) {
		calls.Add(1)
		if id == "alice" {
			return want, true, nil
		}
		return "", false, nil
	})

	c := NewCached(next, time.Minute)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		addr, found, err := c.Resolve(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, want, addr)

		_, found, err = c.Resolve(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, int32(2), calls.Load())

	c.Forget("alice")
	_, _, err := c.Resolve(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	var calls atomic.Int32
	c := NewCached(Func(func(context.Context, string) (string, bool, error) {
		calls.Add(1)
		return "", false, errors.New("transient")
	}), time.Minute)

	_, _, err := c.Resolve(context.Background(), "alice")
	assert.Error(t, err)
	_, _, err = c.Resolve(context.Background(), "alice")
	assert.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCached_NonPositiveTTLNeverExpires(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Second} {
		t.Run(ttl.String(), func(t *testing.T) {
			var calls atomic.Int32
			want := testAddress(t, "profile.3")
			c := NewCached(Func(func(context.Context, string) (string, bool, error) {
				calls.Add(1)
				return want, true, nil
			}), ttl)

			for i := 0; i < 2; i++ {
				addr, found, err := c.Resolve(context.Background(), "alice")
				require.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, want, addr)
			}
			assert.Equal(t, int32(1), calls.Load())

			c.Forget("alice")
			_, _, err := c.Resolve(context.Background(), "alice")
			require.NoError(t, err)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}
