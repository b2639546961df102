package ddb

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ddb/internal/access"
	"github.com/roach88/ddb/internal/address"
	"github.com/roach88/ddb/internal/identity"
	"github.com/roach88/ddb/internal/logstore"
	"github.com/roach88/ddb/internal/resolver"
)

var profileAddress = regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]+/profile\.[0-9a-f-]{36}$`)

// TestEndToEnd_ProfileRoundTrip creates a profile store, writes to it,
// and reopens it from a second manager on the same database.
func TestEndToEnd_ProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ddb.db")
	idp := identity.Passphrase("correct horse battery", "ddb-test-salt")

	first := newSQLiteManager(t, path, idp)
	s, err := first.CreateStore(ctx, profileBlueprint(), nil)
	require.NoError(t, err)

	_, err = s.Put(ctx, "k", "v")
	require.NoError(t, err)
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)

	addr := s.Address().String()
	assert.Regexp(t, profileAddress, addr)
	parsed, err := address.Parse(addr)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), parsed)

	// Same manager: cached instance.
	again, err := first.GetStore(ctx, profileBlueprint(), addr, nil)
	require.NoError(t, err)
	assert.Same(t, s, again)

	// Fresh manager: real reopen through the substrate.
	second := newSQLiteManager(t, path, idp)
	reopened, err := second.GetStore(ctx, profileBlueprint(), addr, nil)
	require.NoError(t, err)
	require.NotNil(t, reopened)
	assert.NotSame(t, s, reopened)
	assert.Equal(t, s.Address(), reopened.Address())

	v, ok, err = reopened.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestEndToEnd_DirectoryResolver(t *testing.T) {
	ctx := context.Background()
	m := newSQLiteManager(t, "", nil)

	directory, err := m.CreateStore(ctx, profileBlueprint(), nil)
	require.NoError(t, err)
	target, err := m.CreateStore(ctx, profileBlueprint(), nil)
	require.NoError(t, err)
	_, err = directory.Put(ctx, "alice", target.Address().String())
	require.NoError(t, err)

	m.AddResolver("user", resolver.Directory{Store: directory})
	got, err := m.GetStore(ctx, profileBlueprint(), "user.alice", nil)
	require.NoError(t, err)
	assert.Same(t, target, got)

	missing, err := m.GetStore(ctx, profileBlueprint(), "user.bob", nil)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEndToEnd_UnauthorizedWriterRejected(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ddb.db")

	owner := newSQLiteManager(t, path, nil)
	bp := commentsBlueprint()
	s, err := owner.CreateStore(ctx, bp, access.Props{"owner": owner.Identity().ID})
	require.NoError(t, err)
	_, err = s.PutDoc(ctx, map[string]any{"_id": "1", "author": "owner", "body": "mine"})
	require.NoError(t, err)

	intruder := newSQLiteManager(t, path, nil)
	theirs, err := intruder.GetStore(ctx, bp, s.Address().String(), nil)
	require.NoError(t, err)

	doc, ok, err := theirs.GetDoc("1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mine", doc["body"])

	_, err = theirs.PutDoc(ctx, map[string]any{"_id": "2", "author": "x", "body": "spam"})
	assert.ErrorIs(t, err, logstore.ErrUnauthorized)
}

func TestEndToEnd_StopRestartsDisconnectedNode(t *testing.T) {
	ctx := context.Background()
	node, err := logstore.Open(filepath.Join(t.TempDir(), "ddb.db"))
	require.NoError(t, err)
	m, err := CreateDatabase(ctx, node, identity.Ephemeral())
	require.NoError(t, err)

	s, err := m.CreateStore(ctx, profileBlueprint(), nil)
	require.NoError(t, err)

	node.Disconnect()
	require.NoError(t, m.Stop(ctx))

	_, err = s.Put(ctx, "k", "v")
	assert.ErrorIs(t, err, logstore.ErrClosed)
}

func TestEndToEnd_FixedWritersReopenKeepsCreatorEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ddb.db")
	bp := profileBlueprint()
	bp.Name = "notes"
	bp.AccessController = access.WritersFactory("writers", "admin-id")

	first := newSQLiteManager(t, path, nil)
	s, err := first.CreateStore(ctx, bp, access.Props{"writers": first.Identity().ID})
	require.NoError(t, err)
	_, err = s.Put(ctx, "k", "v")
	require.NoError(t, err)
	addr := s.Address().String()
	require.NoError(t, first.Stop(ctx))

	second := newSQLiteManager(t, path, nil)
	reopened, err := second.GetStore(ctx, bp, addr, nil)
	require.NoError(t, err)
	require.NotNil(t, reopened)

	v, ok, err := reopened.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)

	// The second identity is not a recorded writer.
	_, err = reopened.Put(ctx, "k", "w")
	assert.ErrorIs(t, err, logstore.ErrUnauthorized)
}
