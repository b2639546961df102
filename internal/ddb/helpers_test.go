package ddb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ddb/internal/access"
	"github.com/roach88/ddb/internal/blueprint"
	"github.com/roach88/ddb/internal/identity"
	"github.com/roach88/ddb/internal/logstore"
	"github.com/roach88/ddb/internal/schema"
	"github.com/roach88/ddb/internal/testutil"
)

func profileBlueprint() blueprint.Blueprint {
	return blueprint.Blueprint{
		Name:             "profile",
		Schema:           schema.MustCUE(`string | { name: string & != "", age?: int & >=0 }`),
		AccessController: access.PublicFactory(),
		Kind:             blueprint.KeyValue,
	}
}

func postsBlueprint() blueprint.Blueprint {
	return blueprint.Blueprint{
		Name:             "posts",
		Schema:           schema.MustCUE(`{ title: string, body?: string }`),
		AccessController: access.PublicFactory(),
		Kind:             blueprint.Feed,
	}
}

func eventsBlueprint() blueprint.Blueprint {
	return blueprint.Blueprint{
		Name:             "events",
		Schema:           schema.Any(),
		AccessController: access.PublicFactory(),
		Kind:             blueprint.EventLog,
	}
}

type comment struct {
	ID     string `json:"_id"`
	Author string `json:"author"`
	Body   string `json:"body"`
}

func commentsBlueprint() blueprint.Blueprint {
	return blueprint.Blueprint{
		Name:             "comments",
		Schema:           schema.MustReflect(&comment{}),
		AccessController: access.WritersFactory("owner"),
		Kind:             blueprint.DocStore,
	}
}

// newFakeManager returns a manager over an in-memory fake node.
func newFakeManager(t *testing.T, opts ...Option) (*Manager, *testutil.FakeNode) {
	t.Helper()
	node := testutil.NewFakeNode()
	opts = append([]Option{WithIDGenerator(testutil.NewSequenceIDGenerator("id"))}, opts...)
	m, err := CreateDatabase(context.Background(), node, identity.Ephemeral(), opts...)
	require.NoError(t, err)
	return m, node
}

// newSQLiteManager returns a manager over a logstore node in a temp dir.
func newSQLiteManager(t *testing.T, path string, idp identity.Provider, opts ...Option) *Manager {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "ddb.db")
	}
	node, err := logstore.Open(path)
	require.NoError(t, err)
	if idp == nil {
		idp = identity.Ephemeral()
	}
	m, err := CreateDatabase(context.Background(), node, idp, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		// Tests that stop the manager themselves get ManagerStopped here.
		_ = m.Stop(context.Background())
	})
	return m
}
