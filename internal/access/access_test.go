package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublic_AllowsEveryone(t *testing.T) {
	c := Public()
	assert.Equal(t, TypePublic, c.Type())
	assert.True(t, c.CanAppend("anyone"))
	assert.Equal(t, map[string]any{"type": "public", "write": []any{"*"}}, c.Manifest())
}

func TestWriters_RestrictsToList(t *testing.T) {
	c := NewWriters("bob", "alice", "bob")
	assert.Equal(t, TypeWriters, c.Type())
	assert.Equal(t, []string{"alice", "bob"}, c.IDs())
	assert.True(t, c.CanAppend("alice"))
	assert.False(t, c.CanAppend("mallory"))
}

func TestWriters_WildcardMember(t *testing.T) {
	c := NewWriters("alice", Wildcard)
	assert.True(t, c.CanAppend("mallory"))
}

func TestFromManifest_RoundTrip(t *testing.T) {
	for _, c := range []Controller{Public(), NewWriters("a", "b")} {
		rebuilt, err := FromManifest(c.Manifest())
		require.NoError(t, err)
		assert.Equal(t, c.Manifest(), rebuilt.Manifest())
	}
}

func TestFromManifest_Errors(t *testing.T) {
	_, err := FromManifest(map[string]any{"type": "ethereum"})
	assert.Error(t, err)
	_, err = FromManifest(map[string]any{"type": "writers"})
	assert.Error(t, err)

	c, err := FromManifest(nil)
	require.NoError(t, err)
	assert.Equal(t, TypePublic, c.Type())
}

func TestWritersFactory(t *testing.T) {
	f := WritersFactory("owner", "admin")
	c := f(Props{"owner": "alice"})
	require.NotNil(t, c)
	assert.True(t, c.CanAppend("alice"))
	assert.True(t, c.CanAppend("admin"))

	assert.Nil(t, WritersFactory("owner")(nil))
}

func TestProps_Strings(t *testing.T) {
	p := Props{"a": []any{"x", 1, "y"}, "b": []string{"z"}, "c": "solo"}
	assert.Equal(t, []string{"x", "y"}, p.Strings("a"))
	assert.Equal(t, []string{"z"}, p.Strings("b"))
	assert.Equal(t, []string{"solo"}, p.Strings("c"))
	assert.Nil(t, p.Strings("missing"))
	assert.Equal(t, "solo", p.String("c"))
}
