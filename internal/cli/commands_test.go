package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resolvedAddress = "QmS6ppKmfnbzG9rLMjgpXjSZfAnifaB1unWP4DcMSJo9kU/profile.alice"

// writeConfig writes a config with one blueprint of each kind and a
// persistent identity, all under a fresh temp dir.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := `
node:
  path: ` + filepath.Join(dir, "ddb.db") + `
identity:
  key_file: ` + filepath.Join(dir, "identity.key") + `
logging:
  level: warn
resolvers:
  static:
    user:
      alice: ` + resolvedAddress + `
blueprints:
  - name: profile
    kind: keyvalue
    schema: 'string | { name: string & != "", age?: int & >=0 }'
    access:
      type: public
  - name: posts
    kind: feed
    schema: '{ title: string }'
    access:
      type: writers
  - name: comments
    kind: docstore
    schema_format: jsonschema
    schema: |
      {"type": "object", "required": ["_id", "body"],
       "properties": {"_id": {"type": "string"}, "body": {"type": "string"}}}
`
	path := filepath.Join(dir, "ddb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func createStore(t *testing.T, cfg, bp string) string {
	t.Helper()
	out, err := run(t, "--config", cfg, "--format", "json", "create", bp)
	require.NoError(t, err, out)

	var resp struct {
		Status string       `json:"status"`
		Data   CreateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, resp.Data.Address, "/"+bp+".")
	return resp.Data.Address
}

func TestBlueprintsCommand(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "--config", cfg, "blueprints")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "comments")
	assert.Contains(t, lines[1], "jsonschema")
	assert.Contains(t, lines[3], "profile")
	assert.Contains(t, lines[3], "keyvalue")
}

func TestKeyValueRoundTrip(t *testing.T) {
	cfg := writeConfig(t)
	addr := createStore(t, cfg, "profile")

	_, err := run(t, "--config", cfg, "put", "profile", addr, "alice", `{"name": "Alice", "age": 30}`)
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "get", "profile", addr, "alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Alice", "age": 30}`, out)

	out, err = run(t, "--config", cfg, "--format", "json", "entries", "profile", addr)
	require.NoError(t, err)
	var resp struct {
		Data []EntryInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "put", resp.Data[0].Op)
	assert.Equal(t, "alice", resp.Data[0].Key)
}

func TestPutRejectedBySchema(t *testing.T) {
	cfg := writeConfig(t)
	addr := createStore(t, cfg, "profile")

	out, err := run(t, "--config", cfg, "put", "profile", addr, "bob", `{"name": ""}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [SCHEMA_VALIDATION]")

	out, err = run(t, "--config", cfg, "get", "profile", addr, "bob")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [NOT_FOUND]")
}

func TestFeedAddAndEntries(t *testing.T) {
	cfg := writeConfig(t)
	addr := createStore(t, cfg, "posts")

	for _, title := range []string{"one", "two", "three"} {
		_, err := run(t, "--config", cfg, "add", "posts", addr, `{"title": "`+title+`"}`)
		require.NoError(t, err)
	}

	out, err := run(t, "--config", cfg, "entries", "posts", addr, "--reverse", "-n", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"three"`)
	assert.Contains(t, lines[1], `"two"`)
}

func TestDocStorePutUsesKeyAsID(t *testing.T) {
	cfg := writeConfig(t)
	addr := createStore(t, cfg, "comments")

	_, err := run(t, "--config", cfg, "put", "comments", addr, "c1", `{"body": "hello"}`)
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "get", "comments", addr, "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id": "c1", "body": "hello"}`, out)

	out, err = run(t, "--config", cfg, "put", "comments", addr, "c2", `"not an object"`)
	require.Error(t, err)
	assert.Contains(t, out, "Error [INVALID_JSON]")
}

func TestUnsupportedOperation(t *testing.T) {
	cfg := writeConfig(t)
	addr := createStore(t, cfg, "profile")

	out, err := run(t, "--config", cfg, "add", "profile", addr, `"x"`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "UNSUPPORTED_OPERATION")
}

func TestResolveCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "resolve", "user.alice")
	require.NoError(t, err)
	assert.Equal(t, resolvedAddress+"\n", out)

	out, err = run(t, "--config", cfg, "resolve", "user.bob")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "NOT_FOUND")

	out, err = run(t, "--config", cfg, "--format", "json", "resolve", "group.x")
	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RESOLVER_NOT_FOUND", resp.Error.Code)
}

func TestValidateCommand(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "validate", "profile", `{"name": "x"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Valid profile document")

	out, err = run(t, "--config", cfg, "--format", "json", "validate", "profile", `{"name": "x", "age": -1}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.NotEmpty(t, resp.Data.Errors)
}

func TestCommandErrors(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "create", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "BLUEPRINT_NOT_FOUND")

	out, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "blueprints")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [CONFIG]")

	out, err = run(t, "--config", cfg, "validate", "profile", `{not json`)
	require.Error(t, err)
	assert.Contains(t, out, "INVALID_JSON")

	out, err = run(t, "--config", cfg, "get", "profile", "not-an-address", "k")
	require.Error(t, err)
	assert.Contains(t, out, "INVALID_IDENTIFIER_FORM")
}

func TestDBFlagOverridesConfig(t *testing.T) {
	cfg := writeConfig(t)
	db := filepath.Join(t.TempDir(), "other.db")

	_, err := run(t, "--config", cfg, "--db", db, "create", "profile")
	require.NoError(t, err)
	_, err = os.Stat(db)
	assert.NoError(t, err)
}

func TestFixedWritersStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	content := `
node:
  path: ` + filepath.Join(dir, "ddb.db") + `
identity:
  key_file: ` + filepath.Join(dir, "identity.key") + `
logging:
  level: error
blueprints:
  - name: notes
    kind: keyvalue
    schema: 'string'
    access:
      type: writers
      writers: [admin-id]
`
	cfg := filepath.Join(dir, "ddb.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o600))

	addr := createStore(t, cfg, "notes")
	_, err := run(t, "--config", cfg, "put", "notes", addr, "k", `"v"`)
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "get", "notes", addr, "k")
	require.NoError(t, err)
	assert.Equal(t, "\"v\"\n", out)
}
