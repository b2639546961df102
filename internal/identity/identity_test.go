package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEphemeral_SignVerify(t *testing.T) {
	id, err := Ephemeral().CreateIdentity(context.Background())
	require.NoError(t, err)
	assert.Len(t, id.ID, 64)

	msg := []byte("entry hash")
	sig := id.Sign(msg)
	assert.True(t, Verify(id.ID, msg, sig))
	assert.False(t, Verify(id.ID, []byte("other"), sig))
	assert.False(t, Verify("zz", msg, sig))

	other, err := Ephemeral().CreateIdentity(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, id.ID, other.ID)
}

func TestKeyFile_CreatesThenReuses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "identity.key")
	p := KeyFile(path)

	first, err := p.CreateIdentity(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := p.CreateIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestKeyFile_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.key")
	require.NoError(t, os.WriteFile(path, []byte("not hex"), 0o600))

	_, err := KeyFile(path).CreateIdentity(context.Background())
	assert.Error(t, err)
}

func TestPassphrase_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, err := Passphrase("correct horse", "ddb-salt-1").CreateIdentity(ctx)
	require.NoError(t, err)
	b, err := Passphrase("correct horse", "ddb-salt-1").CreateIdentity(ctx)
	require.NoError(t, err)
	c, err := Passphrase("correct horse", "ddb-salt-2").CreateIdentity(ctx)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestPassphrase_Rejects(t *testing.T) {
	_, err := Passphrase("", "ddb-salt-1").CreateIdentity(context.Background())
	assert.Error(t, err)
	_, err = Passphrase("pw", "short").CreateIdentity(context.Background())
	assert.Error(t, err)
}

func TestFromSeed_Length(t *testing.T) {
	_, err := FromSeed([]byte{1})
	assert.Error(t, err)
}
