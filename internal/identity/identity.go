// Package identity provides the signing identities that author log entries.
package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Identity is an ed25519 keypair. ID is the hex-encoded public key.
type Identity struct {
	ID        string
	PublicKey ed25519.PublicKey
	private   ed25519.PrivateKey
}

// FromSeed derives an identity from a 32-byte ed25519 seed.
func FromSeed(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Identity{
		ID:        hex.EncodeToString(pub),
		PublicKey: pub,
		private:   priv,
	}, nil
}

// Sign signs msg.
func (id *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(id.private, msg)
}

// Verify checks a signature made by the identity whose ID is publicID.
func Verify(publicID string, msg, sig []byte) bool {
	pub, err := hex.DecodeString(publicID)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}

// Provider supplies the identity a manager signs with.
type Provider interface {
	CreateIdentity(ctx context.Context) (*Identity, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (*Identity, error)

// CreateIdentity implements Provider.
func (f ProviderFunc) CreateIdentity(ctx context.Context) (*Identity, error) {
	return f(ctx)
}

// Ephemeral returns a provider that generates a fresh random identity on
// every call.
func Ephemeral() Provider {
	return ProviderFunc(func(context.Context) (*Identity, error) {
		seed := make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			return nil, fmt.Errorf("generate identity: %w", err)
		}
		return FromSeed(seed)
	})
}

// KeyFile returns a provider backed by a hex-encoded seed file. The file is
// created with a random seed and mode 0600 if it does not exist.
func KeyFile(path string) Provider {
	return ProviderFunc(func(context.Context) (*Identity, error) {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return createKeyFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("decode key file %s: %w", path, err)
		}
		return FromSeed(seed)
	})
}

func createKeyFile(path string) (*Identity, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return FromSeed(seed)
}

// Argon2id parameters for passphrase identities.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// Passphrase returns a provider that derives the same identity from the
// same passphrase and salt on every call.
func Passphrase(passphrase, salt string) Provider {
	return ProviderFunc(func(context.Context) (*Identity, error) {
		if passphrase == "" {
			return nil, errors.New("passphrase identity: empty passphrase")
		}
		if len(salt) < 8 {
			return nil, errors.New("passphrase identity: salt must be at least 8 bytes")
		}
		seed := argon2.IDKey([]byte(passphrase), []byte(salt), argonTime, argonMemory, argonThreads, ed25519.SeedSize)
		return FromSeed(seed)
	})
}
