package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainManifest = "ddb/manifest/v1"
	DomainEntry    = "ddb/entry/v1"
)

// Hash computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func Hash(domain string, data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return h.Sum(nil)
}

// HashValue canonically marshals v and hashes it under domain.
func HashValue(domain string, v any) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("hash %s: %w", domain, err)
	}
	return Hash(domain, data), nil
}

// HashHex is HashValue rendered as lowercase hex.
func HashHex(domain string, v any) (string, error) {
	sum, err := HashValue(domain, v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}
