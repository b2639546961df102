// Package address parses, validates and formats canonical store addresses.
//
// A canonical address has the string form "<root>/<path>":
//   - root is the base58btc encoding of a sha2-256 multihash of the log
//     manifest (34 bytes: 0x12 0x20 followed by the 32-byte digest)
//   - path is "<name>.<id>", the blueprint name plus a unique suffix
//
// All checks here are syntactic. Nothing in this package touches the network
// or storage.
package address

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mr-tron/base58"

	"github.com/roach88/ddb/internal/fault"
)

// Multihash header for sha2-256 digests.
const (
	multihashSHA256 = 0x12
	digestLength    = 32
)

// Address is a parsed canonical address.
type Address struct {
	Root string `json:"root"`
	Path string `json:"path"`
}

// IsValid reports whether candidate is a syntactically valid address.
func IsValid(candidate string) bool {
	_, err := parse(candidate)
	return err == nil
}

// Parse parses candidate into an Address.
// Returns an ErrCodeMalformedAddress error if candidate is not valid.
func Parse(candidate string) (Address, error) {
	a, err := parse(candidate)
	if err != nil {
		return Address{}, fault.Wrap(fault.ErrCodeMalformedAddress, err, "malformed address").WithAddress(candidate)
	}
	return a, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or for addresses known to be valid.
func MustParse(candidate string) Address {
	a, err := Parse(candidate)
	if err != nil {
		panic(err)
	}
	return a
}

func parse(candidate string) (Address, error) {
	root, path, ok := strings.Cut(candidate, "/")
	if !ok {
		return Address{}, fmt.Errorf("missing '/' between root and path")
	}
	if err := validateRoot(root); err != nil {
		return Address{}, err
	}
	if err := validatePath(path); err != nil {
		return Address{}, err
	}
	return Address{Root: root, Path: path}, nil
}

func validateRoot(root string) error {
	if root == "" {
		return fmt.Errorf("empty root")
	}
	raw, err := base58.Decode(root)
	if err != nil {
		return fmt.Errorf("root is not base58: %w", err)
	}
	if len(raw) != 2+digestLength || raw[0] != multihashSHA256 || raw[1] != digestLength {
		return fmt.Errorf("root is not a sha2-256 multihash")
	}
	return nil
}

func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	for _, r := range path {
		if r == '/' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("path contains forbidden character %q", r)
		}
	}
	if strings.HasPrefix(path, ".") {
		return fmt.Errorf("path has an empty name segment")
	}
	return nil
}

// Format renders a as its canonical string. Parse(Format(a)) == a for every
// valid a.
func Format(a Address) string {
	return a.Root + "/" + a.Path
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return Format(a)
}

// Key returns the cache key for a. It is the canonical string form.
func (a Address) Key() string {
	return Format(a)
}

// IsZero reports whether a is the zero Address.
func (a Address) IsZero() bool {
	return a.Root == "" && a.Path == ""
}

// Name returns the path segment before the first '.'.
func (a Address) Name() string {
	name, _, _ := strings.Cut(a.Path, ".")
	return name
}

// ID returns the path segment after the first '.', or "" if there is none.
func (a Address) ID() string {
	_, id, _ := strings.Cut(a.Path, ".")
	return id
}

// NewRoot builds a root from a 32-byte sha2-256 digest.
func NewRoot(digest []byte) (string, error) {
	if len(digest) != digestLength {
		return "", fmt.Errorf("new root: digest must be %d bytes, got %d", digestLength, len(digest))
	}
	mh := make([]byte, 0, 2+digestLength)
	mh = append(mh, multihashSHA256, digestLength)
	mh = append(mh, digest...)
	return base58.Encode(mh), nil
}
