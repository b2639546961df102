// Package canon provides the deterministic serialization used for
// content-addressed identity in DDB.
//
// Log manifests and log entries are hashed, and the hash is what peers
// agree on. Two peers serializing the same document must therefore produce
// the same bytes. Marshal implements RFC 8785 style canonical JSON:
//   - Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//   - No HTML escaping (< > & are NOT escaped)
//   - Strings are NFC normalized
//   - Numbers in shortest round-trip form, integers without exponent
//
// Hash applies SHA-256 with domain separation so a manifest digest can never
// collide with an entry digest.
package canon
