// Package logstore is a SQLite-backed peer node for DDB.
//
// It provides the append-only log substrate locally: every log has a
// manifest whose canonical JSON determines the log's root, and every append
// is a signed entry. Several nodes opened on the same database file observe
// each other's appends on Load, which stands in for replication.
//
// # Entries
//
//   - Hash: SHA-256 with domain separation ("ddb/entry/v1") over the
//     canonical JSON of {log, seq, op, key, value, identity}
//   - Signature: ed25519 signature of the raw hash by the writer
//   - Load skips entries whose hash or signature does not verify, or whose
//     writer the access controller does not admit
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: entries must belong to a manifest
//   - _txlock=immediate: appends take the write lock before reading seq
package logstore
