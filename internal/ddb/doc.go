// Package ddb manages named, schema-validated stores over a replicated
// append-only log substrate.
//
// A Manager owns one identity and one peer node. It creates stores from
// blueprints, resolves identifiers such as "user.alice" to canonical
// addresses, and guarantees at most one live Store per address even when
// many callers open the same store at once.
//
// Every write through a Store is validated against its blueprint's schema
// before it reaches the log. Reads are not re-validated.
//
// Errors carry a fault.Code; substrate errors from the peer node pass
// through unwrapped.
package ddb
