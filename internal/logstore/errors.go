package logstore

import "errors"

var (
	// ErrNotFound is returned when a log or entry does not exist.
	ErrNotFound = errors.New("logstore: not found")

	// ErrExists is returned when creating a log whose manifest already exists.
	ErrExists = errors.New("logstore: log already exists")

	// ErrUnauthorized is returned when the writing identity may not append.
	ErrUnauthorized = errors.New("logstore: identity not permitted to append")

	// ErrNoIdentity is returned when appending through a handle opened
	// without an identity.
	ErrNoIdentity = errors.New("logstore: no identity to sign with")

	// ErrUnsupportedOp is returned when an operation does not apply to the
	// log's kind.
	ErrUnsupportedOp = errors.New("logstore: operation not supported by log kind")

	// ErrOffline is returned when the node is disconnected.
	ErrOffline = errors.New("logstore: node is offline")

	// ErrClosed is returned after the node is stopped or the handle closed.
	ErrClosed = errors.New("logstore: closed")
)
