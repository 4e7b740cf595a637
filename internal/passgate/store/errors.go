package store

import "errors"

var (
	// ErrNotFound means no credential matched the lookup.
	ErrNotFound = errors.New("credential not found")

	// ErrAlreadyRevoked rejects a second revoke of the same credential.
	// Revoked is terminal, so the transition can only be taken once.
	ErrAlreadyRevoked = errors.New("credential already revoked")

	// ErrTimeout is the retryable infrastructure class: the store was
	// unreachable or slow.  It must never be collapsed into a validity
	// verdict — callers retry or surface it as an infrastructure fault.
	ErrTimeout = errors.New("persistence timeout")
)
