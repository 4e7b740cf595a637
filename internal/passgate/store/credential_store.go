package store

import (
	"context"
	"time"

	"passgate/internal/passgate/types"
)

// CredentialStore is the persistence contract the engine needs for
// credential records.  Implementations must make ConsumeUse a single
// atomic conditional update: two concurrent calls on a credential with one
// remaining use must admit exactly one of them.
type CredentialStore interface {
	// Create persists a new credential and returns it with its assigned id.
	Create(ctx context.Context, cred types.Credential) (types.Credential, error)

	GetByID(ctx context.Context, id int64) (types.Credential, error)

	// GetByCode resolves the canonical credential value a device submitted.
	GetByCode(ctx context.Context, code string) (types.Credential, error)

	// FindByUser resolves the stored credential (if any) backing a decoded
	// QR payload, regardless of its state: a revoked or expired row must
	// still be found so its lifecycle denies the scan.  Active rows win
	// over inactive ones.  ErrNotFound is a normal outcome here: QR-issued
	// visitor credentials need not be persisted at all.
	FindByUser(ctx context.Context, userID int64, kind types.CredentialKind) (types.Credential, error)

	// ConsumeUse increments usage_count only while the credential is still
	// active, unexpired and under its limit, re-checking all three at
	// increment time.  Returns false when the conditional update matched
	// no row (the caller lost the race or the limit is spent).
	ConsumeUse(ctx context.Context, id int64, now time.Time) (bool, error)

	// Revoke takes the terminal transition.  ErrAlreadyRevoked when the
	// credential is revoked already; ErrNotFound when it does not exist.
	Revoke(ctx context.Context, id int64, now time.Time) error

	// MarkExpiredBefore flips stale active rows past their expiry to
	// expired.  Purely an optimization for the sweeper — lazy expiry at
	// read time is authoritative with or without it.
	MarkExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
