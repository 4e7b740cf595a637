package store

import (
	"context"
	"time"

	"passgate/internal/passgate/types"
)

// AccessAttemptRecord captures a single validation outcome for the audit
// log.  CredentialID is nil when the submitted material never resolved to
// a stored credential (unknown code, undecodable QR, self-describing QR).
type AccessAttemptRecord struct {
	DeviceID     string
	DeviceType   string
	Direction    types.Direction
	Success      bool
	Reason       string // empty on success
	CredentialID *int64
	OccurredAt   time.Time
}

// AccessAttemptStore persists validation outcomes as an append-only audit
// log.  Records are never mutated or deleted by the engine.
type AccessAttemptStore interface {
	RecordAttempt(ctx context.Context, rec AccessAttemptRecord) error

	// ListByDevice returns the most recent attempts for a device, newest
	// first, capped at limit.
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]AccessAttemptRecord, error)
}
