package types

import "time"

type CredentialKind string

const (
	CredentialKindEmployee CredentialKind = "employee"
	CredentialKindVisitor  CredentialKind = "visitor"
)

func (k CredentialKind) Valid() bool {
	return k == CredentialKindEmployee || k == CredentialKindVisitor
}

type CredentialState string

const (
	CredentialStateActive  CredentialState = "active"
	CredentialStateExpired CredentialState = "expired"
	CredentialStateRevoked CredentialState = "revoked"
)

// Credential is the durable record behind a pass code.  The engine only
// ever mutates usage_count (through the store's conditional consume) and
// state (through Revoke and the expiry sweeper); everything else is owned
// by whoever created the credential.
type Credential struct {
	ID            int64
	UserID        int64
	ApplicationID *int64 // originating visitor application, if any
	Code          string
	Kind          CredentialKind
	State         CredentialState
	ExpiresAt     *time.Time
	UsageLimit    *int // nil = unlimited
	UsageCount    int
	Permissions   []string // opaque scopes (floor ids etc.), not interpreted here
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Denial reasons shared by the lifecycle predicate and the validation
// verdicts.  Devices display these, so they are stable strings.
const (
	ReasonRevoked             = "revoked"
	ReasonExpired             = "expired"
	ReasonUsageLimitExceeded  = "usage_limit_exceeded"
	ReasonNotFound            = "not_found"
	ReasonInvalidQRContent    = "invalid_qr_content"
	ReasonRollingCodeMismatch = "rolling_code_mismatch"
	ReasonRateLimited         = "rate_limited"

	// Infrastructure failures.  These never reach a device as a verdict —
	// the request errors out instead — but the audit log still records the
	// outcome.
	ReasonPersistenceTimeout = "persistence_timeout"
	ReasonStoreError         = "store_error"
)

// Usable evaluates the lifecycle predicate at the given instant.
// Check order matters: a revoked credential reports "revoked" even when it
// is also past expiry.  Expiry is lazy — a stored state of "active" past
// expires_at still reports "expired".
func (c Credential) Usable(now time.Time) (bool, string) {
	if c.State == CredentialStateRevoked {
		return false, ReasonRevoked
	}
	if c.ExpiredAt(now) {
		return false, ReasonExpired
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return false, ReasonUsageLimitExceeded
	}
	return true, ""
}

// ExpiredAt reports whether the credential's time bound has passed.
// A credential without expires_at never expires by time.
func (c Credential) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// QRPayload is the structure encrypted into QR content.  It is transient:
// a decoded payload is self-describing and need not resolve to a stored
// Credential row (short-lived visitor codes are never persisted).
type QRPayload struct {
	UserID      int64          `json:"user_id"`
	Kind        CredentialKind `json:"kind"`
	IssuedAtMS  int64          `json:"issued_at_ms"`
	ExpiresAtMS int64          `json:"expires_at_ms"`
	Permissions []string       `json:"permissions,omitempty"`
	// Nonce is unique per issuance.  It is carried for replay detection by
	// downstream consumers; this engine does not keep a seen-nonce store.
	Nonce string `json:"nonce"`
}

// Expired reports whether the payload's own expiry has passed.
func (p QRPayload) Expired(now time.Time) bool {
	return now.UnixMilli() >= p.ExpiresAtMS
}
