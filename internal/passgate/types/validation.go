package types

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// CodeValidationRequest is the static/base-code path: the device submits
// the credential code exactly as stored.
type CodeValidationRequest struct {
	Code       string    `json:"code"`
	DeviceID   string    `json:"device_id"`
	DeviceType string    `json:"device_type,omitempty"`
	Direction  Direction `json:"direction"`
}

// QRValidationRequest carries encrypted QR content as scanned.
type QRValidationRequest struct {
	QRContent  string    `json:"qr_content"`
	DeviceID   string    `json:"device_id"`
	DeviceType string    `json:"device_type,omitempty"`
	Direction  Direction `json:"direction"`
}

// RollingValidationRequest carries a time-windowed code plus the base code
// it was derived from.
type RollingValidationRequest struct {
	RollingCode string    `json:"rolling_code"`
	BaseCode    string    `json:"base_code"`
	DeviceID    string    `json:"device_id"`
	DeviceType  string    `json:"device_type,omitempty"`
	Direction   Direction `json:"direction"`
}

// CredentialSummary is the slice of a credential a device is allowed to
// see.  ID is 0 for self-describing QR credentials that have no stored row.
type CredentialSummary struct {
	ID          int64          `json:"id"`
	Kind        CredentialKind `json:"kind"`
	Permissions []string       `json:"permissions,omitempty"`
}

// ValidationResponse is the verdict returned to the device.  Reason is set
// only on failure and is one of the Reason* constants.
type ValidationResponse struct {
	Valid      bool               `json:"valid"`
	Reason     string             `json:"reason,omitempty"`
	Credential *CredentialSummary `json:"credential,omitempty"`
	ServerTime string             `json:"server_time"`
}

// CreateCredentialRequest is the admin-side create operation.  An empty
// Code asks the service to generate a checksum-suffixed one.
type CreateCredentialRequest struct {
	UserID        int64          `json:"user_id"`
	ApplicationID *int64         `json:"application_id,omitempty"`
	Code          string         `json:"code,omitempty"`
	Kind          CredentialKind `json:"kind"`
	ExpiresAtMS   int64          `json:"expires_at_ms,omitempty"`
	UsageLimit    *int           `json:"usage_limit,omitempty"`
	Permissions   []string       `json:"permissions,omitempty"`
}

// MintQRRequest asks for encrypted QR content for a stored credential.
// ValidMinutes bounds the payload's own expiry; the credential's expiry
// wins when it comes first.
type MintQRRequest struct {
	ValidMinutes int `json:"valid_minutes,omitempty"`
}
