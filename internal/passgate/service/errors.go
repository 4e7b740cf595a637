package service

import "errors"

// Request-validation failures.  These mean the device sent a malformed
// request, not that a credential was invalid, and map to HTTP 400 rather
// than a verdict.
var (
	ErrMissingDeviceID  = errors.New("device_id is required")
	ErrInvalidDirection = errors.New(`direction must be "in" or "out"`)
	ErrMissingCode      = errors.New("code is required")
)

// Admin-side failures.
var (
	ErrMissingUserID      = errors.New("user_id is required")
	ErrInvalidKind        = errors.New(`kind must be "employee" or "visitor"`)
	ErrInvalidUsageLimit  = errors.New("usage_limit must be positive")
	ErrCredentialInactive = errors.New("credential is not active")
)
