package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ensureDevice guarantees a devices row exists for the given deviceID so
// the foreign key from access_attempts holds.  Devices are unauthenticated
// hardware; a row is created on first contact and last_seen is kept
// current on every attempt.
//
// Must be called inside an existing transaction.
func ensureDevice(ctx context.Context, tx *sql.Tx, deviceID, deviceType string, nowMs int64) error {
	var dt any
	if t := strings.TrimSpace(deviceType); t != "" {
		dt = t
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO devices(device_id, device_type, first_seen_at_ms, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(device_id) DO NOTHING;
`, deviceID, dt, nowMs, nowMs, nowMs); err != nil {
		return fmt.Errorf("ensureDevice %s: %w", deviceID, err)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE devices
SET last_seen_at_ms = ?,
    device_type     = COALESCE(?, device_type),
    updated_at_ms   = ?
WHERE device_id = ?;
`, nowMs, dt, nowMs, deviceID); err != nil {
		return fmt.Errorf("ensureDevice update %s: %w", deviceID, err)
	}

	return nil
}
