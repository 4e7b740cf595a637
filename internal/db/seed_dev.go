package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a starter device and credential so a fresh dev database
// can serve validation requests immediately.  Never called in prod.
func SeedDev(ctx context.Context, conn *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	if _, err := conn.ExecContext(ctx, `
INSERT OR IGNORE INTO devices(device_id, device_type, first_seen_at_ms, created_at_ms, updated_at_ms)
VALUES ('gate-001', 'turnstile', ?, ?, ?);`, now, now, now); err != nil {
		return fmt.Errorf("seed devices: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `
INSERT OR IGNORE INTO credentials(
  user_id, code, kind, state, usage_count, permissions, created_at_ms, updated_at_ms
) VALUES (1, 'DEV-EMPLOYEE-0001', 'employee', 'active', 0, '["floor-1"]', ?, ?);`,
		now, now); err != nil {
		return fmt.Errorf("seed credential: %w", err)
	}

	return nil
}
