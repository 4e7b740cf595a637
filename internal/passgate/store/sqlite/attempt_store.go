package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "passgate/internal/db"
	"passgate/internal/passgate/store"
	"passgate/internal/passgate/types"
)

type AccessAttemptStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessAttemptStore(conn *sql.DB, writer *dbpkg.Worker) *AccessAttemptStore {
	return &AccessAttemptStore{db: conn, writer: writer}
}

func (s *AccessAttemptStore) RecordAttempt(ctx context.Context, rec store.AccessAttemptRecord) error {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	occurredMs := rec.OccurredAt.UTC().UnixMilli()

	var success int
	if rec.Success {
		success = 1
	}
	var credID any
	if rec.CredentialID != nil {
		credID = *rec.CredentialID
	}
	var deviceType any
	if t := strings.TrimSpace(rec.DeviceType); t != "" {
		deviceType = t
	}
	var reason any
	if rec.Reason != "" {
		reason = rec.Reason
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureDevice(ctx, tx, rec.DeviceID, rec.DeviceType, occurredMs); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_attempts(
  device_id, device_type, direction, success, reason, credential_id, occurred_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?);
`,
			rec.DeviceID, deviceType, string(rec.Direction), success, reason, credID, occurredMs,
		); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}

		return nil
	})
	return classify("RecordAttempt", err)
}

func (s *AccessAttemptStore) ListByDevice(ctx context.Context, deviceID string, limit int) ([]store.AccessAttemptRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT device_id, device_type, direction, success, reason, credential_id, occurred_at_ms
FROM access_attempts
WHERE device_id = ?
ORDER BY occurred_at_ms DESC, id DESC
LIMIT ?;
`, strings.TrimSpace(deviceID), limit)
	if err != nil {
		return nil, classify("ListByDevice", err)
	}
	defer rows.Close()

	var out []store.AccessAttemptRecord
	for rows.Next() {
		var (
			rec        store.AccessAttemptRecord
			deviceType sql.NullString
			direction  string
			success    int
			reason     sql.NullString
			credID     sql.NullInt64
			occurredMs int64
		)
		if err := rows.Scan(&rec.DeviceID, &deviceType, &direction, &success, &reason, &credID, &occurredMs); err != nil {
			return nil, classify("ListByDevice scan", err)
		}
		rec.DeviceType = deviceType.String
		rec.Direction = types.Direction(direction)
		rec.Success = success == 1
		rec.Reason = reason.String
		if credID.Valid {
			v := credID.Int64
			rec.CredentialID = &v
		}
		rec.OccurredAt = time.UnixMilli(occurredMs).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("ListByDevice rows", err)
	}
	return out, nil
}
