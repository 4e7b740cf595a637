package sqlite_test

import (
	"context"
	"testing"
	"time"

	"passgate/internal/passgate/store"
	sqlitestore "passgate/internal/passgate/store/sqlite"
	"passgate/internal/passgate/types"
)

func TestAccessAttemptStore_RecordAttempt_InsertsRow(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessAttemptStore(conn, w)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	credID := int64(42)

	err := as.RecordAttempt(context.Background(), store.AccessAttemptRecord{
		DeviceID:     "gate-001",
		DeviceType:   "turnstile",
		Direction:    types.DirectionIn,
		Success:      true,
		CredentialID: &credID,
		OccurredAt:   now,
	})
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	var count int
	err = conn.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM access_attempts WHERE device_id = ?`, "gate-001",
	).Scan(&count)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 attempt row, got %d", count)
	}
}

func TestAccessAttemptStore_RecordAttempt_CreatesDeviceRow(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessAttemptStore(conn, w)

	// Never-seen device: the attempt must still land, with a devices row
	// created on first contact so the FK holds.
	err := as.RecordAttempt(context.Background(), store.AccessAttemptRecord{
		DeviceID:  "gate-new",
		Direction: types.DirectionOut,
		Success:   false,
		Reason:    types.ReasonNotFound,
	})
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	var firstSeen int64
	err = conn.QueryRowContext(context.Background(),
		`SELECT first_seen_at_ms FROM devices WHERE device_id = ?`, "gate-new",
	).Scan(&firstSeen)
	if err != nil {
		t.Fatalf("device row: %v", err)
	}
	if firstSeen == 0 {
		t.Error("expected first_seen_at_ms to be set")
	}
}

func TestAccessAttemptStore_ListByDevice_NewestFirst(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	as := sqlitestore.NewAccessAttemptStore(conn, w)
	ctx := context.Background()

	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	reasons := []string{types.ReasonNotFound, types.ReasonExpired, ""}
	for i, reason := range reasons {
		err := as.RecordAttempt(ctx, store.AccessAttemptRecord{
			DeviceID:   "gate-001",
			Direction:  types.DirectionIn,
			Success:    reason == "",
			Reason:     reason,
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("RecordAttempt %d: %v", i, err)
		}
	}

	// Another device's attempts must not appear.
	if err := as.RecordAttempt(ctx, store.AccessAttemptRecord{
		DeviceID: "gate-002", Direction: types.DirectionIn, Success: true, OccurredAt: base,
	}); err != nil {
		t.Fatalf("RecordAttempt other device: %v", err)
	}

	got, err := as.ListByDevice(ctx, "gate-001", 2)
	if err != nil {
		t.Fatalf("ListByDevice: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(got))
	}
	if !got[0].Success || got[0].Reason != "" {
		t.Errorf("expected newest (success) first, got %+v", got[0])
	}
	if got[1].Reason != types.ReasonExpired {
		t.Errorf("expected second newest reason=expired, got %q", got[1].Reason)
	}
}
