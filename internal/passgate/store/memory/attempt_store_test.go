package memory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"passgate/internal/passgate/store"
	"passgate/internal/passgate/store/memory"
	"passgate/internal/passgate/types"
)

func TestAccessAttemptStore_ListByDevice_LimitClamp(t *testing.T) {
	as := memory.NewAccessAttemptStore()
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 120; i++ {
		err := as.RecordAttempt(ctx, store.AccessAttemptRecord{
			DeviceID:   "gate-001",
			Direction:  types.DirectionIn,
			Success:    true,
			Reason:     fmt.Sprintf("r%d", i),
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("RecordAttempt %d: %v", i, err)
		}
	}

	// limit <= 0 and an oversized limit both fall back to the default of
	// 100, matching the sqlite store.
	for _, limit := range []int{0, -1, 600} {
		got, err := as.ListByDevice(ctx, "gate-001", limit)
		if err != nil {
			t.Fatalf("ListByDevice(limit=%d): %v", limit, err)
		}
		if len(got) != 100 {
			t.Errorf("limit=%d: expected 100 records, got %d", limit, len(got))
		}
	}

	got, err := as.ListByDevice(ctx, "gate-001", 5)
	if err != nil {
		t.Fatalf("ListByDevice(limit=5): %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 records, got %d", len(got))
	}
	if got[0].Reason != "r119" {
		t.Errorf("expected newest first, got %q", got[0].Reason)
	}
}
