package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_AllowsUpToLimit(t *testing.T) {
	l := NewMemoryLimiter(3)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return at }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "gate-001")
		if err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	ok, err := l.Allow(ctx, "gate-001")
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if ok {
		t.Error("fourth request in the same second should be limited")
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return at }

	ctx := context.Background()
	if ok, _ := l.Allow(ctx, "gate-001"); !ok {
		t.Fatal("first request on gate-001 should pass")
	}
	if ok, _ := l.Allow(ctx, "gate-002"); !ok {
		t.Error("gate-002 must have its own window")
	}
	if ok, _ := l.Allow(ctx, "gate-001"); ok {
		t.Error("second request on gate-001 should be limited")
	}
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	l := NewMemoryLimiter(1)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return at }

	ctx := context.Background()
	if ok, _ := l.Allow(ctx, "gate-001"); !ok {
		t.Fatal("first request should pass")
	}
	if ok, _ := l.Allow(ctx, "gate-001"); ok {
		t.Fatal("second request should be limited")
	}

	at = at.Add(time.Second)
	if ok, _ := l.Allow(ctx, "gate-001"); !ok {
		t.Error("request in the next window should pass")
	}
}
