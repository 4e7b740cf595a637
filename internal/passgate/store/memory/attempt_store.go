package memory

import (
	"context"
	"sync"

	"passgate/internal/passgate/store"
)

// AccessAttemptStore is an in-memory append-only audit log for tests and
// dev environments.
type AccessAttemptStore struct {
	mu       sync.Mutex
	attempts []store.AccessAttemptRecord
}

func NewAccessAttemptStore() *AccessAttemptStore {
	return &AccessAttemptStore{}
}

func (s *AccessAttemptStore) RecordAttempt(_ context.Context, rec store.AccessAttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, rec)
	return nil
}

func (s *AccessAttemptStore) ListByDevice(_ context.Context, deviceID string, limit int) ([]store.AccessAttemptRecord, error) {
	// Same clamp as the sqlite store: default 100, hard cap 500.
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.AccessAttemptRecord
	for i := len(s.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if s.attempts[i].DeviceID == deviceID {
			out = append(out, s.attempts[i])
		}
	}
	return out, nil
}

// Attempts returns a copy of all recorded attempts.  Test-only helper.
func (s *AccessAttemptStore) Attempts() []store.AccessAttemptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessAttemptRecord, len(s.attempts))
	copy(out, s.attempts)
	return out
}
