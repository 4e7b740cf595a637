package memory

import (
	"context"
	"sync"
	"time"

	"passgate/internal/passgate/store"
	"passgate/internal/passgate/types"
)

// CredentialStore is an in-memory CredentialStore for tests and dev.
// The single mutex gives the same atomicity for ConsumeUse that the
// sqlite store gets from its conditional UPDATE.
type CredentialStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]types.Credential
	byCode map[string]int64
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		nextID: 1,
		byID:   make(map[int64]types.Credential),
		byCode: make(map[string]int64),
	}
}

func (s *CredentialStore) Create(_ context.Context, cred types.Credential) (types.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred.ID = s.nextID
	s.nextID++
	if cred.State == "" {
		cred.State = types.CredentialStateActive
	}
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	s.byID[cred.ID] = cred
	s.byCode[cred.Code] = cred.ID
	return cred, nil
}

func (s *CredentialStore) GetByID(_ context.Context, id int64) (types.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[id]
	if !ok {
		return types.Credential{}, store.ErrNotFound
	}
	return cred, nil
}

func (s *CredentialStore) GetByCode(_ context.Context, code string) (types.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[code]
	if !ok {
		return types.Credential{}, store.ErrNotFound
	}
	return s.byID[id], nil
}

// FindByUser matches the sqlite ordering: active rows first, then lowest
// id.  No state filter — revoked and expired rows must still resolve so
// their lifecycle denies the scan.
func (s *CredentialStore) FindByUser(_ context.Context, userID int64, kind types.CredentialKind) (types.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best types.Credential
	found := false
	for _, cred := range s.byID {
		if cred.UserID != userID || cred.Kind != kind {
			continue
		}
		if !found || better(cred, best) {
			best = cred
			found = true
		}
	}
	if !found {
		return types.Credential{}, store.ErrNotFound
	}
	return best, nil
}

func better(a, b types.Credential) bool {
	aActive := a.State == types.CredentialStateActive
	bActive := b.State == types.CredentialStateActive
	if aActive != bActive {
		return aActive
	}
	return a.ID < b.ID
}

func (s *CredentialStore) ConsumeUse(_ context.Context, id int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[id]
	if !ok {
		return false, store.ErrNotFound
	}

	// Mirror the sqlite conditional UPDATE: state, expiry and limit are all
	// re-checked at increment time, under the lock.
	if cred.State != types.CredentialStateActive {
		return false, nil
	}
	if cred.ExpiredAt(now) {
		return false, nil
	}
	if cred.UsageLimit != nil && cred.UsageCount >= *cred.UsageLimit {
		return false, nil
	}

	cred.UsageCount++
	cred.UpdatedAt = now.UTC()
	s.byID[id] = cred
	return true, nil
}

func (s *CredentialStore) Revoke(_ context.Context, id int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	if cred.State == types.CredentialStateRevoked {
		return store.ErrAlreadyRevoked
	}

	cred.State = types.CredentialStateRevoked
	cred.UpdatedAt = now.UTC()
	s.byID[id] = cred
	return nil
}

func (s *CredentialStore) MarkExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flipped int64
	for id, cred := range s.byID {
		if cred.State != types.CredentialStateActive || cred.ExpiresAt == nil {
			continue
		}
		if cred.ExpiresAt.After(cutoff) {
			continue
		}
		cred.State = types.CredentialStateExpired
		cred.UpdatedAt = cutoff.UTC()
		s.byID[id] = cred
		flipped++
	}
	return flipped, nil
}
