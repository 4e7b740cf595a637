package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"passgate/internal/passgate/qrcodec"
	"passgate/internal/passgate/rollingcode"
	"passgate/internal/passgate/store"
	"passgate/internal/passgate/types"
	"passgate/internal/ratelimit"
)

// ValidationConfig tunes the orchestrator.  Zero values select the
// defaults below; production supplies all of them explicitly.
type ValidationConfig struct {
	RollingWindowMinutes int
	PersistenceRetries   uint64
	PersistenceTimeout   time.Duration
}

const (
	defaultRollingWindowMinutes = 5
	defaultPersistenceRetries   = 2
	defaultPersistenceTimeout   = 2 * time.Second
)

// ValidationService is the entry point hardware devices call.  One public
// operation per submitted-code shape; each resolves the material to a
// candidate credential, evaluates the lifecycle predicate, atomically
// consumes a use, writes exactly one audit record and returns a verdict.
type ValidationService struct {
	credentials store.CredentialStore
	attempts    store.AccessAttemptStore
	codec       *qrcodec.Codec
	limiter     ratelimit.Limiter
	cfg         ValidationConfig
	logger      *log.Logger
}

func NewValidationService(
	credentials store.CredentialStore,
	attempts store.AccessAttemptStore,
	codec *qrcodec.Codec,
	limiter ratelimit.Limiter,
	cfg ValidationConfig,
	logger *log.Logger,
) *ValidationService {
	if cfg.RollingWindowMinutes <= 0 {
		cfg.RollingWindowMinutes = defaultRollingWindowMinutes
	}
	if cfg.PersistenceRetries == 0 {
		cfg.PersistenceRetries = defaultPersistenceRetries
	}
	if cfg.PersistenceTimeout <= 0 {
		cfg.PersistenceTimeout = defaultPersistenceTimeout
	}
	return &ValidationService{
		credentials: credentials,
		attempts:    attempts,
		codec:       codec,
		limiter:     limiter,
		cfg:         cfg,
		logger:      logger,
	}
}

// deviceInput is the per-request device identity shared by all paths.
type deviceInput struct {
	deviceID   string
	deviceType string
	direction  types.Direction
}

func (in deviceInput) validate() error {
	if in.deviceID == "" {
		return ErrMissingDeviceID
	}
	if !in.direction.Valid() {
		return ErrInvalidDirection
	}
	return nil
}

// ValidateCode is the static/base-code path: direct lookup by code.
func (s *ValidationService) ValidateCode(ctx context.Context, req types.CodeValidationRequest) (types.ValidationResponse, error) {
	now := time.Now().UTC()
	in := deviceInput{
		deviceID:   strings.TrimSpace(req.DeviceID),
		deviceType: strings.TrimSpace(req.DeviceType),
		direction:  req.Direction,
	}
	if err := in.validate(); err != nil {
		return types.ValidationResponse{}, err
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return types.ValidationResponse{}, ErrMissingCode
	}

	if s.limited(ctx, in.deviceID, code) {
		s.recordAttempt(ctx, in, nil, false, types.ReasonRateLimited, now)
		return s.deny(types.ReasonRateLimited, now), nil
	}

	cred, err := s.getByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		s.recordAttempt(ctx, in, nil, false, types.ReasonNotFound, now)
		return s.deny(types.ReasonNotFound, now), nil
	}
	if err != nil {
		s.recordFailure(ctx, in, nil, err, now)
		return types.ValidationResponse{}, err
	}

	return s.finish(ctx, in, cred, summaryFor(cred), now)
}

// ValidateQR decodes encrypted QR content.  Decoded payloads are
// self-describing: when no stored credential backs them (short-lived
// visitor codes), the payload's own expiry and permissions decide.
func (s *ValidationService) ValidateQR(ctx context.Context, req types.QRValidationRequest) (types.ValidationResponse, error) {
	now := time.Now().UTC()
	in := deviceInput{
		deviceID:   strings.TrimSpace(req.DeviceID),
		deviceType: strings.TrimSpace(req.DeviceType),
		direction:  req.Direction,
	}
	if err := in.validate(); err != nil {
		return types.ValidationResponse{}, err
	}

	content := strings.TrimSpace(req.QRContent)
	if content == "" {
		return types.ValidationResponse{}, ErrMissingCode
	}

	if s.limited(ctx, in.deviceID, content) {
		s.recordAttempt(ctx, in, nil, false, types.ReasonRateLimited, now)
		return s.deny(types.ReasonRateLimited, now), nil
	}

	payload, err := s.codec.Decode(content)
	if err != nil {
		// Cipher internals never reach the device.
		s.recordAttempt(ctx, in, nil, false, types.ReasonInvalidQRContent, now)
		return s.deny(types.ReasonInvalidQRContent, now), nil
	}

	if payload.Expired(now) {
		s.recordAttempt(ctx, in, nil, false, types.ReasonExpired, now)
		return s.deny(types.ReasonExpired, now), nil
	}

	cred, err := s.findByUser(ctx, payload.UserID, payload.Kind)
	if errors.Is(err, store.ErrNotFound) {
		// No stored row: the payload carries everything needed.
		s.recordAttempt(ctx, in, nil, true, "", now)
		return types.ValidationResponse{
			Valid: true,
			Credential: &types.CredentialSummary{
				Kind:        payload.Kind,
				Permissions: payload.Permissions,
			},
			ServerTime: now.Format(time.RFC3339Nano),
		}, nil
	}
	if err != nil {
		s.recordFailure(ctx, in, nil, err, now)
		return types.ValidationResponse{}, err
	}

	// Stored credential resolved: the payload's permissions travel with the
	// verdict, the stored row's lifecycle and usage accounting gate it.
	summary := types.CredentialSummary{
		ID:          cred.ID,
		Kind:        cred.Kind,
		Permissions: payload.Permissions,
	}
	return s.finish(ctx, in, cred, summary, now)
}

// ValidateRolling checks a time-windowed code against its base code, then
// applies the usual lifecycle checks to the stored credential behind the
// base code.
func (s *ValidationService) ValidateRolling(ctx context.Context, req types.RollingValidationRequest) (types.ValidationResponse, error) {
	now := time.Now().UTC()
	in := deviceInput{
		deviceID:   strings.TrimSpace(req.DeviceID),
		deviceType: strings.TrimSpace(req.DeviceType),
		direction:  req.Direction,
	}
	if err := in.validate(); err != nil {
		return types.ValidationResponse{}, err
	}

	rolling := strings.TrimSpace(req.RollingCode)
	base := strings.TrimSpace(req.BaseCode)
	if rolling == "" || base == "" {
		return types.ValidationResponse{}, ErrMissingCode
	}

	if s.limited(ctx, in.deviceID, rolling) {
		s.recordAttempt(ctx, in, nil, false, types.ReasonRateLimited, now)
		return s.deny(types.ReasonRateLimited, now), nil
	}

	if !rollingcode.Verify(rolling, base, s.cfg.RollingWindowMinutes) {
		s.recordAttempt(ctx, in, nil, false, types.ReasonRollingCodeMismatch, now)
		return s.deny(types.ReasonRollingCodeMismatch, now), nil
	}

	cred, err := s.getByCode(ctx, base)
	if errors.Is(err, store.ErrNotFound) {
		s.recordAttempt(ctx, in, nil, false, types.ReasonNotFound, now)
		return s.deny(types.ReasonNotFound, now), nil
	}
	if err != nil {
		s.recordFailure(ctx, in, nil, err, now)
		return types.ValidationResponse{}, err
	}

	return s.finish(ctx, in, cred, summaryFor(cred), now)
}

// finish runs the shared tail of every path: lifecycle predicate, atomic
// consume, audit record, verdict.  The consume re-validates state, expiry
// and limit inside the store so two concurrent scans at the last remaining
// use can never both succeed.
func (s *ValidationService) finish(
	ctx context.Context,
	in deviceInput,
	cred types.Credential,
	summary types.CredentialSummary,
	now time.Time,
) (types.ValidationResponse, error) {
	if ok, reason := cred.Usable(now); !ok {
		s.recordAttempt(ctx, in, &cred.ID, false, reason, now)
		return s.deny(reason, now), nil
	}

	consumed, err := s.consumeUse(ctx, cred.ID, now)
	if err != nil {
		s.recordFailure(ctx, in, &cred.ID, err, now)
		return types.ValidationResponse{}, err
	}
	if !consumed {
		// Lost the race for the final use.
		s.recordAttempt(ctx, in, &cred.ID, false, types.ReasonUsageLimitExceeded, now)
		return s.deny(types.ReasonUsageLimitExceeded, now), nil
	}

	s.recordAttempt(ctx, in, &cred.ID, true, "", now)
	return types.ValidationResponse{
		Valid:      true,
		Credential: &summary,
		ServerTime: now.Format(time.RFC3339Nano),
	}, nil
}

func (s *ValidationService) deny(reason string, now time.Time) types.ValidationResponse {
	return types.ValidationResponse{
		Valid:      false,
		Reason:     reason,
		ServerTime: now.Format(time.RFC3339Nano),
	}
}

func summaryFor(cred types.Credential) types.CredentialSummary {
	return types.CredentialSummary{
		ID:          cred.ID,
		Kind:        cred.Kind,
		Permissions: cred.Permissions,
	}
}

// limited checks the per-device and per-code windows.  Limiter errors fail
// open: an unavailable limiter must not lock every door in the fleet.
func (s *ValidationService) limited(ctx context.Context, deviceID, code string) bool {
	for _, key := range []string{"device:" + deviceID, "code:" + code} {
		ok, err := s.limiter.Allow(ctx, key)
		if err != nil {
			s.logger.Printf("rate limiter error (failing open): %v", err)
			continue
		}
		if !ok {
			return true
		}
	}
	return false
}

// recordFailure audits a validation call that errored out of the store
// layer.  Every call produces exactly one audit record, including the ones
// that never reach a verdict.
func (s *ValidationService) recordFailure(ctx context.Context, in deviceInput, credentialID *int64, err error, now time.Time) {
	reason := types.ReasonStoreError
	if errors.Is(err, store.ErrTimeout) {
		reason = types.ReasonPersistenceTimeout
	}
	s.recordAttempt(ctx, in, credentialID, false, reason, now)
}

// recordAttempt appends the audit record.  Best-effort: a failed audit
// write is logged but never delays or blocks the verdict.
func (s *ValidationService) recordAttempt(
	ctx context.Context,
	in deviceInput,
	credentialID *int64,
	success bool,
	reason string,
	now time.Time,
) {
	err := s.attempts.RecordAttempt(ctx, store.AccessAttemptRecord{
		DeviceID:     in.deviceID,
		DeviceType:   in.deviceType,
		Direction:    in.direction,
		Success:      success,
		Reason:       reason,
		CredentialID: credentialID,
		OccurredAt:   now,
	})
	if err != nil {
		s.logger.Printf("access attempt record error: %v", err)
	}
}

// ── Persistence retry ───────────────────────────────────────────────────────

// withRetry retries an operation a bounded number of times with
// exponential backoff, but only for the timeout class.  Everything else —
// not found, already revoked, real store errors — is permanent for this
// request.
func (s *ValidationService) withRetry(ctx context.Context, op func(context.Context) error) error {
	attempt := func() error {
		opCtx, cancel := context.WithTimeout(ctx, s.cfg.PersistenceTimeout)
		defer cancel()

		err := op(opCtx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, store.ErrTimeout):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond

	return backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.PersistenceRetries), ctx))
}

func (s *ValidationService) getByCode(ctx context.Context, code string) (types.Credential, error) {
	var cred types.Credential
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		cred, err = s.credentials.GetByCode(ctx, code)
		return err
	})
	return cred, err
}

func (s *ValidationService) findByUser(ctx context.Context, userID int64, kind types.CredentialKind) (types.Credential, error) {
	var cred types.Credential
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		cred, err = s.credentials.FindByUser(ctx, userID, kind)
		return err
	})
	return cred, err
}

func (s *ValidationService) consumeUse(ctx context.Context, id int64, now time.Time) (bool, error) {
	var consumed bool
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		consumed, err = s.credentials.ConsumeUse(ctx, id, now)
		return err
	})
	return consumed, err
}
