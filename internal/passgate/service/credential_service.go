package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"passgate/internal/passgate/checksum"
	"passgate/internal/passgate/qrcodec"
	"passgate/internal/passgate/store"
	"passgate/internal/passgate/types"
)

// defaultQRValidity bounds a minted QR payload's lifetime when the caller
// does not ask for one.
const defaultQRValidity = time.Hour

// CredentialService is the admin-facing collaborator surface: it creates
// and revokes credentials, mints QR content and reads attempt history.
// Validation itself never goes through here.
type CredentialService struct {
	credentials store.CredentialStore
	attempts    store.AccessAttemptStore
	codec       *qrcodec.Codec
	logger      *log.Logger
}

func NewCredentialService(
	credentials store.CredentialStore,
	attempts store.AccessAttemptStore,
	codec *qrcodec.Codec,
	logger *log.Logger,
) *CredentialService {
	return &CredentialService{
		credentials: credentials,
		attempts:    attempts,
		codec:       codec,
		logger:      logger,
	}
}

// Create persists a new active credential with usage_count 0.  An empty
// code asks for a generated one with a keypad checksum suffix.
func (s *CredentialService) Create(ctx context.Context, req types.CreateCredentialRequest) (types.Credential, error) {
	if req.UserID == 0 {
		return types.Credential{}, ErrMissingUserID
	}
	if !req.Kind.Valid() {
		return types.Credential{}, ErrInvalidKind
	}
	if req.UsageLimit != nil && *req.UsageLimit <= 0 {
		return types.Credential{}, ErrInvalidUsageLimit
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		generated, err := generateBaseCode()
		if err != nil {
			return types.Credential{}, fmt.Errorf("generate code: %w", err)
		}
		code = checksum.WithChecksum(generated)
	}

	cred := types.Credential{
		UserID:        req.UserID,
		ApplicationID: req.ApplicationID,
		Code:          code,
		Kind:          req.Kind,
		State:         types.CredentialStateActive,
		UsageLimit:    req.UsageLimit,
		Permissions:   req.Permissions,
	}
	if req.ExpiresAtMS > 0 {
		t := time.UnixMilli(req.ExpiresAtMS).UTC()
		cred.ExpiresAt = &t
	}

	created, err := s.credentials.Create(ctx, cred)
	if err != nil {
		return types.Credential{}, err
	}
	s.logger.Printf("credential created id=%d kind=%s user=%d", created.ID, created.Kind, created.UserID)
	return created, nil
}

// Revoke takes the terminal transition.  When and why to revoke is the
// caller's decision; this only executes it.
func (s *CredentialService) Revoke(ctx context.Context, id int64) error {
	if err := s.credentials.Revoke(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Printf("credential revoked id=%d", id)
	return nil
}

// MintQR encodes a credential into encrypted QR content with a fresh
// nonce.  The payload expiry is the sooner of now+validMinutes and the
// credential's own expiry.
func (s *CredentialService) MintQR(ctx context.Context, id int64, validMinutes int) (string, error) {
	cred, err := s.credentials.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if ok, _ := cred.Usable(now); !ok {
		return "", ErrCredentialInactive
	}

	validity := time.Duration(validMinutes) * time.Minute
	if validity <= 0 {
		validity = defaultQRValidity
	}
	expires := now.Add(validity)
	if cred.ExpiresAt != nil && cred.ExpiresAt.Before(expires) {
		expires = *cred.ExpiresAt
	}

	return s.codec.Encode(types.QRPayload{
		UserID:      cred.UserID,
		Kind:        cred.Kind,
		IssuedAtMS:  now.UnixMilli(),
		ExpiresAtMS: expires.UnixMilli(),
		Permissions: cred.Permissions,
		Nonce:       uuid.NewString(),
	})
}

// ListAttempts returns recent audit records for a device, newest first.
func (s *CredentialService) ListAttempts(ctx context.Context, deviceID string, limit int) ([]store.AccessAttemptRecord, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, ErrMissingDeviceID
	}
	return s.attempts.ListByDevice(ctx, deviceID, limit)
}

// generateBaseCode returns 16 uppercase hex characters from a CSPRNG.
func generateBaseCode() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b[:])), nil
}
