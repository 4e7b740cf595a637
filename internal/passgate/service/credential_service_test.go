package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"passgate/internal/passgate/checksum"
	"passgate/internal/passgate/qrcodec"
	"passgate/internal/passgate/service"
	"passgate/internal/passgate/store"
	"passgate/internal/passgate/store/memory"
	"passgate/internal/passgate/types"
)

type credentialFixture struct {
	svc         *service.CredentialService
	credentials *memory.CredentialStore
	attempts    *memory.AccessAttemptStore
	codec       *qrcodec.Codec
}

func newCredentialFixture(t *testing.T) *credentialFixture {
	t.Helper()

	credentials := memory.NewCredentialStore()
	attempts := memory.NewAccessAttemptStore()
	codec := qrcodec.New("test-secret", "")
	svc := service.NewCredentialService(credentials, attempts, codec, silentLogger())
	return &credentialFixture{svc: svc, credentials: credentials, attempts: attempts, codec: codec}
}

func TestCredentialService_Create_Defaults(t *testing.T) {
	f := newCredentialFixture(t)

	created, err := f.svc.Create(context.Background(), types.CreateCredentialRequest{
		UserID: 3,
		Code:   "ABC123",
		Kind:   types.CredentialKindEmployee,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.State != types.CredentialStateActive {
		t.Errorf("expected state=active, got %q", created.State)
	}
	if created.UsageCount != 0 {
		t.Errorf("expected usage_count=0, got %d", created.UsageCount)
	}
}

func TestCredentialService_Create_GeneratesChecksumCode(t *testing.T) {
	f := newCredentialFixture(t)

	created, err := f.svc.Create(context.Background(), types.CreateCredentialRequest{
		UserID: 3,
		Kind:   types.CredentialKindVisitor,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Code == "" {
		t.Fatal("expected a generated code")
	}
	if _, ok := checksum.Verify(created.Code); !ok {
		t.Errorf("generated code %q must carry a valid checksum suffix", created.Code)
	}
}

func TestCredentialService_Create_Validation(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()
	zero := 0

	cases := []struct {
		name string
		req  types.CreateCredentialRequest
		want error
	}{
		{"missing user", types.CreateCredentialRequest{Kind: types.CredentialKindVisitor}, service.ErrMissingUserID},
		{"bad kind", types.CreateCredentialRequest{UserID: 1, Kind: "contractor"}, service.ErrInvalidKind},
		{"zero limit", types.CreateCredentialRequest{UserID: 1, Kind: types.CredentialKindVisitor, UsageLimit: &zero}, service.ErrInvalidUsageLimit},
	}
	for _, tc := range cases {
		if _, err := f.svc.Create(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCredentialService_Revoke(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, types.CreateCredentialRequest{
		UserID: 1, Code: "REVOKE", Kind: types.CredentialKindEmployee,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := f.svc.Revoke(ctx, created.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	got, err := f.credentials.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != types.CredentialStateRevoked {
		t.Errorf("expected state=revoked, got %q", got.State)
	}

	if err := f.svc.Revoke(ctx, created.ID); !errors.Is(err, store.ErrAlreadyRevoked) {
		t.Errorf("expected ErrAlreadyRevoked, got %v", err)
	}
	if err := f.svc.Revoke(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCredentialService_MintQR_RoundTrips(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, types.CreateCredentialRequest{
		UserID:      12,
		Code:        "QR-BASE",
		Kind:        types.CredentialKindVisitor,
		Permissions: []string{"floor-4"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	content, err := f.svc.MintQR(ctx, created.ID, 30)
	if err != nil {
		t.Fatalf("MintQR: %v", err)
	}

	payload, err := f.codec.Decode(content)
	if err != nil {
		t.Fatalf("Decode minted content: %v", err)
	}
	if payload.UserID != 12 || payload.Kind != types.CredentialKindVisitor {
		t.Errorf("unexpected payload identity: %+v", payload)
	}
	if payload.Nonce == "" {
		t.Error("expected a nonce")
	}
	if payload.ExpiresAtMS <= payload.IssuedAtMS {
		t.Error("expiry must follow issuance")
	}
}

func TestCredentialService_MintQR_FreshNoncePerMint(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, types.CreateCredentialRequest{
		UserID: 12, Code: "QR-BASE", Kind: types.CredentialKindVisitor,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	a, err := f.svc.MintQR(ctx, created.ID, 30)
	if err != nil {
		t.Fatalf("MintQR a: %v", err)
	}
	b, err := f.svc.MintQR(ctx, created.ID, 30)
	if err != nil {
		t.Fatalf("MintQR b: %v", err)
	}

	pa, _ := f.codec.Decode(a)
	pb, _ := f.codec.Decode(b)
	if pa.Nonce == pb.Nonce {
		t.Error("each mint must carry a unique nonce")
	}
}

func TestCredentialService_MintQR_CappedByCredentialExpiry(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	expires := time.Now().UTC().Add(10 * time.Minute)
	created, err := f.svc.Create(ctx, types.CreateCredentialRequest{
		UserID:      12,
		Code:        "QR-SHORT",
		Kind:        types.CredentialKindVisitor,
		ExpiresAtMS: expires.UnixMilli(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Asking for an hour of validity must be capped at the credential's
	// own 10-minute expiry.
	content, err := f.svc.MintQR(ctx, created.ID, 60)
	if err != nil {
		t.Fatalf("MintQR: %v", err)
	}
	payload, err := f.codec.Decode(content)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if payload.ExpiresAtMS != expires.UnixMilli() {
		t.Errorf("expected payload expiry %d, got %d", expires.UnixMilli(), payload.ExpiresAtMS)
	}
}

func TestCredentialService_MintQR_InactiveCredential(t *testing.T) {
	f := newCredentialFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, types.CreateCredentialRequest{
		UserID: 1, Code: "DEAD", Kind: types.CredentialKindVisitor,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.svc.Revoke(ctx, created.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := f.svc.MintQR(ctx, created.ID, 30); !errors.Is(err, service.ErrCredentialInactive) {
		t.Errorf("expected ErrCredentialInactive, got %v", err)
	}
}

func TestCredentialService_ListAttempts_RequiresDevice(t *testing.T) {
	f := newCredentialFixture(t)

	if _, err := f.svc.ListAttempts(context.Background(), "  ", 10); !errors.Is(err, service.ErrMissingDeviceID) {
		t.Errorf("expected ErrMissingDeviceID, got %v", err)
	}
}
