package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dbpkg "passgate/internal/db"
	"passgate/internal/passgate/store"
	"passgate/internal/passgate/types"
)

type CredentialStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCredentialStore(conn *sql.DB, writer *dbpkg.Worker) *CredentialStore {
	return &CredentialStore{db: conn, writer: writer}
}

const credentialColumns = `
id, user_id, application_id, code, kind, state,
expires_at_ms, usage_limit, usage_count, permissions,
created_at_ms, updated_at_ms`

func (s *CredentialStore) Create(ctx context.Context, cred types.Credential) (types.Credential, error) {
	cred.Code = strings.TrimSpace(cred.Code)
	if cred.State == "" {
		cred.State = types.CredentialStateActive
	}
	now := time.Now().UTC()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	perms, err := json.Marshal(permsOrEmpty(cred.Permissions))
	if err != nil {
		return types.Credential{}, fmt.Errorf("Create marshal permissions: %w", err)
	}

	var appID any
	if cred.ApplicationID != nil {
		appID = *cred.ApplicationID
	}
	var expiresMs any
	if cred.ExpiresAt != nil {
		expiresMs = cred.ExpiresAt.UTC().UnixMilli()
	}
	var limit any
	if cred.UsageLimit != nil {
		limit = *cred.UsageLimit
	}

	err = s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO credentials(
  user_id, application_id, code, kind, state,
  expires_at_ms, usage_limit, usage_count, permissions,
  created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			cred.UserID, appID, cred.Code, string(cred.Kind), string(cred.State),
			expiresMs, limit, cred.UsageCount, string(perms),
			cred.CreatedAt.UnixMilli(), cred.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert credential: %w", err)
		}
		cred.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return types.Credential{}, classify("Create", err)
	}
	return cred, nil
}

func (s *CredentialStore) GetByID(ctx context.Context, id int64) (types.Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = ?;`, id)
	cred, err := scanCredential(row)
	if err != nil {
		return types.Credential{}, classify("GetByID", err)
	}
	return cred, nil
}

func (s *CredentialStore) GetByCode(ctx context.Context, code string) (types.Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE code = ?;`, strings.TrimSpace(code))
	cred, err := scanCredential(row)
	if err != nil {
		return types.Credential{}, classify("GetByCode", err)
	}
	return cred, nil
}

// FindByUser deliberately carries no state filter: a revoked or
// sweeper-expired row must still resolve so its lifecycle can deny the
// scan instead of the payload deciding on its own.
func (s *CredentialStore) FindByUser(ctx context.Context, userID int64, kind types.CredentialKind) (types.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+credentialColumns+`
FROM credentials
WHERE user_id = ? AND kind = ?
ORDER BY CASE WHEN state = 'active' THEN 0 ELSE 1 END, id
LIMIT 1;`, userID, string(kind))
	cred, err := scanCredential(row)
	if err != nil {
		return types.Credential{}, classify("FindByUser", err)
	}
	return cred, nil
}

// ConsumeUse is the single atomic check-and-increment.  The WHERE clause
// re-validates state, expiry and limit at increment time, so two
// concurrent scans racing for the last remaining use can never both see a
// row affected.
func (s *CredentialStore) ConsumeUse(ctx context.Context, id int64, now time.Time) (bool, error) {
	nowMs := now.UTC().UnixMilli()

	var consumed bool
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE credentials
SET usage_count = usage_count + 1,
    updated_at_ms = ?
WHERE id = ?
  AND state = 'active'
  AND (expires_at_ms IS NULL OR expires_at_ms > ?)
  AND (usage_limit IS NULL OR usage_count < usage_limit);
`, nowMs, id, nowMs)
		if err != nil {
			return fmt.Errorf("conditional increment: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		consumed = n == 1
		return nil
	})
	if err != nil {
		return false, classify("ConsumeUse", err)
	}
	return consumed, nil
}

func (s *CredentialStore) Revoke(ctx context.Context, id int64, now time.Time) error {
	nowMs := now.UTC().UnixMilli()

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var state string
		err := tx.QueryRowContext(ctx,
			`SELECT state FROM credentials WHERE id = ?;`, id).Scan(&state)
		if err != nil {
			return fmt.Errorf("load state: %w", err)
		}
		if state == string(types.CredentialStateRevoked) {
			return store.ErrAlreadyRevoked
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE credentials SET state = 'revoked', updated_at_ms = ? WHERE id = ?;
`, nowMs, id); err != nil {
			return fmt.Errorf("set revoked: %w", err)
		}
		return nil
	})
	return classify("Revoke", err)
}

func (s *CredentialStore) MarkExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var flipped int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE credentials
SET state = 'expired', updated_at_ms = ?
WHERE state = 'active'
  AND expires_at_ms IS NOT NULL
  AND expires_at_ms <= ?;
`, cutoffMs, cutoffMs)
		if err != nil {
			return err
		}
		flipped, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, classify("MarkExpiredBefore", err)
	}
	return flipped, nil
}

func scanCredential(row *sql.Row) (types.Credential, error) {
	var (
		cred      types.Credential
		appID     sql.NullInt64
		kind      string
		state     string
		expiresMs sql.NullInt64
		limit     sql.NullInt64
		perms     string
		createdMs int64
		updatedMs int64
	)

	err := row.Scan(
		&cred.ID, &cred.UserID, &appID, &cred.Code, &kind, &state,
		&expiresMs, &limit, &cred.UsageCount, &perms,
		&createdMs, &updatedMs,
	)
	if err != nil {
		return types.Credential{}, err
	}

	cred.Kind = types.CredentialKind(kind)
	cred.State = types.CredentialState(state)
	if appID.Valid {
		v := appID.Int64
		cred.ApplicationID = &v
	}
	if expiresMs.Valid {
		t := time.UnixMilli(expiresMs.Int64).UTC()
		cred.ExpiresAt = &t
	}
	if limit.Valid {
		v := int(limit.Int64)
		cred.UsageLimit = &v
	}
	if err := json.Unmarshal([]byte(perms), &cred.Permissions); err != nil {
		return types.Credential{}, fmt.Errorf("unmarshal permissions: %w", err)
	}
	cred.CreatedAt = time.UnixMilli(createdMs).UTC()
	cred.UpdatedAt = time.UnixMilli(updatedMs).UTC()

	return cred, nil
}

func permsOrEmpty(p []string) []string {
	if p == nil {
		return []string{}
	}
	return p
}
