package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"passgate/internal/passgate/store"
)

// classify maps driver-level failures onto the store's error taxonomy.
// Deadline and cancellation errors become store.ErrTimeout so the service
// layer can retry them instead of reporting a validity failure.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, store.ErrTimeout)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
