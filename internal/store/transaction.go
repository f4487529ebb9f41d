package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/pathwise/internal/platform/logger"
)

// TxFn is a function that executes within a database transaction.
// The transaction is committed if the function returns nil, or rolled back if it returns an error.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction executes fn within a database transaction.
//
// The transaction is rolled back when fn returns an error or panics; a panic
// is re-raised after the rollback. Begin and commit failures are wrapped in
// ErrTransactionFailed, while an error returned by fn is passed through
// unchanged so callers can still match its sentinel.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: begin: %v", ErrTransactionFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to roll back transaction after panic",
					slog.String("error", rbErr.Error()),
					slog.Any("panic", p))
			} else {
				log.Error("rolled back transaction after panic",
					slog.Any("panic", p))
			}
			// ALLOW-PANIC: propagating caught panic from transaction
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return fmt.Errorf(
				"error rolling back transaction: %v (original error: %w)",
				rbErr,
				err,
			)
		}
		log.Debug("rolled back transaction due to error",
			slog.String("error", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: commit: %v", ErrTransactionFailed, err)
	}

	log.Debug("transaction committed successfully")
	return nil
}
