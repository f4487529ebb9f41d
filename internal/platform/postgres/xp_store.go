package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
)

// PostgresXPStore implements the store.XPStore interface
// over the append-only xp_transactions table.
type PostgresXPStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresXPStore creates a new PostgreSQL implementation of the XPStore interface.
func NewPostgresXPStore(db store.DBTX, logger *slog.Logger) *PostgresXPStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresXPStore{
		db:     db,
		logger: logger.With(slog.String("component", "xp_store")),
	}
}

// Ensure PostgresXPStore implements store.XPStore interface
var _ store.XPStore = (*PostgresXPStore)(nil)

// Append implements store.XPStore.Append
func (s *PostgresXPStore) Append(ctx context.Context, tx *domain.XPTransaction) error {
	if tx.Amount < 0 {
		return store.NewStoreError("xp_transaction", "append", "negative amount",
			errors.Join(store.ErrInvalidEntity, domain.ErrInvalidAmount))
	}

	query := `
		INSERT INTO xp_transactions (user_id, amount, source, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query, tx.UserID, tx.Amount, tx.Source, tx.OccurredAt).Scan(&tx.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to append xp transaction",
			slog.String("error", err.Error()),
			slog.String("user_id", tx.UserID.String()),
			slog.String("source", string(tx.Source)))
		return store.NewStoreError("xp_transaction", "append", "insert failed", MapError(err))
	}
	return nil
}

// Total implements store.XPStore.Total
func (s *PostgresXPStore) Total(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM xp_transactions WHERE user_id = $1`

	var total int
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, s.sumError(ctx, err, "total")
	}
	return total, nil
}

// SumBetween implements store.XPStore.SumBetween
func (s *PostgresXPStore) SumBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM xp_transactions
		WHERE user_id = $1 AND occurred_at >= $2 AND occurred_at < $3`

	var sum int
	if err := s.db.QueryRowContext(ctx, query, userID, from, to).Scan(&sum); err != nil {
		return 0, s.sumError(ctx, err, "sum_between")
	}
	return sum, nil
}

func (s *PostgresXPStore) sumError(ctx context.Context, err error, op string) error {
	logger.FromContextOrDefault(ctx, s.logger).Error("failed to sum xp",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return store.NewStoreError("xp_transaction", op, "query failed", MapError(err))
}
