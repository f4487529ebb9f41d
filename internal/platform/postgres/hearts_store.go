package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
)

// PostgresHeartsStore implements the store.HeartsStore interface
// using a PostgreSQL database as the storage backend.
type PostgresHeartsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresHeartsStore creates a new PostgreSQL implementation of the HeartsStore interface.
// GetForUpdate only holds its row lock when db is a transaction.
func NewPostgresHeartsStore(db store.DBTX, logger *slog.Logger) *PostgresHeartsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresHeartsStore{
		db:     db,
		logger: logger.With(slog.String("component", "hearts_store")),
	}
}

// Ensure PostgresHeartsStore implements store.HeartsStore interface
var _ store.HeartsStore = (*PostgresHeartsStore)(nil)

// GetForUpdate implements store.HeartsStore.GetForUpdate
func (s *PostgresHeartsStore) GetForUpdate(
	ctx context.Context,
	userID uuid.UUID,
	pathID int64,
	maxHearts int,
	now time.Time,
) (*domain.HeartsState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	insert := `
		INSERT INTO hearts_states (user_id, path_id, hearts_remaining, max_hearts, last_refill_at, version)
		VALUES ($1, $2, $3, $3, $4, 0)
		ON CONFLICT (user_id, path_id) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, insert, userID, pathID, maxHearts, now); err != nil {
		log.Error("failed to create hearts state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.Int64("path_id", pathID))
		return nil, store.NewStoreError("hearts_state", "create", "insert failed", MapError(err))
	}

	query := `
		SELECT user_id, path_id, hearts_remaining, max_hearts, last_refill_at, version
		FROM hearts_states
		WHERE user_id = $1 AND path_id = $2
		FOR UPDATE`

	var h domain.HeartsState
	err := s.db.QueryRowContext(ctx, query, userID, pathID).Scan(
		&h.UserID,
		&h.PathID,
		&h.HeartsRemaining,
		&h.MaxHearts,
		&h.LastRefillAt,
		&h.Version,
	)
	if err != nil {
		log.Error("failed to lock hearts state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.Int64("path_id", pathID))
		return nil, store.NewStoreError("hearts_state", "get_for_update", "query failed", MapError(err))
	}
	h.LastRefillAt = h.LastRefillAt.UTC()
	return &h, nil
}

// Update implements store.HeartsStore.Update
func (s *PostgresHeartsStore) Update(ctx context.Context, state *domain.HeartsState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE hearts_states
		SET hearts_remaining = $3, max_hearts = $4, last_refill_at = $5, version = version + 1
		WHERE user_id = $1 AND path_id = $2 AND version = $6`

	result, err := s.db.ExecContext(ctx, query,
		state.UserID,
		state.PathID,
		state.HeartsRemaining,
		state.MaxHearts,
		state.LastRefillAt,
		state.Version,
	)
	if err != nil {
		log.Error("failed to update hearts state",
			slog.String("error", err.Error()),
			slog.String("user_id", state.UserID.String()),
			slog.Int64("path_id", state.PathID))
		return store.NewStoreError("hearts_state", "update", "update failed", MapError(err))
	}

	if err := CheckRowsAffected(result, "hearts state"); err != nil {
		if IsNotFoundError(err) {
			log.Warn("hearts state version moved",
				slog.String("user_id", state.UserID.String()),
				slog.Int64("path_id", state.PathID),
				slog.Int64("version", state.Version))
			return fmt.Errorf("%w: hearts state for path %d", store.ErrConflict, state.PathID)
		}
		return store.NewStoreError("hearts_state", "update", "rows affected", err)
	}

	state.Version++
	return nil
}
