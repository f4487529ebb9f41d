package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
)

// PostgresStrugglingStore implements the store.StrugglingStore interface
// using a PostgreSQL database as the storage backend.
type PostgresStrugglingStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStrugglingStore creates a new PostgreSQL implementation of the StrugglingStore interface.
func NewPostgresStrugglingStore(db store.DBTX, logger *slog.Logger) *PostgresStrugglingStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStrugglingStore{
		db:     db,
		logger: logger.With(slog.String("component", "struggling_store")),
	}
}

// Ensure PostgresStrugglingStore implements store.StrugglingStore interface
var _ store.StrugglingStore = (*PostgresStrugglingStore)(nil)

// RecordFailure implements store.StrugglingStore.RecordFailure
func (s *PostgresStrugglingStore) RecordFailure(
	ctx context.Context,
	userID uuid.UUID,
	flashcardID int64,
	now time.Time,
) (*domain.StrugglingEntry, error) {
	query := `
		INSERT INTO struggling_entries (user_id, flashcard_id, times_failed, last_failed_at, added_at)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT (user_id, flashcard_id) DO UPDATE
		SET times_failed = struggling_entries.times_failed + 1,
			last_failed_at = EXCLUDED.last_failed_at
		RETURNING ` + strugglingColumns

	e, err := scanStrugglingEntry(s.db.QueryRowContext(ctx, query, userID, flashcardID, now))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to record struggling failure",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", flashcardID))
		return nil, store.NewStoreError("struggling_entry", "record_failure", "upsert failed", MapError(err))
	}
	return e, nil
}

// Add implements store.StrugglingStore.Add
func (s *PostgresStrugglingStore) Add(
	ctx context.Context,
	userID uuid.UUID,
	flashcardID int64,
	now time.Time,
) (*domain.StrugglingEntry, error) {
	insert := `
		INSERT INTO struggling_entries (user_id, flashcard_id, times_failed, last_failed_at, added_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (user_id, flashcard_id) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, insert, userID, flashcardID, now); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to add struggling entry",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", flashcardID))
		return nil, store.NewStoreError("struggling_entry", "add", "insert failed", MapError(err))
	}
	return s.Get(ctx, userID, flashcardID)
}

// Get implements store.StrugglingStore.Get
func (s *PostgresStrugglingStore) Get(
	ctx context.Context,
	userID uuid.UUID,
	flashcardID int64,
) (*domain.StrugglingEntry, error) {
	return s.get(ctx, userID, flashcardID, "get", "")
}

// GetForUpdate implements store.StrugglingStore.GetForUpdate
func (s *PostgresStrugglingStore) GetForUpdate(
	ctx context.Context,
	userID uuid.UUID,
	flashcardID int64,
) (*domain.StrugglingEntry, error) {
	return s.get(ctx, userID, flashcardID, "get_for_update", " FOR UPDATE")
}

func (s *PostgresStrugglingStore) get(
	ctx context.Context,
	userID uuid.UUID,
	flashcardID int64,
	op string,
	lock string,
) (*domain.StrugglingEntry, error) {
	query := `SELECT ` + strugglingColumns + `
		FROM struggling_entries
		WHERE user_id = $1 AND flashcard_id = $2` + lock

	e, err := scanStrugglingEntry(s.db.QueryRowContext(ctx, query, userID, flashcardID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrStrugglingNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read struggling entry",
			slog.String("operation", op),
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", flashcardID))
		return nil, store.NewStoreError("struggling_entry", op, "query failed", MapError(err))
	}
	return e, nil
}

// Remove implements store.StrugglingStore.Remove
func (s *PostgresStrugglingStore) Remove(ctx context.Context, userID uuid.UUID, flashcardID int64) error {
	query := `DELETE FROM struggling_entries WHERE user_id = $1 AND flashcard_id = $2`

	result, err := s.db.ExecContext(ctx, query, userID, flashcardID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to remove struggling entry",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", flashcardID))
		return store.NewStoreError("struggling_entry", "remove", "delete failed", MapError(err))
	}
	if err := CheckRowsAffected(result, "struggling entry"); err != nil {
		if IsNotFoundError(err) {
			return store.ErrStrugglingNotFound
		}
		return store.NewStoreError("struggling_entry", "remove", "rows affected", err)
	}
	return nil
}

// List implements store.StrugglingStore.List
func (s *PostgresStrugglingStore) List(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.StrugglingEntry, error) {
	query := `SELECT ` + strugglingColumns + `
		FROM struggling_entries
		WHERE user_id = $1
		ORDER BY times_failed DESC, last_failed_at ASC, flashcard_id ASC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list struggling entries",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, store.NewStoreError("struggling_entry", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*domain.StrugglingEntry, 0, limit)
	for rows.Next() {
		e, err := scanStrugglingEntry(rows)
		if err != nil {
			return nil, store.NewStoreError("struggling_entry", "list", "scan failed", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("struggling_entry", "list", "iteration failed", MapError(err))
	}
	return entries, nil
}
