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

// PostgresReviewStore implements the store.ReviewStore interface
// over the append-only review_records table.
type PostgresReviewStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewStore creates a new PostgreSQL implementation of the ReviewStore interface.
func NewPostgresReviewStore(db store.DBTX, logger *slog.Logger) *PostgresReviewStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReviewStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_store")),
	}
}

// Ensure PostgresReviewStore implements store.ReviewStore interface
var _ store.ReviewStore = (*PostgresReviewStore)(nil)

// Append implements store.ReviewStore.Append
func (s *PostgresReviewStore) Append(ctx context.Context, record *domain.ReviewRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		return store.NewStoreError("review_record", "append", "invalid record",
			errors.Join(store.ErrInvalidEntity, err))
	}

	query := `
		INSERT INTO review_records (
			user_id, flashcard_id, review_mode, is_correct,
			review_date, next_review_date, interval_days, time_spent_seconds
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		record.UserID,
		record.FlashcardID,
		record.ReviewMode,
		record.IsCorrect,
		record.ReviewDate,
		record.NextReviewDate,
		record.IntervalDays,
		nullableInt(record.TimeSpentSeconds),
	).Scan(&record.ID)
	if err != nil {
		log.Error("failed to append review record",
			slog.String("error", err.Error()),
			slog.String("user_id", record.UserID.String()),
			slog.Int64("flashcard_id", record.FlashcardID))
		return store.NewStoreError("review_record", "append", "insert failed", MapError(err))
	}

	log.Debug("review record appended",
		slog.Int64("review_id", record.ID),
		slog.Int64("flashcard_id", record.FlashcardID),
		slog.Bool("is_correct", record.IsCorrect),
		slog.Int("interval_days", record.IntervalDays))
	return nil
}

// GetByID implements store.ReviewStore.GetByID
func (s *PostgresReviewStore) GetByID(ctx context.Context, id int64) (*domain.ReviewRecord, error) {
	query := `SELECT ` + reviewColumns + ` FROM review_records WHERE id = $1`

	r, err := scanReviewRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, s.mapReadError(ctx, err, "get_by_id")
	}
	return r, nil
}

// Latest implements store.ReviewStore.Latest
func (s *PostgresReviewStore) Latest(
	ctx context.Context,
	userID uuid.UUID,
	flashcardID int64,
) (*domain.ReviewRecord, error) {
	query := `SELECT ` + reviewColumns + `
		FROM review_records
		WHERE user_id = $1 AND flashcard_id = $2
		ORDER BY review_date DESC, id DESC
		LIMIT 1`

	r, err := scanReviewRecord(s.db.QueryRowContext(ctx, query, userID, flashcardID))
	if err != nil {
		return nil, s.mapReadError(ctx, err, "latest")
	}
	return r, nil
}

// Due implements store.ReviewStore.Due
func (s *PostgresReviewStore) Due(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.ReviewRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + reviewColumns + `
		FROM (
			SELECT DISTINCT ON (flashcard_id) ` + reviewColumns + `
			FROM review_records
			WHERE user_id = $1
			ORDER BY flashcard_id, review_date DESC, id DESC
		) latest
		WHERE next_review_date <= $2
		ORDER BY next_review_date ASC, flashcard_id ASC
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, userID, now, limit)
	if err != nil {
		log.Error("failed to query due cards",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, store.NewStoreError("review_record", "due", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	records := make([]*domain.ReviewRecord, 0, limit)
	for rows.Next() {
		r, err := scanReviewRecord(rows)
		if err != nil {
			return nil, store.NewStoreError("review_record", "due", "scan failed", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_record", "due", "iteration failed", MapError(err))
	}
	return records, nil
}

// CountCorrectSince implements store.ReviewStore.CountCorrectSince
func (s *PostgresReviewStore) CountCorrectSince(
	ctx context.Context,
	userID uuid.UUID,
	flashcardID int64,
	since time.Time,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM review_records
		WHERE user_id = $1 AND flashcard_id = $2 AND is_correct AND review_date > $3`

	var n int
	if err := s.db.QueryRowContext(ctx, query, userID, flashcardID, since).Scan(&n); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count correct reviews",
			slog.String("error", err.Error()),
			slog.Int64("flashcard_id", flashcardID))
		return 0, store.NewStoreError("review_record", "count_correct", "query failed", MapError(err))
	}
	return n, nil
}

func (s *PostgresReviewStore) mapReadError(ctx context.Context, err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrReviewNotFound
	}
	logger.FromContextOrDefault(ctx, s.logger).Error("failed to read review record",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return store.NewStoreError("review_record", op, "query failed", MapError(err))
}
