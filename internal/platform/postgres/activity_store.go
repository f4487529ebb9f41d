package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
)

// PostgresActivityStore implements the store.ActivityStore interface over
// review_records and progress_records.
type PostgresActivityStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresActivityStore creates a new PostgreSQL implementation of the ActivityStore interface.
func NewPostgresActivityStore(db store.DBTX, logger *slog.Logger) *PostgresActivityStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresActivityStore{
		db:     db,
		logger: logger.With(slog.String("component", "activity_store")),
	}
}

// Ensure PostgresActivityStore implements store.ActivityStore interface
var _ store.ActivityStore = (*PostgresActivityStore)(nil)

// ActivityDays implements store.ActivityStore.ActivityDays
// Day boundaries are computed by PostgreSQL in the requested time zone.
func (s *PostgresActivityStore) ActivityDays(
	ctx context.Context,
	userID uuid.UUID,
	loc *time.Location,
) ([]domain.CalendarDay, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if loc == nil {
		loc = time.UTC
	}

	query := `
		SELECT (review_date AT TIME ZONE $2)::date AS day
		FROM review_records
		WHERE user_id = $1
		UNION
		SELECT (completed_at AT TIME ZONE $2)::date
		FROM progress_records
		WHERE user_id = $1
		ORDER BY day DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, loc.String())
	if err != nil {
		log.Error("failed to query activity days",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, store.NewStoreError("activity", "days", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var days []domain.CalendarDay
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, store.NewStoreError("activity", "days", "scan failed", err)
		}
		y, m, d := day.Date()
		days = append(days, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("activity", "days", "iteration failed", MapError(err))
	}
	return days, nil
}
