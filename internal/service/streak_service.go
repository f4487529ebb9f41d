package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/store"
)

// StreakService derives daily activity streaks from review and completion history.
type StreakService interface {
	// CurrentStreak counts consecutive active calendar days ending today,
	// or ending yesterday if the user has not been active yet today.
	CurrentStreak(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
}

type streakServiceImpl struct {
	tx     store.Transactor
	loc    *time.Location
	logger *slog.Logger
}

// NewStreakService creates a StreakService using loc for day boundaries.
// A nil loc means UTC.
func NewStreakService(tx store.Transactor, loc *time.Location, logger *slog.Logger) StreakService {
	if tx == nil {
		panic("transactor cannot be nil")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &streakServiceImpl{
		tx:     tx,
		loc:    loc,
		logger: logger.With(slog.String("component", "streak_service")),
	}
}

// CurrentStreak implements StreakService.CurrentStreak
func (s *streakServiceImpl) CurrentStreak(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	days, err := s.tx.Stores().Activity.ActivityDays(ctx, userID, s.loc)
	if err != nil {
		return 0, NewServiceError("streak", "current_streak", "failed to load activity", err)
	}
	return domain.CurrentStreak(days, domain.DayOf(now, s.loc)), nil
}
