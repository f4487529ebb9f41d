package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/config"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
	"golang.org/x/sync/errgroup"
)

// XPService is the append-only experience point ledger.
type XPService interface {
	// Credit appends a transaction. Amount must not be negative.
	Credit(ctx context.Context, userID uuid.UUID, amount int, source domain.XPSource, now time.Time) (*domain.XPTransaction, error)

	// CreditIn is Credit against transaction-bound stores.
	CreditIn(
		ctx context.Context,
		st store.Stores,
		userID uuid.UUID,
		amount int,
		source domain.XPSource,
		now time.Time,
	) (*domain.XPTransaction, error)

	// AwardForAnswer returns the amount and source of the XP event an answer
	// produces. Incorrect answers produce zero-XP events.
	AwardForAnswer(mode domain.ReviewMode, isCorrect bool) (int, domain.XPSource)

	// LessonReward returns the XP for completing lesson.
	LessonReward(lesson *domain.ContentNode) int

	// Total returns the lifetime XP of a user.
	Total(ctx context.Context, userID uuid.UUID) (int, error)

	// Daily returns the XP earned on the calendar day containing day.
	Daily(ctx context.Context, userID uuid.UUID, day time.Time) (int, error)

	// Weekly returns the XP earned in the seven calendar days starting on the
	// day containing weekStart.
	Weekly(ctx context.Context, userID uuid.UUID, weekStart time.Time) (int, error)

	// Summary returns total, today's and this week's XP. Weeks start on Monday.
	Summary(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.XPSummary, error)
}

type xpServiceImpl struct {
	tx     store.Transactor
	cfg    config.XPConfig
	loc    *time.Location
	logger *slog.Logger
}

// NewXPService creates an XPService. Day and week boundaries are taken in loc;
// a nil loc means UTC.
func NewXPService(tx store.Transactor, cfg config.XPConfig, loc *time.Location, logger *slog.Logger) XPService {
	if tx == nil {
		panic("transactor cannot be nil")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &xpServiceImpl{
		tx:     tx,
		cfg:    cfg,
		loc:    loc,
		logger: logger.With(slog.String("component", "xp_service")),
	}
}

var _ XPService = (*xpServiceImpl)(nil)

// Credit implements XPService.Credit
func (s *xpServiceImpl) Credit(
	ctx context.Context,
	userID uuid.UUID,
	amount int,
	source domain.XPSource,
	now time.Time,
) (*domain.XPTransaction, error) {
	return s.CreditIn(ctx, s.tx.Stores(), userID, amount, source, now)
}

// CreditIn implements XPService.CreditIn
func (s *xpServiceImpl) CreditIn(
	ctx context.Context,
	st store.Stores,
	userID uuid.UUID,
	amount int,
	source domain.XPSource,
	now time.Time,
) (*domain.XPTransaction, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidAmount, amount)
	}
	t := &domain.XPTransaction{
		UserID:     userID,
		Amount:     amount,
		Source:     source,
		OccurredAt: now,
	}
	if err := st.XP.Append(ctx, t); err != nil {
		return nil, NewServiceError("xp", "credit", "failed to append transaction", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("xp credited",
		slog.String("user_id", userID.String()),
		slog.Int("amount", amount),
		slog.String("source", string(source)))
	return t, nil
}

// AwardForAnswer implements XPService.AwardForAnswer
func (s *xpServiceImpl) AwardForAnswer(mode domain.ReviewMode, isCorrect bool) (int, domain.XPSource) {
	switch {
	case mode == domain.ReviewModeFlashcard && isCorrect:
		return s.cfg.FlashcardCorrect, domain.XPSourceFlashcardCorrect
	case mode == domain.ReviewModeFlashcard:
		return 0, domain.XPSourceFlashcardWrong
	case mode == domain.ReviewModeStruggling && isCorrect:
		return s.cfg.StrugglingCorrect, domain.XPSourceStrugglingCorrect
	case isCorrect:
		return s.cfg.ReviewCorrect, domain.XPSourceReviewCorrect
	default:
		return 0, domain.XPSourceReviewIncorrect
	}
}

// LessonReward implements XPService.LessonReward
func (s *xpServiceImpl) LessonReward(lesson *domain.ContentNode) int {
	if lesson.XPReward > 0 {
		return lesson.XPReward
	}
	return s.cfg.LessonComplete
}

// Total implements XPService.Total
func (s *xpServiceImpl) Total(ctx context.Context, userID uuid.UUID) (int, error) {
	total, err := s.tx.Stores().XP.Total(ctx, userID)
	if err != nil {
		return 0, NewServiceError("xp", "total", "failed to sum xp", err)
	}
	return total, nil
}

// Daily implements XPService.Daily
func (s *xpServiceImpl) Daily(ctx context.Context, userID uuid.UUID, day time.Time) (int, error) {
	from := s.startOfDay(day)
	return s.sum(ctx, userID, from, from.AddDate(0, 0, 1), "daily")
}

// Weekly implements XPService.Weekly
func (s *xpServiceImpl) Weekly(ctx context.Context, userID uuid.UUID, weekStart time.Time) (int, error) {
	from := s.startOfDay(weekStart)
	return s.sum(ctx, userID, from, from.AddDate(0, 0, 7), "weekly")
}

// Summary implements XPService.Summary
func (s *xpServiceImpl) Summary(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.XPSummary, error) {
	var summary domain.XPSummary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.Total(gctx, userID)
		summary.Total = total
		return err
	})
	g.Go(func() error {
		daily, err := s.Daily(gctx, userID, now)
		summary.Daily = daily
		return err
	})
	g.Go(func() error {
		weekly, err := s.Weekly(gctx, userID, s.startOfWeek(now))
		summary.Weekly = weekly
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *xpServiceImpl) sum(ctx context.Context, userID uuid.UUID, from, to time.Time, op string) (int, error) {
	sum, err := s.tx.Stores().XP.SumBetween(ctx, userID, from, to)
	if err != nil {
		return 0, NewServiceError("xp", op, "failed to sum xp", err)
	}
	return sum, nil
}

func (s *xpServiceImpl) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *xpServiceImpl) startOfWeek(t time.Time) time.Time {
	day := s.startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday is 0
	return day.AddDate(0, 0, -offset)
}
