package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/domain/srs"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
)

// MaxListLimit caps the number of cards returned by list queries.
const MaxListLimit = 100

// Outcome is the effect of one answer on a card's schedule.
type Outcome struct {
	Review *domain.ReviewRecord `json:"review"`
	// Struggling is the card's queue entry after the answer; nil when the
	// card is not (or no longer) queued.
	Struggling *domain.StrugglingEntry `json:"struggling,omitempty"`
	// ExitedStruggling is true when this answer removed the card from the queue.
	ExitedStruggling bool `json:"exited_struggling"`
}

// SchedulerService schedules flashcard reviews and maintains the struggling queue.
type SchedulerService interface {
	// RecordOutcome appends the review record for an answer and updates the
	// struggling queue in one transaction.
	RecordOutcome(
		ctx context.Context,
		userID uuid.UUID,
		flashcardID int64,
		isCorrect bool,
		mode domain.ReviewMode,
		timeSpentSeconds *int,
		now time.Time,
	) (*Outcome, error)

	// RecordOutcomeIn is RecordOutcome against transaction-bound stores.
	RecordOutcomeIn(
		ctx context.Context,
		st store.Stores,
		userID uuid.UUID,
		flashcard *domain.ContentNode,
		isCorrect bool,
		mode domain.ReviewMode,
		timeSpentSeconds *int,
		now time.Time,
	) (*Outcome, error)

	// GetDueCards returns the current schedule of every card due at now,
	// most overdue first.
	GetDueCards(ctx context.Context, userID uuid.UUID, limit int, now time.Time) ([]*domain.ReviewRecord, error)

	// GetStrugglingCards returns the struggling queue, most failed first.
	GetStrugglingCards(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.StrugglingEntry, error)

	// AddToStrugglingQueue queues a card without counting a failure.
	AddToStrugglingQueue(ctx context.Context, userID uuid.UUID, flashcardID int64, now time.Time) (*domain.StrugglingEntry, error)

	// RemoveFromStrugglingQueue dequeues a card.
	// Returns store.ErrStrugglingNotFound if it was not queued.
	RemoveFromStrugglingQueue(ctx context.Context, userID uuid.UUID, flashcardID int64) error
}

type schedulerServiceImpl struct {
	tx     store.Transactor
	srs    srs.Service
	logger *slog.Logger
}

// NewSchedulerService creates a SchedulerService.
func NewSchedulerService(tx store.Transactor, srsService srs.Service, logger *slog.Logger) SchedulerService {
	if tx == nil {
		panic("transactor cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &schedulerServiceImpl{
		tx:     tx,
		srs:    srsService,
		logger: logger.With(slog.String("component", "scheduler_service")),
	}
}

var _ SchedulerService = (*schedulerServiceImpl)(nil)

// validateLimit checks a requested list size against MaxListLimit.
func validateLimit(limit int) error {
	if limit < 1 || limit > MaxListLimit {
		return fmt.Errorf("%w: %d not in 1..%d", domain.ErrInvalidLimit, limit, MaxListLimit)
	}
	return nil
}

// RecordOutcome implements SchedulerService.RecordOutcome
func (s *schedulerServiceImpl) RecordOutcome(
	ctx context.Context,
	userID uuid.UUID,
	flashcardID int64,
	isCorrect bool,
	mode domain.ReviewMode,
	timeSpentSeconds *int,
	now time.Time,
) (*Outcome, error) {
	var out *Outcome
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		card, err := loadNode(ctx, st.Content, flashcardID, domain.NodeKindFlashcard)
		if err != nil {
			return err
		}
		out, err = s.RecordOutcomeIn(ctx, st, userID, card, isCorrect, mode, timeSpentSeconds, now)
		return err
	})
	if err != nil {
		return nil, NewServiceError("scheduler", "record_outcome", "failed to record outcome", err)
	}
	return out, nil
}

// RecordOutcomeIn implements SchedulerService.RecordOutcomeIn
func (s *schedulerServiceImpl) RecordOutcomeIn(
	ctx context.Context,
	st store.Stores,
	userID uuid.UUID,
	flashcard *domain.ContentNode,
	isCorrect bool,
	mode domain.ReviewMode,
	timeSpentSeconds *int,
	now time.Time,
) (*Outcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if timeSpentSeconds != nil && *timeSpentSeconds < 0 {
		return nil, fmt.Errorf("%w: time spent must not be negative", domain.ErrValidation)
	}

	previous, err := st.Reviews.Latest(ctx, userID, flashcard.ID)
	if err != nil {
		if !errors.Is(err, store.ErrReviewNotFound) {
			return nil, err
		}
		previous = nil
	}

	record, err := s.srs.NextReview(userID, flashcard.ID, previous, isCorrect, mode, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	record.TimeSpentSeconds = timeSpentSeconds
	if err := st.Reviews.Append(ctx, record); err != nil {
		return nil, err
	}

	out := &Outcome{Review: record}

	entry, err := st.Struggling.GetForUpdate(ctx, userID, flashcard.ID)
	if err != nil {
		if !errors.Is(err, store.ErrStrugglingNotFound) {
			return nil, err
		}
		entry = nil
	}

	correctSince := 0
	if isCorrect && entry != nil {
		// the record appended above is included in the count
		correctSince, err = st.Reviews.CountCorrectSince(ctx, userID, flashcard.ID, entry.LastFailedAt)
		if err != nil {
			return nil, err
		}
	}

	switch s.srs.StrugglingTransition(isCorrect, entry, correctSince) {
	case srs.StrugglingRecordFailure:
		out.Struggling, err = st.Struggling.RecordFailure(ctx, userID, flashcard.ID, now)
		if err != nil {
			return nil, err
		}
	case srs.StrugglingExit:
		if err := st.Struggling.Remove(ctx, userID, flashcard.ID); err != nil {
			return nil, err
		}
		out.ExitedStruggling = true
		log.Debug("card left struggling queue",
			slog.String("user_id", userID.String()),
			slog.Int64("flashcard_id", flashcard.ID),
			slog.Int("correct_since_failure", correctSince))
	default:
		out.Struggling = entry
	}

	log.Debug("review outcome recorded",
		slog.String("user_id", userID.String()),
		slog.Int64("flashcard_id", flashcard.ID),
		slog.Bool("is_correct", isCorrect),
		slog.String("mode", string(mode)),
		slog.Int("interval_days", record.IntervalDays),
		slog.Time("next_review_date", record.NextReviewDate))
	return out, nil
}

// GetDueCards implements SchedulerService.GetDueCards
func (s *schedulerServiceImpl) GetDueCards(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	now time.Time,
) ([]*domain.ReviewRecord, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	due, err := s.tx.Stores().Reviews.Due(ctx, userID, now, limit)
	if err != nil {
		return nil, NewServiceError("scheduler", "get_due_cards", "failed to load due cards", err)
	}
	return due, nil
}

// GetStrugglingCards implements SchedulerService.GetStrugglingCards
func (s *schedulerServiceImpl) GetStrugglingCards(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.StrugglingEntry, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	entries, err := s.tx.Stores().Struggling.List(ctx, userID, limit)
	if err != nil {
		return nil, NewServiceError("scheduler", "get_struggling_cards", "failed to load struggling cards", err)
	}
	return entries, nil
}

// AddToStrugglingQueue implements SchedulerService.AddToStrugglingQueue
func (s *schedulerServiceImpl) AddToStrugglingQueue(
	ctx context.Context,
	userID uuid.UUID,
	flashcardID int64,
	now time.Time,
) (*domain.StrugglingEntry, error) {
	var out *domain.StrugglingEntry
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		if _, err := loadNode(ctx, st.Content, flashcardID, domain.NodeKindFlashcard); err != nil {
			return err
		}
		var err error
		out, err = st.Struggling.Add(ctx, userID, flashcardID, now)
		return err
	})
	if err != nil {
		return nil, NewServiceError("scheduler", "add_struggling", "failed to queue card", err)
	}
	return out, nil
}

// RemoveFromStrugglingQueue implements SchedulerService.RemoveFromStrugglingQueue
func (s *schedulerServiceImpl) RemoveFromStrugglingQueue(ctx context.Context, userID uuid.UUID, flashcardID int64) error {
	if err := domain.ValidateID("flashcard_id", flashcardID); err != nil {
		return err
	}
	if err := s.tx.Stores().Struggling.Remove(ctx, userID, flashcardID); err != nil {
		return NewServiceError("scheduler", "remove_struggling", "failed to dequeue card", err)
	}
	return nil
}
