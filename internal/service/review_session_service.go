package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/config"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
)

// Card sources within a review session.
const (
	CardSourceDue        = "due"
	CardSourceStruggling = "struggling"
)

// SessionCard is one card offered in a review session.
type SessionCard struct {
	FlashcardID    int64      `json:"flashcard_id"`
	Source         string     `json:"source"`
	NextReviewDate *time.Time `json:"next_review_date,omitempty"`
	IntervalDays   int        `json:"interval_days,omitempty"`
	TimesFailed    int        `json:"times_failed,omitempty"`
}

// SessionStart is the result of starting a review session.
type SessionStart struct {
	Session *domain.ReviewSession `json:"session"`
	Cards   []SessionCard         `json:"cards"`
}

// SubmissionOutcome is the result of answering a card in a review session.
type SubmissionOutcome struct {
	Review           *domain.ReviewRecord    `json:"review"`
	Struggling       *domain.StrugglingEntry `json:"struggling,omitempty"`
	ExitedStruggling bool                    `json:"exited_struggling"`
	XPAwarded        int                     `json:"xp_awarded"`
	HeartsDebited    bool                    `json:"hearts_debited"`
	Hearts           *domain.HeartsState     `json:"hearts,omitempty"`
	// PathID is the card's path when hearts were debited, otherwise zero.
	PathID int64 `json:"path_id,omitempty"`
	// Duplicate is true when the card had already been answered in the
	// session; the original outcome is returned and nothing is applied again.
	Duplicate bool `json:"duplicate"`
}

// ReviewSessionService composes review sessions and applies their answers.
type ReviewSessionService interface {
	// StartSession persists a session and composes its cards: due cards
	// first, then struggling cards, without duplicates, up to limit.
	// Mode struggling uses the struggling queue only. A zero limit selects
	// the configured default.
	StartSession(
		ctx context.Context,
		userID uuid.UUID,
		mode domain.ReviewMode,
		limit int,
		now time.Time,
	) (*SessionStart, error)

	// SubmitAnswer schedules the card, credits XP and, in flashcard mode,
	// debits a heart for a wrong answer, all in one transaction.
	// Answering the same card twice in a session returns the first outcome
	// with Duplicate set.
	SubmitAnswer(
		ctx context.Context,
		userID uuid.UUID,
		sessionID uuid.UUID,
		flashcardID int64,
		isCorrect bool,
		timeSpentSeconds *int,
		now time.Time,
	) (*SubmissionOutcome, error)
}

type reviewSessionServiceImpl struct {
	tx        store.Transactor
	scheduler SchedulerService
	xp        XPService
	hearts    HeartsService
	cfg       config.SessionsConfig
	logger    *slog.Logger
}

// NewReviewSessionService creates a ReviewSessionService.
func NewReviewSessionService(
	tx store.Transactor,
	scheduler SchedulerService,
	xp XPService,
	hearts HeartsService,
	cfg config.SessionsConfig,
	logger *slog.Logger,
) ReviewSessionService {
	if tx == nil {
		panic("transactor cannot be nil")
	}
	if scheduler == nil || xp == nil || hearts == nil {
		panic("scheduler, xp and hearts services are required")
	}
	if cfg.MaxLimit <= 0 || cfg.MaxLimit > MaxListLimit {
		cfg.MaxLimit = MaxListLimit
	}
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &reviewSessionServiceImpl{
		tx:        tx,
		scheduler: scheduler,
		xp:        xp,
		hearts:    hearts,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "review_session_service")),
	}
}

var _ ReviewSessionService = (*reviewSessionServiceImpl)(nil)

// StartSession implements ReviewSessionService.StartSession
func (s *reviewSessionServiceImpl) StartSession(
	ctx context.Context,
	userID uuid.UUID,
	mode domain.ReviewMode,
	limit int,
	now time.Time,
) (*SessionStart, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidReviewMode, mode)
	}
	if limit == 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit < 1 || limit > s.cfg.MaxLimit {
		return nil, fmt.Errorf("%w: %d not in 1..%d", domain.ErrInvalidLimit, limit, s.cfg.MaxLimit)
	}

	st := s.tx.Stores()
	cards := make([]SessionCard, 0, limit)
	seen := make(map[int64]struct{}, limit)

	if mode != domain.ReviewModeStruggling {
		due, err := st.Reviews.Due(ctx, userID, now, limit)
		if err != nil {
			return nil, NewServiceError("review_session", "start", "failed to load due cards", err)
		}
		for _, r := range due {
			next := r.NextReviewDate
			cards = append(cards, SessionCard{
				FlashcardID:    r.FlashcardID,
				Source:         CardSourceDue,
				NextReviewDate: &next,
				IntervalDays:   r.IntervalDays,
			})
			seen[r.FlashcardID] = struct{}{}
		}
	}

	if len(cards) < limit {
		struggling, err := st.Struggling.List(ctx, userID, limit)
		if err != nil {
			return nil, NewServiceError("review_session", "start", "failed to load struggling cards", err)
		}
		for _, e := range struggling {
			if len(cards) == limit {
				break
			}
			if _, dup := seen[e.FlashcardID]; dup {
				continue
			}
			cards = append(cards, SessionCard{
				FlashcardID: e.FlashcardID,
				Source:      CardSourceStruggling,
				TimesFailed: e.TimesFailed,
			})
			seen[e.FlashcardID] = struct{}{}
		}
	}

	session := &domain.ReviewSession{
		ID:        uuid.New(),
		UserID:    userID,
		Mode:      mode,
		CreatedAt: now,
	}
	if err := st.Sessions.Create(ctx, session); err != nil {
		return nil, NewServiceError("review_session", "start", "failed to persist session", err)
	}

	log.Info("review session started",
		slog.String("session_id", session.ID.String()),
		slog.String("user_id", userID.String()),
		slog.String("mode", string(mode)),
		slog.Int("card_count", len(cards)))
	return &SessionStart{Session: session, Cards: cards}, nil
}

// SubmitAnswer implements ReviewSessionService.SubmitAnswer
func (s *reviewSessionServiceImpl) SubmitAnswer(
	ctx context.Context,
	userID uuid.UUID,
	sessionID uuid.UUID,
	flashcardID int64,
	isCorrect bool,
	timeSpentSeconds *int,
	now time.Time,
) (*SubmissionOutcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("%w: session_id is required", domain.ErrInvalidID)
	}

	var out *SubmissionOutcome
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		session, err := st.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.UserID != userID {
			log.Warn("review session used by another user",
				slog.String("session_id", sessionID.String()),
				slog.String("user_id", userID.String()))
			return ErrSessionNotOwned
		}

		prior, err := st.Sessions.GetSubmission(ctx, sessionID, flashcardID)
		switch {
		case err == nil:
			out, err = s.replay(ctx, st, prior)
			return err
		case !errors.Is(err, store.ErrSubmissionNotFound):
			return err
		}

		card, err := loadNode(ctx, st.Content, flashcardID, domain.NodeKindFlashcard)
		if err != nil {
			return err
		}

		outcome, err := s.scheduler.RecordOutcomeIn(ctx, st, userID, card, isCorrect, session.Mode, timeSpentSeconds, now)
		if err != nil {
			return err
		}
		out = &SubmissionOutcome{
			Review:           outcome.Review,
			Struggling:       outcome.Struggling,
			ExitedStruggling: outcome.ExitedStruggling,
		}

		amount, source := s.xp.AwardForAnswer(session.Mode, isCorrect)
		if _, err := s.xp.CreditIn(ctx, st, userID, amount, source, now); err != nil {
			return err
		}
		out.XPAwarded = amount

		if session.Mode.DebitsHearts() && !isCorrect {
			path, err := pathOf(ctx, st.Content, card)
			if err != nil {
				return err
			}
			out.Hearts, err = s.hearts.DebitIn(ctx, st, userID, path.ID, now)
			if err != nil {
				return err
			}
			out.HeartsDebited = true
			out.PathID = path.ID
		}

		return st.Sessions.CreateSubmission(ctx, &domain.ReviewSubmission{
			SessionID:     sessionID,
			FlashcardID:   flashcardID,
			UserID:        userID,
			ReviewID:      outcome.Review.ID,
			XPAwarded:     out.XPAwarded,
			HeartsDebited: out.HeartsDebited,
			SubmittedAt:   now,
		})
	})
	if err != nil {
		return nil, NewServiceError("review_session", "submit_answer", "failed to apply answer", err)
	}

	log.Debug("review answer applied",
		slog.String("session_id", sessionID.String()),
		slog.Int64("flashcard_id", flashcardID),
		slog.Bool("is_correct", isCorrect),
		slog.Bool("duplicate", out.Duplicate))
	return out, nil
}

// replay rebuilds the outcome of an answer that was already applied.
func (s *reviewSessionServiceImpl) replay(
	ctx context.Context,
	st store.Stores,
	prior *domain.ReviewSubmission,
) (*SubmissionOutcome, error) {
	review, err := st.Reviews.GetByID(ctx, prior.ReviewID)
	if err != nil {
		return nil, err
	}
	return &SubmissionOutcome{
		Review:        review,
		XPAwarded:     prior.XPAwarded,
		HeartsDebited: prior.HeartsDebited,
		Duplicate:     true,
	}, nil
}
