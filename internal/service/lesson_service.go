package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
)

// LessonAnswer is the result of answering a flashcard inside a lesson.
type LessonAnswer struct {
	Review          *domain.ReviewRecord `json:"review"`
	Hearts          *domain.HeartsState  `json:"hearts"`
	XPDelta         int                  `json:"xp_delta"`
	LessonCompleted bool                 `json:"lesson_completed"`
	PathID          int64                `json:"path_id"`
}

// LessonCompletion is the result of completing a lesson.
type LessonCompletion struct {
	Progress *domain.ProgressRecord `json:"progress"`
	XPDelta  int                    `json:"xp_delta"`
	// FirstCompletion is false when the lesson had been completed before;
	// only the best score may have changed.
	FirstCompletion bool `json:"first_completion"`
	// Completed lists the lesson and every unit or path it completed.
	Completed     []int64 `json:"completed"`
	NewlyUnlocked []int64 `json:"newly_unlocked"`
	PathID        int64   `json:"path_id"`
}

// LessonService drives the lesson attempt flow.
type LessonService interface {
	// SubmitAnswer records an answer to one of the lesson's flashcards.
	// The lesson must be unlocked for the caller (domain.ErrLocked) and the
	// flashcard must belong to it (ErrCardNotInLesson). A wrong answer
	// debits a heart on the lesson's path; with no hearts left the whole
	// answer is rejected with domain.ErrInsufficientHearts.
	SubmitAnswer(
		ctx context.Context,
		identity domain.Identity,
		lessonID int64,
		flashcardID int64,
		isCorrect bool,
		timeSpentSeconds *int,
		now time.Time,
	) (*LessonAnswer, error)

	// CompleteLesson records a completion with a 0..100 score. The first
	// completion credits the lesson reward and completes the enclosing unit
	// and path once all their children are complete.
	CompleteLesson(
		ctx context.Context,
		identity domain.Identity,
		lessonID int64,
		score int,
		now time.Time,
	) (*LessonCompletion, error)
}

type lessonServiceImpl struct {
	tx        store.Transactor
	unlock    UnlockService
	scheduler SchedulerService
	hearts    HeartsService
	xp        XPService
	logger    *slog.Logger
}

// NewLessonService creates a LessonService.
func NewLessonService(
	tx store.Transactor,
	unlock UnlockService,
	scheduler SchedulerService,
	hearts HeartsService,
	xp XPService,
	logger *slog.Logger,
) LessonService {
	if tx == nil {
		panic("transactor cannot be nil")
	}
	if unlock == nil || scheduler == nil || hearts == nil || xp == nil {
		panic("unlock, scheduler, hearts and xp services are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &lessonServiceImpl{
		tx:        tx,
		unlock:    unlock,
		scheduler: scheduler,
		hearts:    hearts,
		xp:        xp,
		logger:    logger.With(slog.String("component", "lesson_service")),
	}
}

var _ LessonService = (*lessonServiceImpl)(nil)

// enterLesson loads an unlocked lesson and its path.
func (s *lessonServiceImpl) enterLesson(
	ctx context.Context,
	st store.Stores,
	identity domain.Identity,
	lessonID int64,
) (*domain.ContentNode, *domain.ContentNode, error) {
	lesson, err := loadNode(ctx, st.Content, lessonID, domain.NodeKindLesson)
	if err != nil {
		return nil, nil, err
	}
	unlocked, err := s.unlock.IsUnlockedIn(ctx, st, identity, lesson)
	if err != nil {
		if errors.Is(err, ErrContentIntegrity) {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrLocked, err)
		}
		return nil, nil, err
	}
	if !unlocked {
		return nil, nil, fmt.Errorf("%w: lesson %d", domain.ErrLocked, lessonID)
	}
	path, err := pathOf(ctx, st.Content, lesson)
	if err != nil {
		return nil, nil, err
	}
	return lesson, path, nil
}

// SubmitAnswer implements LessonService.SubmitAnswer
func (s *lessonServiceImpl) SubmitAnswer(
	ctx context.Context,
	identity domain.Identity,
	lessonID int64,
	flashcardID int64,
	isCorrect bool,
	timeSpentSeconds *int,
	now time.Time,
) (*LessonAnswer, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.ValidateID("flashcard_id", flashcardID); err != nil {
		return nil, err
	}

	var out *LessonAnswer
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		lesson, path, err := s.enterLesson(ctx, st, identity, lessonID)
		if err != nil {
			return err
		}

		card, err := st.Content.GetNode(ctx, flashcardID)
		if err != nil {
			if errors.Is(err, store.ErrContentNotFound) {
				return ErrCardNotInLesson
			}
			return err
		}
		if card.Kind != domain.NodeKindFlashcard || !card.HasParent() || *card.ParentID != lesson.ID {
			return ErrCardNotInLesson
		}

		outcome, err := s.scheduler.RecordOutcomeIn(
			ctx, st, identity.UserID, card, isCorrect, domain.ReviewModeFlashcard, timeSpentSeconds, now,
		)
		if err != nil {
			return err
		}

		amount, source := s.xp.AwardForAnswer(domain.ReviewModeFlashcard, isCorrect)
		if _, err := s.xp.CreditIn(ctx, st, identity.UserID, amount, source, now); err != nil {
			return err
		}

		var hearts *domain.HeartsState
		if isCorrect {
			hearts, err = s.hearts.GetStateIn(ctx, st, identity.UserID, path.ID, now)
		} else {
			hearts, err = s.hearts.DebitIn(ctx, st, identity.UserID, path.ID, now)
		}
		if err != nil {
			return err
		}

		completed := true
		if _, err := st.Progress.Get(ctx, identity.UserID, lesson.ID); err != nil {
			if !errors.Is(err, store.ErrProgressNotFound) {
				return err
			}
			completed = false
		}

		out = &LessonAnswer{
			Review:          outcome.Review,
			Hearts:          hearts,
			XPDelta:         amount,
			LessonCompleted: completed,
			PathID:          path.ID,
		}
		return nil
	})
	if err != nil {
		return nil, NewServiceError("lesson", "submit_answer", "failed to apply answer", err)
	}

	log.Debug("lesson answer applied",
		slog.String("user_id", identity.UserID.String()),
		slog.Int64("lesson_id", lessonID),
		slog.Int64("flashcard_id", flashcardID),
		slog.Bool("is_correct", isCorrect),
		slog.Int("hearts_remaining", out.Hearts.HeartsRemaining))
	return out, nil
}

// CompleteLesson implements LessonService.CompleteLesson
func (s *lessonServiceImpl) CompleteLesson(
	ctx context.Context,
	identity domain.Identity,
	lessonID int64,
	score int,
	now time.Time,
) (*LessonCompletion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidScore, score)
	}

	var out *LessonCompletion
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		lesson, path, err := s.enterLesson(ctx, st, identity, lessonID)
		if err != nil {
			return err
		}

		record, err := domain.NewProgressRecord(identity.UserID, lesson, score, now)
		if err != nil {
			return err
		}
		stored, created, err := st.Progress.Upsert(ctx, record)
		if err != nil {
			return err
		}

		out = &LessonCompletion{
			Progress:        stored,
			FirstCompletion: created,
			PathID:          path.ID,
			Completed:       []int64{},
			NewlyUnlocked:   []int64{},
		}
		if !created {
			return nil
		}

		out.XPDelta = s.xp.LessonReward(lesson)
		if _, err := s.xp.CreditIn(ctx, st, identity.UserID, out.XPDelta, domain.XPSourceLessonComplete, now); err != nil {
			return err
		}

		completed, err := s.cascade(ctx, st, identity, lesson, now)
		if err != nil {
			return err
		}
		for _, node := range completed {
			out.Completed = append(out.Completed, node.ID)
			unlocked, err := s.unlock.NewlyUnlockedIn(ctx, st, identity, node)
			if err != nil && !errors.Is(err, ErrContentIntegrity) {
				return err
			}
			out.NewlyUnlocked = append(out.NewlyUnlocked, unlocked...)
		}
		return nil
	})
	if err != nil {
		return nil, NewServiceError("lesson", "complete_lesson", "failed to complete lesson", err)
	}

	log.Info("lesson completed",
		slog.String("user_id", identity.UserID.String()),
		slog.Int64("lesson_id", lessonID),
		slog.Int("score", out.Progress.Score),
		slog.Bool("first_completion", out.FirstCompletion),
		slog.Any("completed", out.Completed),
		slog.Any("newly_unlocked", out.NewlyUnlocked))
	return out, nil
}

// cascade returns lesson followed by every ancestor unit or path whose
// children are now all complete, recording progress for the ancestors.
// An ancestor's score is the mean of its children's best scores.
func (s *lessonServiceImpl) cascade(
	ctx context.Context,
	st store.Stores,
	identity domain.Identity,
	lesson *domain.ContentNode,
	now time.Time,
) ([]*domain.ContentNode, error) {
	completed := []*domain.ContentNode{lesson}

	node := lesson
	for {
		parent, err := parentOf(ctx, st.Content, node)
		if err != nil {
			return nil, err
		}
		if !parent.Kind.Completable() {
			return completed, nil
		}

		children, err := st.Content.ListChildren(ctx, parent.ID)
		if err != nil {
			return nil, err
		}
		done, err := st.Progress.CountCompletedChildren(ctx, identity.UserID, parent.ID)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 || done < len(children) {
			return completed, nil
		}

		total := 0
		for _, child := range children {
			p, err := st.Progress.Get(ctx, identity.UserID, child.ID)
			if err != nil {
				return nil, err
			}
			total += p.Score
		}
		score := (total + len(children)/2) / len(children)

		record, err := domain.NewProgressRecord(identity.UserID, parent, score, now)
		if err != nil {
			return nil, err
		}
		if _, created, err := st.Progress.Upsert(ctx, record); err != nil {
			return nil, err
		} else if !created {
			return completed, nil
		}

		completed = append(completed, parent)
		node = parent
	}
}
