package srs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
)

// Common errors
var (
	ErrEmptyUserID       = errors.New("user ID cannot be empty")
	ErrInvalidFlashcard  = errors.New("flashcard ID must be positive")
	ErrMismatchedHistory = errors.New("previous review belongs to a different user or flashcard")
)

// Service defines the interface for scheduling algorithm operations
type Service interface {
	// NextReview computes the record to append after an answer.
	// previous is the latest record for the card or nil for a new card.
	NextReview(
		userID uuid.UUID,
		flashcardID int64,
		previous *domain.ReviewRecord,
		isCorrect bool,
		mode domain.ReviewMode,
		now time.Time,
	) (*domain.ReviewRecord, error)

	// StrugglingTransition decides how the struggling queue changes after an answer.
	StrugglingTransition(isCorrect bool, entry *domain.StrugglingEntry, correctSinceFailure int) StrugglingTransition

	// Params exposes the parameters the service schedules with.
	Params() Params
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new scheduling service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new scheduling service with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// NextReview implements Service.NextReview
func (s *defaultService) NextReview(
	userID uuid.UUID,
	flashcardID int64,
	previous *domain.ReviewRecord,
	isCorrect bool,
	mode domain.ReviewMode,
	now time.Time,
) (*domain.ReviewRecord, error) {
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	if flashcardID <= 0 {
		return nil, ErrInvalidFlashcard
	}
	if !mode.Valid() {
		return nil, domain.ErrInvalidReviewMode
	}
	if previous != nil && (previous.UserID != userID || previous.FlashcardID != flashcardID) {
		return nil, ErrMismatchedHistory
	}

	return calculateNextRecord(userID, flashcardID, previous, isCorrect, mode, now, s.params), nil
}

// StrugglingTransition implements Service.StrugglingTransition
func (s *defaultService) StrugglingTransition(
	isCorrect bool,
	entry *domain.StrugglingEntry,
	correctSinceFailure int,
) StrugglingTransition {
	return decideStrugglingTransition(isCorrect, entry != nil, correctSinceFailure, s.params)
}

// Params implements Service.Params
func (s *defaultService) Params() Params {
	return *s.params
}
