package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewMode identifies the flow in which a flashcard was answered.
type ReviewMode string

// Review modes.
const (
	// ReviewModeReview is the standalone review session; hearts never apply.
	ReviewModeReview ReviewMode = "review"
	// ReviewModeFlashcard is the lesson-embedded answer path; wrong answers cost a heart.
	ReviewModeFlashcard ReviewMode = "flashcard"
	// ReviewModeStruggling reviews only the struggling queue.
	ReviewModeStruggling ReviewMode = "struggling"
)

// Valid reports whether m is a known review mode.
func (m ReviewMode) Valid() bool {
	switch m {
	case ReviewModeReview, ReviewModeFlashcard, ReviewModeStruggling:
		return true
	default:
		return false
	}
}

// DebitsHearts reports whether incorrect answers in this mode consume hearts.
func (m ReviewMode) DebitsHearts() bool {
	return m == ReviewModeFlashcard
}

// Validation errors for review records.
var (
	ErrEmptyReviewUserID = errors.New("review user ID cannot be empty")
	ErrInvalidInterval   = errors.New("interval must be at least 1 day")
)

// ReviewRecord is one answer in the append-only review history.
// The most recent record per (user, flashcard), ordered by ReviewDate then ID,
// holds the card's current schedule.
type ReviewRecord struct {
	ID               int64      `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	FlashcardID      int64      `json:"flashcard_id"`
	ReviewMode       ReviewMode `json:"review_mode"`
	IsCorrect        bool       `json:"is_correct"`
	ReviewDate       time.Time  `json:"review_date"`
	NextReviewDate   time.Time  `json:"next_review_date"`
	IntervalDays     int        `json:"interval_days"`
	TimeSpentSeconds *int       `json:"time_spent_seconds,omitempty"`
}

// Validate checks the record's invariants.
func (r *ReviewRecord) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrEmptyReviewUserID
	}
	if err := ValidateID("flashcard_id", r.FlashcardID); err != nil {
		return err
	}
	if !r.ReviewMode.Valid() {
		return ErrInvalidReviewMode
	}
	if r.IntervalDays < 1 {
		return ErrInvalidInterval
	}
	return nil
}

// IsDue reports whether the card should be reviewed at now.
func (r *ReviewRecord) IsDue(now time.Time) bool {
	return !r.NextReviewDate.After(now)
}

// Overdue returns how long the card has been due at now; negative if not yet due.
func (r *ReviewRecord) Overdue(now time.Time) time.Duration {
	return now.Sub(r.NextReviewDate)
}

// StrugglingEntry marks a flashcard the user keeps failing.
// There is at most one entry per (user, flashcard).
type StrugglingEntry struct {
	UserID       uuid.UUID `json:"user_id"`
	FlashcardID  int64     `json:"flashcard_id"`
	TimesFailed  int       `json:"times_failed"`
	LastFailedAt time.Time `json:"last_failed_at"`
	AddedAt      time.Time `json:"added_at"`
}
