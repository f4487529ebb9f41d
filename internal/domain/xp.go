package domain

import (
	"time"

	"github.com/google/uuid"
)

// XPSource names the learner action an XP transaction rewards.
type XPSource string

// Known XP sources.
const (
	XPSourceReviewCorrect     XPSource = "review_correct"
	XPSourceReviewIncorrect   XPSource = "review_incorrect"
	XPSourceFlashcardCorrect  XPSource = "flashcard_correct"
	XPSourceFlashcardWrong    XPSource = "flashcard_incorrect"
	XPSourceStrugglingCorrect XPSource = "struggling_correct"
	XPSourceLessonComplete    XPSource = "lesson_complete"
)

// XPTransaction is one append-only XP ledger entry. Amount is never negative:
// penalties are recorded as zero-XP events.
type XPTransaction struct {
	ID         int64     `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Amount     int       `json:"amount"`
	Source     XPSource  `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

// XPSummary aggregates a user's XP.
type XPSummary struct {
	Total  int `json:"total"`
	Daily  int `json:"daily"`
	Weekly int `json:"weekly"`
}
