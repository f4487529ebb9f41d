package srs

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
)

// calculateNewInterval determines the interval in days after an answer.
//
// Parameters:
//   - previous: the latest review record for the card, or nil for a card never reviewed
//   - isCorrect: whether the learner recalled the card
//   - params: configuration parameters for the algorithm
//
// Algorithm behavior:
//   - A failure always resets the interval to params.FailureIntervalDays
//   - The first ever success uses params.FirstIntervalDays
//   - Later successes multiply the previous interval by params.GrowthFactor,
//     rounding up so that every success lengthens the interval, and clamp the
//     result to params.MaxIntervalDays
func calculateNewInterval(previous *domain.ReviewRecord, isCorrect bool, params *Params) int {
	if !isCorrect {
		return params.FailureIntervalDays
	}

	if previous == nil {
		return params.FirstIntervalDays
	}

	old := previous.IntervalDays
	if old < 1 {
		old = 1
	}

	grown := int(math.Ceil(float64(old) * params.GrowthFactor))
	if grown <= old {
		grown = old + 1
	}
	if grown > params.MaxIntervalDays {
		grown = params.MaxIntervalDays
	}

	return grown
}

// calculateNextReviewDate converts an interval into the next due date.
func calculateNextReviewDate(intervalDays int, now time.Time) time.Time {
	return now.AddDate(0, 0, intervalDays)
}

// calculateNextRecord creates the review record appended for an answer.
//
// The previous record is never modified; the new record carries the full
// schedule so that the latest row alone determines when the card is due.
func calculateNextRecord(
	userID uuid.UUID,
	flashcardID int64,
	previous *domain.ReviewRecord,
	isCorrect bool,
	mode domain.ReviewMode,
	now time.Time,
	params *Params,
) *domain.ReviewRecord {
	interval := calculateNewInterval(previous, isCorrect, params)

	return &domain.ReviewRecord{
		UserID:         userID,
		FlashcardID:    flashcardID,
		ReviewMode:     mode,
		IsCorrect:      isCorrect,
		ReviewDate:     now,
		NextReviewDate: calculateNextReviewDate(interval, now),
		IntervalDays:   interval,
	}
}

// StrugglingTransition is what the struggling queue must do after an answer.
type StrugglingTransition int

// Possible struggling queue transitions.
const (
	// StrugglingNone leaves the queue untouched.
	StrugglingNone StrugglingTransition = iota
	// StrugglingRecordFailure inserts the entry or increments its failure count.
	StrugglingRecordFailure
	// StrugglingExit removes the entry.
	StrugglingExit
)

// decideStrugglingTransition applies the queue membership rules.
//
// correctSinceFailure counts correct answers recorded after the entry's
// LastFailedAt, including the answer being processed. It is ignored when the
// card has no entry.
func decideStrugglingTransition(
	isCorrect bool,
	hasEntry bool,
	correctSinceFailure int,
	params *Params,
) StrugglingTransition {
	if !isCorrect {
		return StrugglingRecordFailure
	}
	if hasEntry && correctSinceFailure >= params.StrugglingExitStreak {
		return StrugglingExit
	}
	return StrugglingNone
}
