package engine

import (
	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
)

// Kind names a dispatchable operation.
type Kind string

// Operation kinds.
const (
	KindSubmitAnswer              Kind = "SubmitAnswer"
	KindCompleteLesson            Kind = "CompleteLesson"
	KindGetHearts                 Kind = "GetHearts"
	KindRefillHearts              Kind = "RefillHearts"
	KindUpdateStreak              Kind = "UpdateStreak"
	KindGetXPSummary              Kind = "GetXPSummary"
	KindStartReviewSession        Kind = "StartReviewSession"
	KindSubmitReview              Kind = "SubmitReview"
	KindGetDueCards               Kind = "GetDueCards"
	KindGetStrugglingCards        Kind = "GetStrugglingCards"
	KindAddToStrugglingQueue      Kind = "AddToStrugglingQueue"
	KindRemoveFromStrugglingQueue Kind = "RemoveFromStrugglingQueue"
	KindIsLessonUnlocked          Kind = "IsLessonUnlocked"
	KindIsUnitUnlocked            Kind = "IsUnitUnlocked"
	KindIsPathUnlocked            Kind = "IsPathUnlocked"
)

// Request is a dispatchable operation. The set of implementations is closed:
// every request belongs to exactly one component group below.
type Request interface {
	Kind() Kind
	sealed()
}

// LessonRequest groups the lesson attempt operations.
type LessonRequest interface {
	Request
	lessonRequest()
}

// HeartsRequest groups the hearts economy operations.
type HeartsRequest interface {
	Request
	heartsRequest()
}

// ProgressRequest groups the learner statistics operations.
type ProgressRequest interface {
	Request
	progressRequest()
}

// ReviewRequest groups the review session operations.
type ReviewRequest interface {
	Request
	reviewRequest()
}

// SchedulerRequest groups the spaced repetition queue operations.
type SchedulerRequest interface {
	Request
	schedulerRequest()
}

// UnlockRequest groups the unlock queries.
type UnlockRequest interface {
	Request
	unlockRequest()
	// target returns the queried node and the kind it must have.
	target() (int64, domain.NodeKind)
}

type lessonGroup struct{}

func (lessonGroup) sealed()        {}
func (lessonGroup) lessonRequest() {}

type heartsGroup struct{}

func (heartsGroup) sealed()        {}
func (heartsGroup) heartsRequest() {}

type progressGroup struct{}

func (progressGroup) sealed()          {}
func (progressGroup) progressRequest() {}

type reviewGroup struct{}

func (reviewGroup) sealed()        {}
func (reviewGroup) reviewRequest() {}

type schedulerGroup struct{}

func (schedulerGroup) sealed()           {}
func (schedulerGroup) schedulerRequest() {}

type unlockGroup struct{}

func (unlockGroup) sealed()        {}
func (unlockGroup) unlockRequest() {}

// SubmitAnswer answers a flashcard inside a lesson.
type SubmitAnswer struct {
	lessonGroup
	LessonID         int64
	FlashcardID      int64
	IsCorrect        bool
	TimeSpentSeconds *int
}

// Kind implements Request.
func (SubmitAnswer) Kind() Kind { return KindSubmitAnswer }

// CompleteLesson records a lesson completion with a 0..100 score.
type CompleteLesson struct {
	lessonGroup
	LessonID int64
	Score    int
}

// Kind implements Request.
func (CompleteLesson) Kind() Kind { return KindCompleteLesson }

// GetHearts reads the caller's hearts on a path.
type GetHearts struct {
	heartsGroup
	PathID int64
}

// Kind implements Request.
func (GetHearts) Kind() Kind { return KindGetHearts }

// RefillHearts restores the caller's hearts on a path to the maximum.
type RefillHearts struct {
	heartsGroup
	PathID int64
}

// Kind implements Request.
func (RefillHearts) Kind() Kind { return KindRefillHearts }

// UpdateStreak recomputes the caller's streak after activity on a path.
type UpdateStreak struct {
	progressGroup
	PathID int64
}

// Kind implements Request.
func (UpdateStreak) Kind() Kind { return KindUpdateStreak }

// GetXPSummary reads the caller's total, daily and weekly XP.
type GetXPSummary struct {
	progressGroup
}

// Kind implements Request.
func (GetXPSummary) Kind() Kind { return KindGetXPSummary }

// StartReviewSession composes a review session. A zero Limit selects the default.
type StartReviewSession struct {
	reviewGroup
	Mode  domain.ReviewMode
	Limit int
}

// Kind implements Request.
func (StartReviewSession) Kind() Kind { return KindStartReviewSession }

// SubmitReview answers a card of a review session.
type SubmitReview struct {
	reviewGroup
	SessionID        uuid.UUID
	FlashcardID      int64
	IsCorrect        bool
	TimeSpentSeconds *int
}

// Kind implements Request.
func (SubmitReview) Kind() Kind { return KindSubmitReview }

// GetDueCards lists the caller's due cards. A zero Limit selects the default.
type GetDueCards struct {
	schedulerGroup
	Limit int
}

// Kind implements Request.
func (GetDueCards) Kind() Kind { return KindGetDueCards }

// GetStrugglingCards lists the caller's struggling queue. A zero Limit selects the default.
type GetStrugglingCards struct {
	schedulerGroup
	Limit int
}

// Kind implements Request.
func (GetStrugglingCards) Kind() Kind { return KindGetStrugglingCards }

// AddToStrugglingQueue queues a flashcard manually.
type AddToStrugglingQueue struct {
	schedulerGroup
	FlashcardID int64
}

// Kind implements Request.
func (AddToStrugglingQueue) Kind() Kind { return KindAddToStrugglingQueue }

// RemoveFromStrugglingQueue dequeues a flashcard manually.
type RemoveFromStrugglingQueue struct {
	schedulerGroup
	FlashcardID int64
}

// Kind implements Request.
func (RemoveFromStrugglingQueue) Kind() Kind { return KindRemoveFromStrugglingQueue }

// IsLessonUnlocked asks whether a lesson is accessible.
type IsLessonUnlocked struct {
	unlockGroup
	LessonID int64
}

// Kind implements Request.
func (IsLessonUnlocked) Kind() Kind { return KindIsLessonUnlocked }

func (r IsLessonUnlocked) target() (int64, domain.NodeKind) {
	return r.LessonID, domain.NodeKindLesson
}

// IsUnitUnlocked asks whether a unit is accessible.
type IsUnitUnlocked struct {
	unlockGroup
	UnitID int64
}

// Kind implements Request.
func (IsUnitUnlocked) Kind() Kind { return KindIsUnitUnlocked }

func (r IsUnitUnlocked) target() (int64, domain.NodeKind) {
	return r.UnitID, domain.NodeKindUnit
}

// IsPathUnlocked asks whether a path is accessible.
type IsPathUnlocked struct {
	unlockGroup
	PathID int64
}

// Kind implements Request.
func (IsPathUnlocked) Kind() Kind { return KindIsPathUnlocked }

func (r IsPathUnlocked) target() (int64, domain.NodeKind) {
	return r.PathID, domain.NodeKindPath
}
