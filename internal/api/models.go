package api

import (
	"github.com/phrazzld/pathwise/internal/engine"
)

// SubmitAnswerRequest is the body of POST /lessons/{lessonID}/answers.
type SubmitAnswerRequest struct {
	FlashcardID      int64 `json:"flashcard_id"       validate:"required,gt=0"`
	IsCorrect        *bool `json:"is_correct"         validate:"required"`
	TimeSpentSeconds *int  `json:"time_spent_seconds" validate:"omitempty,gte=0"`
}

// CompleteLessonRequest is the body of POST /lessons/{lessonID}/complete.
type CompleteLessonRequest struct {
	Score *int `json:"score" validate:"required,gte=0,lte=100"`
}

// StartReviewSessionRequest is the body of POST /review-sessions. A zero
// limit selects the server default.
type StartReviewSessionRequest struct {
	Mode  string `json:"mode"  validate:"required,oneof=review flashcard struggling"`
	Limit int    `json:"limit" validate:"omitempty,gte=1,lte=100"`
}

// SubmitReviewRequest is the body of POST /review-sessions/{sessionID}/answers.
type SubmitReviewRequest struct {
	FlashcardID      int64 `json:"flashcard_id"       validate:"required,gt=0"`
	IsCorrect        *bool `json:"is_correct"         validate:"required"`
	TimeSpentSeconds *int  `json:"time_spent_seconds" validate:"omitempty,gte=0"`
}

// ResultResponse is the envelope for every engine-backed endpoint.
type ResultResponse struct {
	engine.Result
	TraceID string `json:"trace_id,omitempty"`
}
