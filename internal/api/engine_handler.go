package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/pathwise/internal/api/shared"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/engine"
	"github.com/phrazzld/pathwise/internal/platform/logger"
)

// Dispatcher executes engine requests on behalf of an identity.
type Dispatcher interface {
	Dispatch(ctx context.Context, identity domain.Identity, req engine.Request) engine.Result
}

// EngineHandler exposes the engine's commands and queries over HTTP.
type EngineHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewEngineHandler creates an EngineHandler.
func NewEngineHandler(dispatcher Dispatcher, logger *slog.Logger) *EngineHandler {
	if dispatcher == nil {
		panic("dispatcher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EngineHandler{
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "engine_handler")),
	}
}

// RegisterRoutes mounts the engine endpoints on r. The caller is expected to
// have applied authentication middleware.
func (h *EngineHandler) RegisterRoutes(r chi.Router) {
	r.Post("/lessons/{lessonID}/answers", h.SubmitAnswer)
	r.Post("/lessons/{lessonID}/complete", h.CompleteLesson)
	r.Get("/lessons/{lessonID}/unlocked", h.IsLessonUnlocked)
	r.Get("/units/{unitID}/unlocked", h.IsUnitUnlocked)
	r.Get("/paths/{pathID}/unlocked", h.IsPathUnlocked)

	r.Get("/paths/{pathID}/hearts", h.GetHearts)
	r.Post("/paths/{pathID}/hearts/refill", h.RefillHearts)
	r.Post("/paths/{pathID}/streak", h.UpdateStreak)
	r.Get("/me/xp", h.GetXPSummary)

	r.Post("/review-sessions", h.StartReviewSession)
	r.Post("/review-sessions/{sessionID}/answers", h.SubmitReview)
	r.Get("/reviews/due", h.GetDueCards)
	r.Get("/reviews/struggling", h.GetStrugglingCards)
	r.Put("/reviews/struggling/{flashcardID}", h.AddToStrugglingQueue)
	r.Delete("/reviews/struggling/{flashcardID}", h.RemoveFromStrugglingQueue)
}

// dispatch runs req for the authenticated caller and writes the result
// envelope. successStatus is used when the result succeeds.
func (h *EngineHandler) dispatch(w http.ResponseWriter, r *http.Request, req engine.Request, successStatus int) {
	identity, ok := shared.GetIdentity(r.Context())
	if !ok {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("identity missing from request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, shared.CodeUnauthorized, "authentication required")
		return
	}

	res := h.dispatcher.Dispatch(r.Context(), identity, req)

	status := successStatus
	if !res.Success {
		status = StatusForCode(res.Code)
		if res.Code.Retryable() {
			w.Header().Set("Retry-After", "1")
		}
	}
	shared.RespondWithJSON(w, r, status, ResultResponse{
		Result:  res,
		TraceID: shared.GetTraceID(r.Context()),
	})
}

func (h *EngineHandler) badRequest(w http.ResponseWriter, r *http.Request, message string, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.CodeBadRequest, message, err)
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *EngineHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		h.badRequest(w, r, "Invalid request body", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		h.badRequest(w, r, SanitizeValidationError(err), err)
		return false
	}
	return true
}

func (h *EngineHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := getPathID(r, name)
	if err != nil {
		h.badRequest(w, r, "Invalid "+name, err)
		return 0, false
	}
	return id, true
}

func (h *EngineHandler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit, err := getLimit(r)
	if err != nil {
		h.badRequest(w, r, "Invalid limit", err)
		return 0, false
	}
	return limit, true
}

// SubmitAnswer handles POST /lessons/{lessonID}/answers.
func (h *EngineHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := h.pathID(w, r, "lessonID")
	if !ok {
		return
	}
	var body SubmitAnswerRequest
	if !h.decode(w, r, &body) {
		return
	}
	h.dispatch(w, r, engine.SubmitAnswer{
		LessonID:         lessonID,
		FlashcardID:      body.FlashcardID,
		IsCorrect:        *body.IsCorrect,
		TimeSpentSeconds: body.TimeSpentSeconds,
	}, http.StatusOK)
}

// CompleteLesson handles POST /lessons/{lessonID}/complete.
func (h *EngineHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := h.pathID(w, r, "lessonID")
	if !ok {
		return
	}
	var body CompleteLessonRequest
	if !h.decode(w, r, &body) {
		return
	}
	h.dispatch(w, r, engine.CompleteLesson{LessonID: lessonID, Score: *body.Score}, http.StatusOK)
}

// IsLessonUnlocked handles GET /lessons/{lessonID}/unlocked.
func (h *EngineHandler) IsLessonUnlocked(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r, "lessonID"); ok {
		h.dispatch(w, r, engine.IsLessonUnlocked{LessonID: id}, http.StatusOK)
	}
}

// IsUnitUnlocked handles GET /units/{unitID}/unlocked.
func (h *EngineHandler) IsUnitUnlocked(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r, "unitID"); ok {
		h.dispatch(w, r, engine.IsUnitUnlocked{UnitID: id}, http.StatusOK)
	}
}

// IsPathUnlocked handles GET /paths/{pathID}/unlocked.
func (h *EngineHandler) IsPathUnlocked(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r, "pathID"); ok {
		h.dispatch(w, r, engine.IsPathUnlocked{PathID: id}, http.StatusOK)
	}
}

// GetHearts handles GET /paths/{pathID}/hearts.
func (h *EngineHandler) GetHearts(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r, "pathID"); ok {
		h.dispatch(w, r, engine.GetHearts{PathID: id}, http.StatusOK)
	}
}

// RefillHearts handles POST /paths/{pathID}/hearts/refill.
func (h *EngineHandler) RefillHearts(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r, "pathID"); ok {
		h.dispatch(w, r, engine.RefillHearts{PathID: id}, http.StatusOK)
	}
}

// UpdateStreak handles POST /paths/{pathID}/streak.
func (h *EngineHandler) UpdateStreak(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r, "pathID"); ok {
		h.dispatch(w, r, engine.UpdateStreak{PathID: id}, http.StatusOK)
	}
}

// GetXPSummary handles GET /me/xp.
func (h *EngineHandler) GetXPSummary(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, engine.GetXPSummary{}, http.StatusOK)
}

// StartReviewSession handles POST /review-sessions.
func (h *EngineHandler) StartReviewSession(w http.ResponseWriter, r *http.Request) {
	var body StartReviewSessionRequest
	if !h.decode(w, r, &body) {
		return
	}
	h.dispatch(w, r, engine.StartReviewSession{
		Mode:  domain.ReviewMode(body.Mode),
		Limit: body.Limit,
	}, http.StatusCreated)
}

// SubmitReview handles POST /review-sessions/{sessionID}/answers.
func (h *EngineHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getPathUUID(r, "sessionID")
	if err != nil {
		h.badRequest(w, r, "Invalid sessionID", err)
		return
	}
	var body SubmitReviewRequest
	if !h.decode(w, r, &body) {
		return
	}
	h.dispatch(w, r, engine.SubmitReview{
		SessionID:        sessionID,
		FlashcardID:      body.FlashcardID,
		IsCorrect:        *body.IsCorrect,
		TimeSpentSeconds: body.TimeSpentSeconds,
	}, http.StatusOK)
}

// GetDueCards handles GET /reviews/due.
func (h *EngineHandler) GetDueCards(w http.ResponseWriter, r *http.Request) {
	if limit, ok := h.limit(w, r); ok {
		h.dispatch(w, r, engine.GetDueCards{Limit: limit}, http.StatusOK)
	}
}

// GetStrugglingCards handles GET /reviews/struggling.
func (h *EngineHandler) GetStrugglingCards(w http.ResponseWriter, r *http.Request) {
	if limit, ok := h.limit(w, r); ok {
		h.dispatch(w, r, engine.GetStrugglingCards{Limit: limit}, http.StatusOK)
	}
}

// AddToStrugglingQueue handles PUT /reviews/struggling/{flashcardID}.
func (h *EngineHandler) AddToStrugglingQueue(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r, "flashcardID"); ok {
		h.dispatch(w, r, engine.AddToStrugglingQueue{FlashcardID: id}, http.StatusOK)
	}
}

// RemoveFromStrugglingQueue handles DELETE /reviews/struggling/{flashcardID}.
func (h *EngineHandler) RemoveFromStrugglingQueue(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.pathID(w, r, "flashcardID"); ok {
		h.dispatch(w, r, engine.RemoveFromStrugglingQueue{FlashcardID: id}, http.StatusOK)
	}
}
