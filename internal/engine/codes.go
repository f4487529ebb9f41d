package engine

import (
	"errors"

	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/service"
	"github.com/phrazzld/pathwise/internal/store"
)

// Code classifies the outcome of a dispatched request.
type Code string

// Result codes. CodeOK accompanies every successful result.
const (
	CodeOK                 Code = "OK"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodeForbidden          Code = "FORBIDDEN"
	CodeInsufficientHearts Code = "INSUFFICIENT_HEARTS"
	CodeConflict           Code = "CONFLICT"
	CodeFetch              Code = "FETCH_ERROR"
)

// Retryable reports whether a caller may safely retry a request that failed
// with c. Business rejections are terminal.
func (c Code) Retryable() bool {
	return c == CodeFetch || c == CodeConflict
}

// Classify maps an error returned by the services to its result code.
// A broken content hierarchy is permanent and reported as FORBIDDEN.
// Errors it does not recognise are infrastructure failures.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return CodeValidation
	case errors.Is(err, domain.ErrInsufficientHearts):
		return CodeInsufficientHearts
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, service.ErrContentIntegrity):
		return CodeForbidden
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrDuplicate):
		return CodeConflict
	default:
		return CodeFetch
	}
}

// safeMessage returns a client-facing description of err that does not leak
// internal details.
func safeMessage(code Code, err error) string {
	switch code {
	case CodeValidation:
		return validationMessage(err)
	case CodeForbidden:
		switch {
		case errors.Is(err, domain.ErrLocked):
			return "content is locked"
		case errors.Is(err, service.ErrSessionNotOwned):
			return "review session belongs to another user"
		case errors.Is(err, service.ErrContentIntegrity):
			return "content is unavailable"
		}
		return "forbidden"
	case CodeNotFound:
		switch {
		case errors.Is(err, service.ErrCardNotInLesson):
			return "flashcard is not part of the lesson"
		case errors.Is(err, store.ErrContentNotFound):
			return "content not found"
		case errors.Is(err, store.ErrSessionNotFound):
			return "review session not found"
		case errors.Is(err, store.ErrStrugglingNotFound):
			return "flashcard is not in the struggling queue"
		}
		return "not found"
	case CodeInsufficientHearts:
		return "no hearts left on this path"
	case CodeConflict:
		return "concurrent update, retry the request"
	default:
		return "temporarily unable to complete the request"
	}
}

func validationMessage(err error) string {
	for _, target := range []error{
		domain.ErrInvalidID,
		domain.ErrInvalidNodeKind,
		domain.ErrInvalidReviewMode,
		domain.ErrInvalidAmount,
		domain.ErrInvalidLimit,
		domain.ErrInvalidScore,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "invalid request"
}
