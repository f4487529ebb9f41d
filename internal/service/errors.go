package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/store"
)

// Service errors. Each wraps the domain or store sentinel that determines how
// callers classify it.
var (
	// ErrContentIntegrity indicates that the content hierarchy violates its own
	// structure. It is never the caller's fault.
	ErrContentIntegrity = errors.New("content hierarchy integrity violation")

	// ErrOrphanNode is returned when a non-domain node references a parent that does not exist.
	ErrOrphanNode = fmt.Errorf("%w: node has no parent", ErrContentIntegrity)

	// ErrMisplacedNode is returned when a node hangs under a parent of the wrong kind.
	ErrMisplacedNode = fmt.Errorf("%w: node under a parent of the wrong kind", ErrContentIntegrity)

	// ErrMissingSibling is returned when ordinal positions under a parent are not dense.
	ErrMissingSibling = fmt.Errorf("%w: previous sibling missing", ErrContentIntegrity)

	// ErrSessionNotOwned is returned when a review session belongs to another user.
	ErrSessionNotOwned = fmt.Errorf("%w: review session belongs to another user", domain.ErrForbidden)

	// ErrCardNotInLesson is returned when a flashcard is not a child of the lesson it was answered in.
	ErrCardNotInLesson = fmt.Errorf("%w: flashcard is not part of the lesson", store.ErrNotFound)
)

// ServiceError wraps errors from a service operation with the context needed
// to trace it in logs. It never changes how the wrapped error is classified.
type ServiceError struct {
	// Service names the component, e.g. "hearts" or "review_session"
	Service string
	// Operation is the operation that failed (e.g., "debit", "submit_answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, operation, message string, err error) *ServiceError {
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
