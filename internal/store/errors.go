package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrConflict is returned when a row changed between read and write,
	// detected by an optimistic version check.
	ErrConflict = errors.New("concurrent modification")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrContentNotFound indicates that the requested content node does not exist.
	ErrContentNotFound = fmt.Errorf("%w: content node", ErrNotFound)

	// ErrProgressNotFound indicates that the user has not completed the node.
	ErrProgressNotFound = fmt.Errorf("%w: progress record", ErrNotFound)

	// ErrReviewNotFound indicates that no review record exists.
	ErrReviewNotFound = fmt.Errorf("%w: review record", ErrNotFound)

	// ErrStrugglingNotFound indicates that the flashcard is not in the struggling queue.
	ErrStrugglingNotFound = fmt.Errorf("%w: struggling entry", ErrNotFound)

	// ErrSessionNotFound indicates that the review session does not exist.
	ErrSessionNotFound = fmt.Errorf("%w: review session", ErrNotFound)

	// ErrSubmissionNotFound indicates that no answer was recorded for the session and flashcard.
	ErrSubmissionNotFound = fmt.Errorf("%w: review submission", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrSubmissionExists indicates that the (session, flashcard) answer was already recorded.
	ErrSubmissionExists = fmt.Errorf("%w: review submission", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// All entity-specific not found errors wrap ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "hearts_state", "review_record")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
