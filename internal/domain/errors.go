package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when input or an entity fails validation.
	// This is usually wrapped with a more specific message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is zero, negative or malformed.
	ErrInvalidID = fmt.Errorf("%w: invalid ID", ErrValidation)

	// ErrInvalidNodeKind is returned when a content node has the wrong kind for an operation.
	ErrInvalidNodeKind = fmt.Errorf("%w: invalid content node kind", ErrValidation)

	// ErrInvalidReviewMode is returned for an unknown review mode.
	ErrInvalidReviewMode = fmt.Errorf("%w: invalid review mode", ErrValidation)

	// ErrInvalidAmount is returned when an XP amount is negative.
	ErrInvalidAmount = fmt.Errorf("%w: XP amount must not be negative", ErrValidation)

	// ErrInvalidLimit is returned when a result limit is out of range.
	ErrInvalidLimit = fmt.Errorf("%w: limit out of range", ErrValidation)

	// ErrInvalidScore is returned when a lesson score is outside 0..100.
	ErrInvalidScore = fmt.Errorf("%w: score must be between 0 and 100", ErrValidation)

	// ErrForbidden is returned when an unlock or access rule denies an operation.
	ErrForbidden = errors.New("forbidden")

	// ErrLocked is returned when a content node is not yet unlocked for the user.
	ErrLocked = fmt.Errorf("%w: content is locked", ErrForbidden)

	// ErrInsufficientHearts is returned when a debit is attempted with no hearts left.
	ErrInsufficientHearts = errors.New("insufficient hearts")
)
