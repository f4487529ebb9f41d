package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
)

// SessionStore persists review sessions and their idempotent submissions.
type SessionStore interface {
	// Create inserts a session.
	Create(ctx context.Context, session *domain.ReviewSession) error

	// GetForUpdate loads a session and locks it for the rest of the enclosing
	// transaction, serializing submissions within the session.
	// Returns ErrSessionNotFound if it does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ReviewSession, error)

	// GetSubmission retrieves the recorded answer for a card in a session.
	// Returns ErrSubmissionNotFound if none was recorded.
	GetSubmission(ctx context.Context, sessionID uuid.UUID, flashcardID int64) (*domain.ReviewSubmission, error)

	// CreateSubmission records an answer.
	// Returns ErrSubmissionExists if the card was already answered in the session.
	CreateSubmission(ctx context.Context, submission *domain.ReviewSubmission) error
}
