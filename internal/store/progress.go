package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
)

// ProgressStore persists completion facts.
type ProgressStore interface {
	// Upsert records a completion. The first call creates the record; later
	// calls only raise the stored score to the higher of the two values.
	// CompletedAt never changes after creation.
	// Returns the stored record and whether it was created by this call.
	Upsert(ctx context.Context, record *domain.ProgressRecord) (*domain.ProgressRecord, bool, error)

	// Get retrieves the completion record of a node for a user.
	// Returns ErrProgressNotFound if the user has not completed the node.
	Get(ctx context.Context, userID uuid.UUID, nodeID int64) (*domain.ProgressRecord, error)

	// CountCompletedChildren counts the children of parentID the user has completed.
	CountCompletedChildren(ctx context.Context, userID uuid.UUID, parentID int64) (int, error)
}
