package store

import (
	"context"

	"github.com/phrazzld/pathwise/internal/domain"
)

// ContentStore is the read-only view of the content hierarchy.
type ContentStore interface {
	// GetNode retrieves a node by ID.
	// Returns ErrContentNotFound if the node does not exist.
	GetNode(ctx context.Context, id int64) (*domain.ContentNode, error)

	// GetChild retrieves the child of parentID at the given ordinal position.
	// Returns ErrContentNotFound if there is no such child.
	GetChild(ctx context.Context, parentID int64, ordinal int) (*domain.ContentNode, error)

	// ListChildren returns the children of parentID ordered by ordinal position.
	ListChildren(ctx context.Context, parentID int64) ([]*domain.ContentNode, error)
}
