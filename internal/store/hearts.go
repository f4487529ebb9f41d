package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
)

// HeartsStore persists HeartsState rows.
type HeartsStore interface {
	// GetForUpdate loads the state of (userID, pathID), creating a full row
	// with maxHearts on first touch, and locks it for the rest of the
	// enclosing transaction.
	GetForUpdate(
		ctx context.Context,
		userID uuid.UUID,
		pathID int64,
		maxHearts int,
		now time.Time,
	) (*domain.HeartsState, error)

	// Update writes state back if its Version still matches the stored row and
	// increments state.Version. Returns ErrConflict if the row moved.
	Update(ctx context.Context, state *domain.HeartsState) error
}
