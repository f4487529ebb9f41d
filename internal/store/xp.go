package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
)

// XPStore is the append-only XP ledger.
type XPStore interface {
	// Append inserts a transaction and sets its ID.
	Append(ctx context.Context, tx *domain.XPTransaction) error

	// Total returns the lifetime XP of a user.
	Total(ctx context.Context, userID uuid.UUID) (int, error)

	// SumBetween returns the XP earned in [from, to).
	SumBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
}
