package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
)

// InvalidationEvent announces that derived read models for a user are stale.
type InvalidationEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// UserID is the learner whose derived reads must be invalidated
	UserID uuid.UUID `json:"user_id"`

	// Operation names the engine command that produced the tags
	Operation string `json:"operation"`

	// Tags lists the read models to invalidate
	Tags []domain.Tag `json:"tags"`

	// OccurredAt is the engine clock reading of the command
	OccurredAt time.Time `json:"occurred_at"`
}

// NewInvalidationEvent creates an InvalidationEvent for the given tags.
func NewInvalidationEvent(userID uuid.UUID, operation string, tags []domain.Tag, now time.Time) *InvalidationEvent {
	return &InvalidationEvent{
		ID:         uuid.New(),
		UserID:     userID,
		Operation:  operation,
		Tags:       tags,
		OccurredAt: now,
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *InvalidationEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the engine to publish invalidations without knowing the handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *InvalidationEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *InvalidationEvent) error { return nil }
