package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
)

// ReviewStore is the append-only review history.
type ReviewStore interface {
	// Append inserts a record and sets its ID.
	Append(ctx context.Context, record *domain.ReviewRecord) error

	// GetByID retrieves a record by ID.
	// Returns ErrReviewNotFound if it does not exist.
	GetByID(ctx context.Context, id int64) (*domain.ReviewRecord, error)

	// Latest returns the current schedule of a flashcard: the newest record
	// ordered by review date and then ID.
	// Returns ErrReviewNotFound if the card was never reviewed.
	Latest(ctx context.Context, userID uuid.UUID, flashcardID int64) (*domain.ReviewRecord, error)

	// Due returns the latest record of every card whose next review date is
	// at or before now, most overdue first, ties broken by flashcard ID.
	Due(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*domain.ReviewRecord, error)

	// CountCorrectSince counts correct answers for a card strictly after since.
	CountCorrectSince(ctx context.Context, userID uuid.UUID, flashcardID int64, since time.Time) (int, error)
}

// StrugglingStore persists the per-user struggling queue.
type StrugglingStore interface {
	// RecordFailure inserts an entry with TimesFailed 1 or atomically
	// increments an existing one, refreshing LastFailedAt.
	RecordFailure(ctx context.Context, userID uuid.UUID, flashcardID int64, now time.Time) (*domain.StrugglingEntry, error)

	// Add inserts an entry without counting a failure. An existing entry is
	// returned unchanged.
	Add(ctx context.Context, userID uuid.UUID, flashcardID int64, now time.Time) (*domain.StrugglingEntry, error)

	// Get retrieves the entry of a card.
	// Returns ErrStrugglingNotFound if the card is not queued.
	Get(ctx context.Context, userID uuid.UUID, flashcardID int64) (*domain.StrugglingEntry, error)

	// GetForUpdate is Get that also locks the entry until the surrounding
	// transaction ends, so a concurrent failure cannot be removed unseen.
	// Returns ErrStrugglingNotFound if the card is not queued.
	GetForUpdate(ctx context.Context, userID uuid.UUID, flashcardID int64) (*domain.StrugglingEntry, error)

	// Remove deletes the entry of a card.
	// Returns ErrStrugglingNotFound if the card is not queued.
	Remove(ctx context.Context, userID uuid.UUID, flashcardID int64) error

	// List returns entries ordered by TimesFailed descending and then
	// LastFailedAt ascending.
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.StrugglingEntry, error)
}

// ActivityStore derives learner activity from review and progress history.
type ActivityStore interface {
	// ActivityDays returns the distinct calendar days in loc on which the user
	// reviewed a card or completed a node, as values of domain.DayOf.
	ActivityDays(ctx context.Context, userID uuid.UUID, loc *time.Location) ([]domain.CalendarDay, error)
}
