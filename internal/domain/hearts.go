package domain

import (
	"time"

	"github.com/google/uuid"
)

// HeartsState is a user's consumable attempt budget on one path.
// Invariant: 0 <= HeartsRemaining <= MaxHearts.
type HeartsState struct {
	UserID          uuid.UUID `json:"user_id"`
	PathID          int64     `json:"path_id"`
	HeartsRemaining int       `json:"hearts_remaining"`
	MaxHearts       int       `json:"max_hearts"`
	LastRefillAt    time.Time `json:"last_refill_at"`
	// Version increments on every persisted change; used for the optimistic check.
	Version int64 `json:"-"`
}

// NewHeartsState returns a full state whose regeneration clock starts at now.
func NewHeartsState(userID uuid.UUID, pathID int64, maxHearts int, now time.Time) *HeartsState {
	return &HeartsState{
		UserID:          userID,
		PathID:          pathID,
		HeartsRemaining: maxHearts,
		MaxHearts:       maxHearts,
		LastRefillAt:    now,
	}
}

// Full reports whether no more hearts can be gained.
func (h *HeartsState) Full() bool {
	return h.HeartsRemaining >= h.MaxHearts
}

// Regenerate applies lazy regeneration up to now and reports whether the
// state changed. One heart is gained per full interval elapsed since
// LastRefillAt. When the gain reaches the cap the clock resets to now;
// otherwise the partial interval is carried over.
func (h *HeartsState) Regenerate(now time.Time, interval time.Duration) bool {
	if interval <= 0 || h.Full() {
		return false
	}

	elapsed := now.Sub(h.LastRefillAt)
	if elapsed < interval {
		return false
	}

	gained := int(elapsed / interval)
	if h.HeartsRemaining+gained >= h.MaxHearts {
		h.HeartsRemaining = h.MaxHearts
		h.LastRefillAt = now
		return true
	}

	h.HeartsRemaining += gained
	h.LastRefillAt = now.Add(-(elapsed % interval))
	return true
}

// Debit regenerates and then consumes one heart.
// A debit from a full state starts the regeneration clock at now.
func (h *HeartsState) Debit(now time.Time, interval time.Duration) error {
	h.Regenerate(now, interval)
	if h.HeartsRemaining <= 0 {
		return ErrInsufficientHearts
	}
	if h.Full() {
		h.LastRefillAt = now
	}
	h.HeartsRemaining--
	return nil
}

// Refill restores the state to MaxHearts.
func (h *HeartsState) Refill(now time.Time) {
	h.HeartsRemaining = h.MaxHearts
	h.LastRefillAt = now
}
