package domain

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
)

const regen = 30 * time.Minute

func TestHeartsRegenerate(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		remaining     int
		elapsed       time.Duration
		wantRemaining int
		wantRefillAt  time.Time
		wantChanged   bool
	}{
		{
			name:          "two intervals fill to max and reset clock",
			remaining:     3,
			elapsed:       65 * time.Minute,
			wantRemaining: 5,
			wantRefillAt:  base.Add(65 * time.Minute),
			wantChanged:   true,
		},
		{
			name:          "partial interval carried over",
			remaining:     1,
			elapsed:       65 * time.Minute,
			wantRemaining: 3,
			wantRefillAt:  base.Add(60 * time.Minute),
			wantChanged:   true,
		},
		{
			name:          "less than one interval changes nothing",
			remaining:     2,
			elapsed:       29 * time.Minute,
			wantRemaining: 2,
			wantRefillAt:  base,
			wantChanged:   false,
		},
		{
			name:          "exact interval gains one",
			remaining:     0,
			elapsed:       30 * time.Minute,
			wantRemaining: 1,
			wantRefillAt:  base.Add(30 * time.Minute),
			wantChanged:   true,
		},
		{
			name:          "clock skew is ignored",
			remaining:     2,
			elapsed:       -10 * time.Minute,
			wantRemaining: 2,
			wantRefillAt:  base,
			wantChanged:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := &HeartsState{UserID: uuid.New(), PathID: 1, HeartsRemaining: tc.remaining, MaxHearts: 5, LastRefillAt: base}
			changed := h.Regenerate(base.Add(tc.elapsed), regen)

			if changed != tc.wantChanged {
				t.Errorf("Expected changed=%v, got %v", tc.wantChanged, changed)
			}
			if h.HeartsRemaining != tc.wantRemaining {
				t.Errorf("Expected %d hearts, got %d", tc.wantRemaining, h.HeartsRemaining)
			}
			if !h.LastRefillAt.Equal(tc.wantRefillAt) {
				t.Errorf("Expected last refill %v, got %v", tc.wantRefillAt, h.LastRefillAt)
			}
		})
	}
}

func TestHeartsDebit(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	t.Run("debit from full starts the clock", func(t *testing.T) {
		h := NewHeartsState(uuid.New(), 1, 5, now.Add(-48*time.Hour))
		if err := h.Debit(now, regen); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if h.HeartsRemaining != 4 {
			t.Errorf("Expected 4 hearts, got %d", h.HeartsRemaining)
		}
		if !h.LastRefillAt.Equal(now) {
			t.Errorf("Expected clock to start at %v, got %v", now, h.LastRefillAt)
		}
	})

	t.Run("debit keeps a running clock", func(t *testing.T) {
		start := now.Add(-10 * time.Minute)
		h := &HeartsState{HeartsRemaining: 3, MaxHearts: 5, LastRefillAt: start}
		if err := h.Debit(now, regen); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if h.HeartsRemaining != 2 || !h.LastRefillAt.Equal(start) {
			t.Errorf("unexpected state %+v", h)
		}
	})

	t.Run("debit at zero fails", func(t *testing.T) {
		h := &HeartsState{HeartsRemaining: 0, MaxHearts: 5, LastRefillAt: now.Add(-5 * time.Minute)}
		err := h.Debit(now, regen)
		if !errors.Is(err, ErrInsufficientHearts) {
			t.Errorf("Expected ErrInsufficientHearts, got %v", err)
		}
		if h.HeartsRemaining != 0 {
			t.Errorf("Expected 0 hearts, got %d", h.HeartsRemaining)
		}
	})

	t.Run("debit at zero succeeds after regeneration", func(t *testing.T) {
		h := &HeartsState{HeartsRemaining: 0, MaxHearts: 5, LastRefillAt: now.Add(-31 * time.Minute)}
		if err := h.Debit(now, regen); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if h.HeartsRemaining != 0 {
			t.Errorf("Expected 0 hearts, got %d", h.HeartsRemaining)
		}
	})
}

func TestHeartsRefill(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	h := &HeartsState{HeartsRemaining: 1, MaxHearts: 5, LastRefillAt: now.Add(-time.Minute)}
	h.Refill(now)
	if !h.Full() || !h.LastRefillAt.Equal(now) {
		t.Errorf("unexpected state after refill %+v", h)
	}
}

// Random sequences of debits, refills and reads never leave the bounds.
func TestHeartsStayWithinBounds(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHeartsState(uuid.New(), 1, 5, now)

	for i := 0; i < 5000; i++ {
		now = now.Add(time.Duration(rng.Intn(45)) * time.Minute)
		switch rng.Intn(10) {
		case 0:
			h.Refill(now)
		case 1, 2, 3:
			h.Regenerate(now, regen)
		default:
			err := h.Debit(now, regen)
			if err != nil && !errors.Is(err, ErrInsufficientHearts) {
				t.Fatalf("unexpected error %v", err)
			}
		}

		if h.HeartsRemaining < 0 || h.HeartsRemaining > h.MaxHearts {
			t.Fatalf("step %d: hearts out of bounds: %d", i, h.HeartsRemaining)
		}
		if h.LastRefillAt.After(now) {
			t.Fatalf("step %d: refill clock in the future", i)
		}
		if !h.Full() && now.Sub(h.LastRefillAt) >= regen {
			// a pending regeneration must be applied on the next read
			before := h.HeartsRemaining
			h.Regenerate(now, regen)
			if h.HeartsRemaining <= before {
				t.Fatalf("step %d: pending regeneration not applied", i)
			}
		}
	}
}
