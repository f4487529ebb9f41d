package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/config"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
)

// HeartsService manages the per-path hearts economy.
//
// Regeneration is lazy: every read and write first credits the hearts earned
// since LastRefillAt and persists the result inside the same transaction,
// with the row locked and its version checked.
type HeartsService interface {
	// GetState returns the regenerated state of a user's hearts on a path,
	// creating a full state on first touch.
	GetState(ctx context.Context, userID uuid.UUID, pathID int64, now time.Time) (*domain.HeartsState, error)

	// Debit consumes one heart.
	// Returns domain.ErrInsufficientHearts when none are left.
	Debit(ctx context.Context, userID uuid.UUID, pathID int64, now time.Time) (*domain.HeartsState, error)

	// Refill restores the maximum. It always succeeds for an existing path.
	Refill(ctx context.Context, userID uuid.UUID, pathID int64, now time.Time) (*domain.HeartsState, error)

	// GetStateIn and DebitIn run against transaction-bound stores and skip
	// the path lookup; callers pass a path they already resolved.
	GetStateIn(ctx context.Context, st store.Stores, userID uuid.UUID, pathID int64, now time.Time) (*domain.HeartsState, error)
	DebitIn(ctx context.Context, st store.Stores, userID uuid.UUID, pathID int64, now time.Time) (*domain.HeartsState, error)
}

type heartsServiceImpl struct {
	tx     store.Transactor
	cfg    config.HeartsConfig
	logger *slog.Logger
}

// NewHeartsService creates a HeartsService.
func NewHeartsService(tx store.Transactor, cfg config.HeartsConfig, logger *slog.Logger) HeartsService {
	if tx == nil {
		panic("transactor cannot be nil")
	}
	if cfg.Max <= 0 {
		cfg.Max = 5
	}
	if cfg.RegenInterval <= 0 {
		cfg.RegenInterval = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &heartsServiceImpl{
		tx:     tx,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "hearts_service")),
	}
}

var _ HeartsService = (*heartsServiceImpl)(nil)

// GetState implements HeartsService.GetState
func (s *heartsServiceImpl) GetState(
	ctx context.Context,
	userID uuid.UUID,
	pathID int64,
	now time.Time,
) (*domain.HeartsState, error) {
	var out *domain.HeartsState
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		if _, err := loadNode(ctx, st.Content, pathID, domain.NodeKindPath); err != nil {
			return err
		}
		h, err := s.GetStateIn(ctx, st, userID, pathID, now)
		out = h
		return err
	})
	if err != nil {
		return nil, NewServiceError("hearts", "get_state", "failed to load hearts", err)
	}
	return out, nil
}

// Debit implements HeartsService.Debit
func (s *heartsServiceImpl) Debit(
	ctx context.Context,
	userID uuid.UUID,
	pathID int64,
	now time.Time,
) (*domain.HeartsState, error) {
	var out *domain.HeartsState
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		if _, err := loadNode(ctx, st.Content, pathID, domain.NodeKindPath); err != nil {
			return err
		}
		h, err := s.DebitIn(ctx, st, userID, pathID, now)
		out = h
		return err
	})
	if err != nil {
		return nil, NewServiceError("hearts", "debit", "failed to debit heart", err)
	}
	return out, nil
}

// Refill implements HeartsService.Refill
func (s *heartsServiceImpl) Refill(
	ctx context.Context,
	userID uuid.UUID,
	pathID int64,
	now time.Time,
) (*domain.HeartsState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var out *domain.HeartsState
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Stores) error {
		if _, err := loadNode(ctx, st.Content, pathID, domain.NodeKindPath); err != nil {
			return err
		}
		h, err := st.Hearts.GetForUpdate(ctx, userID, pathID, s.cfg.Max, now)
		if err != nil {
			return err
		}
		h.MaxHearts = s.cfg.Max
		h.Refill(now)
		if err := st.Hearts.Update(ctx, h); err != nil {
			return err
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, NewServiceError("hearts", "refill", "failed to refill hearts", err)
	}

	log.Info("hearts refilled",
		slog.String("user_id", userID.String()),
		slog.Int64("path_id", pathID))
	return out, nil
}

// GetStateIn implements HeartsService.GetStateIn
func (s *heartsServiceImpl) GetStateIn(
	ctx context.Context,
	st store.Stores,
	userID uuid.UUID,
	pathID int64,
	now time.Time,
) (*domain.HeartsState, error) {
	h, err := st.Hearts.GetForUpdate(ctx, userID, pathID, s.cfg.Max, now)
	if err != nil {
		return nil, err
	}
	if h.Regenerate(now, s.cfg.RegenInterval) {
		if err := st.Hearts.Update(ctx, h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// DebitIn implements HeartsService.DebitIn
func (s *heartsServiceImpl) DebitIn(
	ctx context.Context,
	st store.Stores,
	userID uuid.UUID,
	pathID int64,
	now time.Time,
) (*domain.HeartsState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	h, err := st.Hearts.GetForUpdate(ctx, userID, pathID, s.cfg.Max, now)
	if err != nil {
		return nil, err
	}
	if err := h.Debit(now, s.cfg.RegenInterval); err != nil {
		if errors.Is(err, domain.ErrInsufficientHearts) {
			log.Info("heart debit rejected",
				slog.String("user_id", userID.String()),
				slog.Int64("path_id", pathID),
				slog.Time("last_refill_at", h.LastRefillAt))
		}
		return nil, err
	}
	if err := st.Hearts.Update(ctx, h); err != nil {
		return nil, err
	}

	log.Debug("heart debited",
		slog.String("user_id", userID.String()),
		slog.Int64("path_id", pathID),
		slog.Int("hearts_remaining", h.HeartsRemaining))
	return h, nil
}
