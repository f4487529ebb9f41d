package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
)

// AccessPolicy decides whether a caller may enter a path at all, independent
// of progress. Group membership and approval workflows live behind it.
type AccessPolicy interface {
	CanAccessPath(ctx context.Context, identity domain.Identity, path *domain.ContentNode) bool
}

// PublishedPathPolicy admits published paths to everyone and every path to admins.
type PublishedPathPolicy struct{}

// CanAccessPath implements AccessPolicy.
func (PublishedPathPolicy) CanAccessPath(_ context.Context, identity domain.Identity, path *domain.ContentNode) bool {
	return path.Published || identity.IsAdmin()
}

// UnlockService evaluates the unlock rules of the content hierarchy.
type UnlockService interface {
	// IsUnlocked reports whether nodeID is accessible to the caller.
	//
	// A domain is always unlocked. The first child of a parent is unlocked
	// when the parent is; any later child once its previous sibling has a
	// progress record. Paths must also pass the AccessPolicy, and a
	// flashcard follows its lesson.
	//
	// Returns (false, ErrOrphanNode) or (false, ErrMissingSibling) when the
	// hierarchy is broken, and store.ErrContentNotFound for unknown nodes.
	IsUnlocked(ctx context.Context, identity domain.Identity, nodeID int64) (bool, error)

	// IsKindUnlocked is IsUnlocked for a node that must be of the given kind;
	// other kinds fail with domain.ErrInvalidNodeKind.
	IsKindUnlocked(ctx context.Context, identity domain.Identity, nodeID int64, kind domain.NodeKind) (bool, error)

	// IsUnlockedIn is IsUnlocked against transaction-bound stores.
	IsUnlockedIn(ctx context.Context, st store.Stores, identity domain.Identity, node *domain.ContentNode) (bool, error)

	// NewlyUnlockedIn returns the IDs of nodes that became accessible because
	// completed now has a progress record: its next sibling, if any.
	NewlyUnlockedIn(
		ctx context.Context,
		st store.Stores,
		identity domain.Identity,
		completed *domain.ContentNode,
	) ([]int64, error)
}

type unlockServiceImpl struct {
	tx     store.Transactor
	policy AccessPolicy
	logger *slog.Logger
}

// NewUnlockService creates an UnlockService. A nil policy selects PublishedPathPolicy.
func NewUnlockService(tx store.Transactor, policy AccessPolicy, logger *slog.Logger) UnlockService {
	if tx == nil {
		panic("transactor cannot be nil")
	}
	if policy == nil {
		policy = PublishedPathPolicy{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &unlockServiceImpl{
		tx:     tx,
		policy: policy,
		logger: logger.With(slog.String("component", "unlock_service")),
	}
}

var _ UnlockService = (*unlockServiceImpl)(nil)

// IsUnlocked implements UnlockService.IsUnlocked
func (s *unlockServiceImpl) IsUnlocked(ctx context.Context, identity domain.Identity, nodeID int64) (bool, error) {
	if err := domain.ValidateID("node_id", nodeID); err != nil {
		return false, err
	}
	st := s.tx.Stores()
	node, err := st.Content.GetNode(ctx, nodeID)
	if err != nil {
		return false, err
	}
	return s.IsUnlockedIn(ctx, st, identity, node)
}

// IsKindUnlocked implements UnlockService.IsKindUnlocked
func (s *unlockServiceImpl) IsKindUnlocked(
	ctx context.Context,
	identity domain.Identity,
	nodeID int64,
	kind domain.NodeKind,
) (bool, error) {
	st := s.tx.Stores()
	node, err := loadNode(ctx, st.Content, nodeID, kind)
	if err != nil {
		return false, err
	}
	return s.IsUnlockedIn(ctx, st, identity, node)
}

// IsUnlockedIn implements UnlockService.IsUnlockedIn
func (s *unlockServiceImpl) IsUnlockedIn(
	ctx context.Context,
	st store.Stores,
	identity domain.Identity,
	node *domain.ContentNode,
) (bool, error) {
	unlocked, err := s.evaluate(ctx, st, identity, node)
	if err != nil && errors.Is(err, ErrContentIntegrity) {
		logger.FromContextOrDefault(ctx, s.logger).Error("content hierarchy is broken",
			slog.String("error", err.Error()),
			slog.Int64("node_id", node.ID),
			slog.String("kind", string(node.Kind)))
	}
	return unlocked, err
}

func (s *unlockServiceImpl) evaluate(
	ctx context.Context,
	st store.Stores,
	identity domain.Identity,
	node *domain.ContentNode,
) (bool, error) {
	if node.Kind == domain.NodeKindDomain {
		return true, nil
	}

	parent, err := parentOf(ctx, st.Content, node)
	if err != nil {
		return false, err
	}

	if node.Kind == domain.NodeKindFlashcard {
		return s.evaluate(ctx, st, identity, parent)
	}

	if node.Kind == domain.NodeKindPath && !s.policy.CanAccessPath(ctx, identity, node) {
		return false, nil
	}

	if node.IsFirst() {
		return s.evaluate(ctx, st, identity, parent)
	}

	prev, err := st.Content.GetChild(ctx, parent.ID, node.Ordinal-1)
	if err != nil {
		if errors.Is(err, store.ErrContentNotFound) {
			return false, fmt.Errorf("%w: no ordinal %d under node %d", ErrMissingSibling, node.Ordinal-1, parent.ID)
		}
		return false, err
	}

	if _, err := st.Progress.Get(ctx, identity.UserID, prev.ID); err != nil {
		if errors.Is(err, store.ErrProgressNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewlyUnlockedIn implements UnlockService.NewlyUnlockedIn
func (s *unlockServiceImpl) NewlyUnlockedIn(
	ctx context.Context,
	st store.Stores,
	identity domain.Identity,
	completed *domain.ContentNode,
) ([]int64, error) {
	if !completed.HasParent() {
		return nil, nil
	}
	next, err := st.Content.GetChild(ctx, *completed.ParentID, completed.Ordinal+1)
	if err != nil {
		if errors.Is(err, store.ErrContentNotFound) {
			return nil, nil
		}
		return nil, err
	}
	unlocked, err := s.IsUnlockedIn(ctx, st, identity, next)
	if err != nil || !unlocked {
		return nil, err
	}
	return []int64{next.ID}, nil
}
