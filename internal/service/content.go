package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/store"
)

// loadNode fetches a node and checks its kind.
func loadNode(
	ctx context.Context,
	content store.ContentStore,
	id int64,
	kind domain.NodeKind,
) (*domain.ContentNode, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidNodeKind, kind)
	}
	if err := domain.ValidateID(string(kind)+"_id", id); err != nil {
		return nil, err
	}
	node, err := content.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node.Kind != kind {
		return nil, fmt.Errorf("%w: node %d is a %s, not a %s", domain.ErrInvalidNodeKind, id, node.Kind, kind)
	}
	return node, nil
}

// parentOf returns the parent of a non-domain node. A missing parent is
// ErrOrphanNode and a parent of the wrong kind ErrMisplacedNode.
func parentOf(ctx context.Context, content store.ContentStore, node *domain.ContentNode) (*domain.ContentNode, error) {
	if !node.HasParent() {
		return nil, fmt.Errorf("%w: %s %d", ErrOrphanNode, node.Kind, node.ID)
	}
	parent, err := content.GetNode(ctx, *node.ParentID)
	if err != nil {
		if errors.Is(err, store.ErrContentNotFound) {
			return nil, fmt.Errorf("%w: %s %d references missing node %d",
				ErrOrphanNode, node.Kind, node.ID, *node.ParentID)
		}
		return nil, err
	}
	if parent.Kind != node.Kind.ParentKind() {
		return nil, fmt.Errorf("%w: %s %d is under %s %d",
			ErrMisplacedNode, node.Kind, node.ID, parent.Kind, parent.ID)
	}
	return parent, nil
}

// pathOf walks up from node to its enclosing path.
func pathOf(ctx context.Context, content store.ContentStore, node *domain.ContentNode) (*domain.ContentNode, error) {
	cur := node
	for cur.Kind != domain.NodeKindPath {
		if cur.Kind == domain.NodeKindDomain {
			return nil, fmt.Errorf("%w: %s %d is above path level", domain.ErrInvalidNodeKind, node.Kind, node.ID)
		}
		parent, err := parentOf(ctx, content, cur)
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	return cur, nil
}
