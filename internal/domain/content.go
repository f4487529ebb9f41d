package domain

import "fmt"

// NodeKind is the level of a node in the content hierarchy.
type NodeKind string

// Content hierarchy levels, root first.
const (
	NodeKindDomain    NodeKind = "domain"
	NodeKindPath      NodeKind = "path"
	NodeKindUnit      NodeKind = "unit"
	NodeKindLesson    NodeKind = "lesson"
	NodeKindFlashcard NodeKind = "flashcard"
)

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case NodeKindDomain, NodeKindPath, NodeKindUnit, NodeKindLesson, NodeKindFlashcard:
		return true
	default:
		return false
	}
}

// ParentKind returns the kind a node of kind k must hang under.
// Domains have no parent and return the empty kind.
func (k NodeKind) ParentKind() NodeKind {
	switch k {
	case NodeKindPath:
		return NodeKindDomain
	case NodeKindUnit:
		return NodeKindPath
	case NodeKindLesson:
		return NodeKindUnit
	case NodeKindFlashcard:
		return NodeKindLesson
	default:
		return ""
	}
}

// Completable reports whether progress records may exist for nodes of this kind.
func (k NodeKind) Completable() bool {
	return k == NodeKindLesson || k == NodeKindUnit || k == NodeKindPath
}

// ContentNode is one node of the read-only content tree.
// Ordinal positions are 0-based, unique and dense within a parent.
type ContentNode struct {
	ID       int64    `json:"id"`
	ParentID *int64   `json:"parent_id,omitempty"`
	Kind     NodeKind `json:"kind"`
	Ordinal  int      `json:"ordinal_position"`
	Title    string   `json:"title"`
	// XPReward is the reward for completing a lesson; zero selects the configured default.
	XPReward int `json:"xp_reward"`
	// Published gates learner access to paths; admins bypass it.
	Published bool `json:"published"`
}

// IsFirst reports whether the node is the first ordinal child of its parent.
func (n *ContentNode) IsFirst() bool {
	return n.Ordinal == 0
}

// HasParent reports whether the node references a parent.
func (n *ContentNode) HasParent() bool {
	return n.ParentID != nil && *n.ParentID > 0
}

// ValidateID checks that an identifier of a content node or record is positive.
func ValidateID(name string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidID, name)
	}
	return nil
}
