package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Validation errors for progress records.
var (
	ErrEmptyProgressUserID = errors.New("progress user ID cannot be empty")
	ErrNotCompletable      = errors.New("progress can only be recorded for lessons, units and paths")
)

// ProgressRecord is a completion fact for one user and one lesson, unit or path.
// A record is created on first completion; later attempts only raise Score.
type ProgressRecord struct {
	UserID      uuid.UUID `json:"user_id"`
	NodeID      int64     `json:"node_id"`
	NodeKind    NodeKind  `json:"node_kind"`
	CompletedAt time.Time `json:"completed_at"`
	Score       int       `json:"score"`
}

// NewProgressRecord builds a validated completion record.
func NewProgressRecord(userID uuid.UUID, node *ContentNode, score int, now time.Time) (*ProgressRecord, error) {
	p := &ProgressRecord{
		UserID:      userID,
		NodeID:      node.ID,
		NodeKind:    node.Kind,
		CompletedAt: now,
		Score:       score,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the record's invariants.
func (p *ProgressRecord) Validate() error {
	if p.UserID == uuid.Nil {
		return ErrEmptyProgressUserID
	}
	if err := ValidateID("node_id", p.NodeID); err != nil {
		return err
	}
	if !p.NodeKind.Completable() {
		return ErrNotCompletable
	}
	if p.Score < 0 || p.Score > 100 {
		return ErrInvalidScore
	}
	return nil
}
