package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the coarse authorization role supplied by the identity provider.
type Role string

// Roles understood by the engine.
const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Identity is the authenticated caller of an engine operation.
type Identity struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// ValidateIdentity checks that identity names a user and a known role.
// Failures wrap ErrForbidden.
func ValidateIdentity(identity Identity) error {
	if identity.UserID == uuid.Nil {
		return fmt.Errorf("%w: missing user ID", ErrForbidden)
	}
	if !identity.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, identity.Role)
	}
	return nil
}

// ReviewSession is the persisted header of a client-held review session.
// Card membership is not stored; only what idempotent submission needs.
type ReviewSession struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Mode      ReviewMode `json:"mode"`
	CreatedAt time.Time  `json:"created_at"`
}

// ReviewSubmission records the effects applied for one (session, flashcard) answer.
type ReviewSubmission struct {
	SessionID     uuid.UUID `json:"session_id"`
	FlashcardID   int64     `json:"flashcard_id"`
	UserID        uuid.UUID `json:"user_id"`
	ReviewID      int64     `json:"review_id"`
	XPAwarded     int       `json:"xp_awarded"`
	HeartsDebited bool      `json:"hearts_debited"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
