package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
)

// JWTService validates the bearer tokens issued by the identity provider and,
// for development tooling, mints them.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the user and role.
	GenerateToken(ctx context.Context, userID uuid.UUID, role domain.Role) (string, error)

	// ValidateToken validates the provided token string and extracts the claims.
	// The role claim is returned as found; callers decide whether it is acceptable.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// Role is the authorization role granted by the identity provider.
	Role domain.Role `json:"role,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

// Identity returns the engine identity carried by the claims.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{UserID: c.UserID, Role: c.Role}
}
