package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/config"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
)

// hmacJWTService is an implementation of JWTService using HMAC-SHA signing.
type hmacJWTService struct {
	signingKey    []byte
	tokenLifetime time.Duration
	timeFunc      func() time.Time // Injectable for testing
	clockSkew     time.Duration    // Allowed time difference for validation to handle clock drift
}

// jwtCustomClaims defines the structure of JWT claims we use
type jwtCustomClaims struct {
	UserID uuid.UUID   `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Ensure hmacJWTService implements JWTService interface
var _ JWTService = (*hmacJWTService)(nil)

// NewJWTService creates a new JWT service using HMAC-SHA signing.
func NewJWTService(cfg config.AuthConfig) (JWTService, error) {
	return newJWTService(cfg.JWTSecret, time.Duration(cfg.TokenLifetimeMinutes)*time.Minute, time.Now)
}

func newJWTService(secret string, lifetime time.Duration, timeFunc func() time.Time) (*hmacJWTService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive")
	}
	return &hmacJWTService{
		signingKey:    []byte(secret),
		tokenLifetime: lifetime,
		timeFunc:      timeFunc,
		clockSkew:     2 * time.Minute,
	}, nil
}

// GenerateToken creates a signed JWT access token with user claims.
func (s *hmacJWTService) GenerateToken(ctx context.Context, userID uuid.UUID, role domain.Role) (string, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	claims := jwtCustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenLifetime)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.signingKey)
	if err != nil {
		log.Error("failed to sign JWT access token",
			"error", err,
			"user_id", userID,
			"signing_method", jwt.SigningMethodHS256.Name)
		return "", fmt.Errorf("failed to sign access token with HMAC-SHA256: %w", err)
	}

	return signedToken, nil
}

// ValidateToken validates a JWT access token and returns the claims if valid.
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time {
			return now
		}),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("token validation failed: token expired", "error", err)
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("token validation failed: token not yet valid", "error", err)
			return nil, ErrTokenNotYetValid
		default:
			log.Debug("token validation failed",
				"error", err,
				"error_type", fmt.Sprintf("%T", err))
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		log.Debug("token validation failed: invalid claims")
		return nil, ErrInvalidToken
	}

	log.Debug("access token validated successfully",
		"user_id", claims.UserID,
		"role", claims.Role,
		"token_id", claims.ID)

	return &Claims{
		UserID:    claims.UserID,
		Role:      claims.Role,
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}, nil
}
