package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/config"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret      = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

var fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, key string, at time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newJWTService(key, time.Hour, func() time.Time { return at })
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	_, err = NewJWTService(config.AuthConfig{JWTSecret: secret})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: secret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, secret, fixedTime)
	userID := uuid.New()

	token, err := svc.GenerateToken(context.Background(), userID, domain.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, domain.Identity{UserID: userID, Role: domain.RoleAdmin}, claims.Identity())
}

func TestValidateToken(t *testing.T) {
	t.Parallel()
	userID := uuid.New()

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) (*hmacJWTService, string)
		wantErr   error
	}{
		{
			name: "valid token",
			setupFunc: func(t *testing.T) (*hmacJWTService, string) {
				svc := newTestService(t, secret, fixedTime)
				token, _ := svc.GenerateToken(context.Background(), userID, domain.RoleMember)
				return svc, token
			},
		},
		{
			name: "within clock skew",
			setupFunc: func(t *testing.T) (*hmacJWTService, string) {
				token, _ := newTestService(t, secret, fixedTime).GenerateToken(context.Background(), userID, domain.RoleMember)
				return newTestService(t, secret, fixedTime.Add(time.Hour+time.Minute)), token
			},
		},
		{
			name: "expired token",
			setupFunc: func(t *testing.T) (*hmacJWTService, string) {
				token, _ := newTestService(t, secret, fixedTime).GenerateToken(context.Background(), userID, domain.RoleMember)
				return newTestService(t, secret, fixedTime.Add(2*time.Hour)), token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "invalid signature",
			setupFunc: func(t *testing.T) (*hmacJWTService, string) {
				token, _ := newTestService(t, secret, fixedTime).GenerateToken(context.Background(), userID, domain.RoleMember)
				return newTestService(t, wrongSecret, fixedTime), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			setupFunc: func(t *testing.T) (*hmacJWTService, string) {
				return newTestService(t, secret, fixedTime), "this.is.not.a.valid.jwt.token"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "unexpected signing method",
			setupFunc: func(t *testing.T) (*hmacJWTService, string) {
				claims := jwtCustomClaims{
					UserID: userID,
					Role:   domain.RoleMember,
					RegisteredClaims: jwt.RegisteredClaims{
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					},
				}
				token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
				require.NoError(t, err)
				return newTestService(t, secret, fixedTime), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "missing user",
			setupFunc: func(t *testing.T) (*hmacJWTService, string) {
				svc := newTestService(t, secret, fixedTime)
				token, _ := svc.GenerateToken(context.Background(), uuid.Nil, domain.RoleMember)
				return svc, token
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, token := tt.setupFunc(t)
			claims, err := svc.ValidateToken(context.Background(), token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
			} else {
				require.NoError(t, err)
				assert.Equal(t, userID, claims.UserID)
				assert.Equal(t, domain.RoleMember, claims.Role)
			}
		})
	}
}

func TestValidateTokenKeepsUnknownRole(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, secret, fixedTime)

	token, err := svc.GenerateToken(context.Background(), uuid.New(), domain.Role("owner"))
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.Role("owner"), claims.Role)
	assert.False(t, claims.Role.Valid())
}
