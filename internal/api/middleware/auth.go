package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/pathwise/internal/api/shared"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/service/auth"
)

// AuthMiddleware turns a bearer token into the caller's domain.Identity.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	if jwtService == nil {
		panic("jwtService cannot be nil")
	}
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// Authenticate validates the bearer token and stores the identity in the
// request context. Bad tokens get 401; tokens carrying a role the engine
// does not know get 403.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, shared.CodeUnauthorized,
				"Authorization header required")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, shared.CodeUnauthorized,
				"Invalid authorization format")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, shared.CodeUnauthorized,
					"Token expired", err)
			case errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrInvalidToken):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, shared.CodeUnauthorized,
					"Invalid token", err, shared.WithElevatedLogLevel())
			default:
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, shared.CodeUnauthorized,
					"Authentication error", err)
			}
			return
		}

		identity := claims.Identity()
		if err := domain.ValidateIdentity(identity); err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusForbidden, shared.CodeForbidden,
				"invalid identity", err, shared.WithElevatedLogLevel())
			return
		}

		ctx := shared.WithIdentity(r.Context(), identity)
		log := logger.FromContext(ctx).With(slog.String("user_id", identity.UserID.String()))
		ctx = logger.WithLogger(ctx, log)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdentity extracts the authenticated identity from the request context.
func GetIdentity(r *http.Request) (domain.Identity, bool) {
	return shared.GetIdentity(r.Context())
}
