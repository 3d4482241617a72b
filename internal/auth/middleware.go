// internal/auth/middleware.go
// Bearer token authentication for protected routes.

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

type contextKey int

const (
	userIDKey contextKey = iota
	claimsKey
)

// Middleware provides authentication middleware
type Middleware struct {
	service Service
	logger  *slog.Logger
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(service Service, logger *slog.Logger) *Middleware {
	return &Middleware{service: service, logger: logger}
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			utils.ErrorResponse(w, "Authentication credentials were not provided", http.StatusUnauthorized)
			return
		}

		claims, err := m.service.ValidateToken(r.Context(), token)
		if err != nil {
			utils.WriteError(w, r, m.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// OptionalAuthenticate adds the caller to the context when a valid token is
// present and lets anonymous requests through otherwise.
func (m *Middleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := extractToken(r); token != "" {
			if claims, err := m.service.ValidateToken(r.Context(), token); err == nil {
				r = r.WithContext(withClaims(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func withClaims(ctx context.Context, claims *utils.JWTClaims) context.Context {
	userID, _ := claims.UserID()
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, claimsKey, claims)
}

// extractToken reads a "Bearer <token>" Authorization header
func extractToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// UserIDFromContext returns the authenticated caller's id
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok && userID > 0
}

// ClaimsFromContext returns the claims of the presented token
func ClaimsFromContext(ctx context.Context) (*utils.JWTClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*utils.JWTClaims)
	return claims, ok
}

// WithUserID is used by tests of handlers mounted behind Authenticate.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
