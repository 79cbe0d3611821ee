// internal/auth/middleware.go

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/weekender/weekender-bot/internal/common/utils"
)

type contextKey string

const claimsKey contextKey = "claims"

// Middleware protects the admin API
type Middleware struct {
	service Service
}

func NewMiddleware(service Service) *Middleware {
	return &Middleware{service: service}
}

// RequireAdmin verifies the bearer token and stores its claims in the request context
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}

		claims, err := m.service.ValidateToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrNotAdmin) {
				utils.RespondWithError(w, http.StatusForbidden, "Admin access required")
				return
			}
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken supports the "Bearer <token>" format
func extractToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// ClaimsFromContext returns the claims stored by RequireAdmin
func ClaimsFromContext(ctx context.Context) (*utils.JWTClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*utils.JWTClaims)
	return claims, ok
}
