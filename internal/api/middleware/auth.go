package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Rrens/rag-tutor/internal/api/response"
	"github.com/Rrens/rag-tutor/internal/security"
)

type contextKey string

const ServiceKey contextKey = "service"

// AuthMiddleware checks the bearer service token sent by the gateway
type AuthMiddleware struct {
	jwtManager *security.JWTManager
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *security.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Authenticate validates the JWT token
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.jwtManager.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ServiceKey, claims.Service)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetService returns the authenticated caller, if any
func GetService(ctx context.Context) (string, bool) {
	svc, ok := ctx.Value(ServiceKey).(string)
	return svc, ok
}
