package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-tutor/internal/api/response"
)

// Limiter is a per-key request budget
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, reset time.Time, err error)
}

// RateLimitMiddleware limits requests per end user. A nil
// *RateLimitMiddleware allows everything.
type RateLimitMiddleware struct {
	limiter Limiter
}

// NewRateLimitMiddleware returns nil when limiter is nil
func NewRateLimitMiddleware(limiter Limiter) *RateLimitMiddleware {
	if limiter == nil {
		return nil
	}
	return &RateLimitMiddleware{limiter: limiter}
}

// Allow charges one request to userID. When the budget is spent it writes
// 429 and returns false.
func (m *RateLimitMiddleware) Allow(w http.ResponseWriter, r *http.Request, userID string) bool {
	if m == nil || userID == "" {
		return true
	}

	allowed, remaining, resetTime, err := m.limiter.Allow(r.Context(), userID)
	if err != nil {
		// limiter outage never blocks a student
		log.Warn().Err(err).Str("user_id", userID).Msg("rate limiter unavailable")
		return true
	}

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", resetTime.UTC().Format(time.RFC3339))

	if !allowed {
		response.TooManyRequests(w, "rate limit exceeded")
		return false
	}
	return true
}

// Limit applies Allow keyed by the {userID} route parameter
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Allow(w, r, chi.URLParam(r, "userID")) {
			return
		}
		next.ServeHTTP(w, r)
	})
}
