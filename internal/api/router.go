package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Rrens/rag-tutor/internal/api/handler"
	customMiddleware "github.com/Rrens/rag-tutor/internal/api/middleware"
	"github.com/Rrens/rag-tutor/internal/config"
	"github.com/Rrens/rag-tutor/internal/llm"
	"github.com/Rrens/rag-tutor/internal/observability"
	"github.com/Rrens/rag-tutor/internal/security"
)

// Dependencies are the collaborators the HTTP layer needs. Limiter, Cache,
// JWT and Metrics are optional.
type Dependencies struct {
	Tutor   handler.Tutor
	LLM     *llm.Router
	Ready   map[string]handler.Pinger
	Limiter customMiddleware.Limiter
	Cache   handler.CacheFlusher
	JWT     *security.JWTManager
	Metrics *observability.Metrics
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		r.Handle(cfg.Metrics.Path, deps.Metrics.Handler())
	}

	var limits *customMiddleware.RateLimitMiddleware
	if deps.Limiter != nil {
		limits = customMiddleware.NewRateLimitMiddleware(deps.Limiter)
	}

	messageHandler := handler.NewMessageHandler(deps.Tutor, limits, cfg.Server.MaxUploadBytes)
	historyHandler := handler.NewHistoryHandler(deps.Tutor)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Ready))

		// Protected routes
		r.Group(func(r chi.Router) {
			if cfg.Auth.Enabled && deps.JWT != nil {
				r.Use(customMiddleware.NewAuthMiddleware(deps.JWT).Authenticate)
			}

			r.Post("/messages", messageHandler.Post)
			r.Post("/messages/upload", messageHandler.Upload)

			r.Route("/users/{userID}/history", func(r chi.Router) {
				r.Use(limits.Limit)
				r.Get("/", historyHandler.Get)
				r.Delete("/", historyHandler.Delete)
			})

			if deps.LLM != nil {
				r.Get("/llm-providers", handler.ListLLMProviders(deps.LLM))
			}
			if deps.Cache != nil {
				r.Post("/cache/flush", handler.FlushCache(deps.Cache))
			}
		})
	})

	return r
}
