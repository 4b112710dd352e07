package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-tutor/internal/api"
	"github.com/Rrens/rag-tutor/internal/api/handler"
	"github.com/Rrens/rag-tutor/internal/app"
	"github.com/Rrens/rag-tutor/internal/config"
	"github.com/Rrens/rag-tutor/internal/logger"
	"github.com/Rrens/rag-tutor/internal/observability"
	"github.com/Rrens/rag-tutor/internal/repository/redis"
	"github.com/Rrens/rag-tutor/internal/security"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := logger.Setup(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Msg("Starting RAG tutor server")

	ctx := context.Background()

	backend, err := app.OpenBackend(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer backend.Close()

	ready := map[string]handler.Pinger{"database": backend}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		ready["redis"] = redisClient
	}

	metrics := observability.NewMetrics("ragtutor")
	llmRouter := app.NewLLMRouter(cfg.LLM)
	services := app.NewServices(ctx, cfg, backend, llmRouter, redisClient, metrics)

	deps := api.Dependencies{
		Tutor:   services.Tutor,
		LLM:     llmRouter,
		Ready:   ready,
		Metrics: metrics,
	}
	if services.Limiter != nil {
		deps.Limiter = services.Limiter
	}
	if services.Cache != nil {
		deps.Cache = services.Cache
	}
	if cfg.Auth.Enabled {
		if cfg.Auth.JWTSecret == "" {
			log.Fatal().Msg("auth is enabled but JWT_SECRET is empty")
		}
		deps.JWT = security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(cfg, deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
