// Package app assembles the tutor from configuration. It is shared by the
// server and the operator CLI.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-tutor/internal/config"
	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/llm"
	"github.com/Rrens/rag-tutor/internal/llm/gemini"
	"github.com/Rrens/rag-tutor/internal/llm/ollama"
	"github.com/Rrens/rag-tutor/internal/llm/openai"
	"github.com/Rrens/rag-tutor/internal/observability"
	"github.com/Rrens/rag-tutor/internal/repository/memory"
	"github.com/Rrens/rag-tutor/internal/repository/postgres"
	"github.com/Rrens/rag-tutor/internal/repository/redis"
	"github.com/Rrens/rag-tutor/internal/repository/sqlite"
	"github.com/Rrens/rag-tutor/internal/retry"
	"github.com/Rrens/rag-tutor/internal/service"
	"github.com/Rrens/rag-tutor/internal/sheets"
	"github.com/Rrens/rag-tutor/internal/storage/s3"
)

// Backend is the selected persistence driver
type Backend struct {
	Driver       string
	History      domain.HistoryRepository
	Knowledge    domain.KnowledgeRepository
	Interactions domain.InteractionSink

	ping  func(ctx context.Context) error
	close func()
}

// OpenBackend connects the configured database driver: postgres, sqlite or memory
func OpenBackend(ctx context.Context, cfg config.DatabaseConfig) (*Backend, error) {
	switch cfg.Driver {
	case "", "postgres":
		db, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Driver:       "postgres",
			History:      db.History(),
			Knowledge:    db.Knowledge(),
			Interactions: db.Interactions(),
			ping:         db.Ping,
			close:        db.Close,
		}, nil

	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Driver:       "sqlite",
			History:      store.History(),
			Knowledge:    store.Knowledge(),
			Interactions: store.Interactions(),
			ping:         store.Ping,
			close: func() {
				if err := store.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close sqlite store")
				}
			},
		}, nil

	case "memory":
		return &Backend{
			Driver:       "memory",
			History:      memory.NewHistoryRepository(),
			Knowledge:    memory.NewKnowledgeRepository(),
			Interactions: memory.NewInteractionLog(),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// Ping checks the database
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases the database
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// NewLLMRouter registers every provider that has credentials or a host
func NewLLMRouter(cfg config.LLMConfig) *llm.Router {
	router := llm.NewRouter(cfg.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.DefaultProvider)

	if cfg.Gemini.APIKey != "" {
		router.RegisterProvider(gemini.NewProvider(cfg.Gemini))
	} else {
		log.Warn().Msg("Gemini API key is empty, skipping registration")
	}
	if cfg.OpenAI.APIKey != "" {
		router.RegisterProvider(openai.NewProvider(cfg.OpenAI))
	}
	if cfg.Ollama.Host != "" {
		log.Info().Str("host", cfg.Ollama.Host).Msg("Registering Ollama provider")
		router.RegisterProvider(ollama.NewProvider(cfg.Ollama.Host, cfg.Ollama.DefaultModel, cfg.Ollama.EmbeddingModel))
	}

	return router
}

// Services is the assembled pipeline plus the Redis helpers the HTTP layer uses
type Services struct {
	Tutor   *service.TutorService
	Cache   *redis.EmbeddingCache
	Limiter *redis.RateLimiter
}

// NewServices wires the tutor pipeline. rdb may be nil.
func NewServices(ctx context.Context, cfg *config.Config, backend *Backend, router *llm.Router, rdb *redis.Client, metrics *observability.Metrics) *Services {
	policy := retry.NewPolicy(cfg.Tutor.MaxRetries, cfg.Tutor.RetryDelay())
	out := &Services{}

	var generator service.Generator
	if p, err := router.GetProvider(cfg.LLM.DefaultProvider); err == nil {
		generator = p
	} else {
		log.Warn().Err(err).Msg("no generation provider, replies will be maintenance notices")
	}

	var embedder llm.Embedder
	if e, err := router.Embedder(cfg.LLM.EmbeddingProvider); err == nil {
		embedder = e
	} else {
		log.Warn().Err(err).Msg("no embedding provider, retrieval disabled")
	}

	var images llm.ImageDescriber
	if d, err := mediaProvider(router.ImageDescriber, cfg.LLM.DefaultProvider); err == nil {
		images = d
	} else {
		log.Warn().Err(err).Msg("no image describer, photos will be marked as unreadable")
	}

	var audio llm.AudioTranscriber
	if a, err := mediaProvider(router.AudioTranscriber, cfg.LLM.DefaultProvider); err == nil {
		audio = a
	} else {
		log.Warn().Err(err).Msg("no audio transcriber, voice notes will be marked as unreadable")
	}

	var blobs service.BlobStore
	if cfg.Storage.Enabled {
		if store, err := s3.NewBlobStore(ctx, cfg.Storage); err == nil {
			blobs = store
		} else {
			log.Error().Err(err).Msg("failed to create blob store, media will not be archived")
		}
	}

	sinks := []domain.InteractionSink{backend.Interactions}
	if cfg.Sheets.Enabled {
		if sink, err := sheets.NewSink(ctx, cfg.Sheets); err == nil {
			sinks = append(sinks, sink)
		} else {
			log.Error().Err(err).Msg("failed to create sheets sink")
		}
	}

	var locker service.Locker = service.NewLocalLocker()
	var cache service.EmbeddingCache
	if rdb != nil {
		locker = redis.NewUserLock(rdb, cfg.Redis.LockTTL, cfg.Redis.LockWait)
		out.Cache = redis.NewEmbeddingCache(rdb, cfg.LLM.EmbeddingProvider, cfg.Redis.EmbeddingCacheTTL)
		cache = out.Cache
		if cfg.Redis.RateLimitPerMinute > 0 {
			out.Limiter = redis.NewRateLimiter(rdb, cfg.Redis.RateLimitPerMinute, cfg.Redis.RateLimitBurst)
		}
	}

	out.Tutor = service.NewTutorService(
		service.NewNormalizer(images, audio, blobs, policy, cfg.Tutor.TrivialInputs, metrics),
		service.NewRetriever(embedder, backend.Knowledge, cfg.Tutor.RetrievalK, cache, metrics),
		service.NewHistoryStore(backend.History, cfg.Tutor.MaxHistoryLength, metrics),
		service.NewResponder(generator, policy, cfg.Tutor.SystemPrompt, metrics),
		service.NewRecorder(metrics, sinks...),
		locker,
		cfg.Tutor.ResetCommands,
		metrics,
	)
	return out
}

// mediaProvider prefers the default provider and falls back to gemini
func mediaProvider[T any](lookup func(string) (T, error), preferred string) (T, error) {
	v, err := lookup(preferred)
	if err == nil || preferred == "gemini" {
		return v, err
	}
	return lookup("gemini")
}
