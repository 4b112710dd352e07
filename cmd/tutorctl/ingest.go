package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Rrens/rag-tutor/internal/app"
	"github.com/Rrens/rag-tutor/internal/config"
	"github.com/Rrens/rag-tutor/internal/ingest"
	"github.com/Rrens/rag-tutor/internal/repository/redis"
	"github.com/Rrens/rag-tutor/internal/retry"
)

type ingestOptions struct {
	Options
	CorpusDir string
}

func newIngestCommand() *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Append corpus files to the knowledge store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, false)
		},
	}
	opts.AddFlags(cmd.Flags())
	cmd.Flags().StringVarP(&opts.CorpusDir, "dir", "d", "", "corpus directory (default ingest.corpus_dir)")
	return cmd
}

func newRebuildCommand() *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Empty the knowledge store and ingest the corpus again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, true)
		},
	}
	opts.AddFlags(cmd.Flags())
	cmd.Flags().StringVarP(&opts.CorpusDir, "dir", "d", "", "corpus directory (default ingest.corpus_dir)")
	return cmd
}

func runIngest(opts *ingestOptions, rebuild bool) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	dir := opts.CorpusDir
	if dir == "" {
		dir = cfg.Ingest.CorpusDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := app.OpenBackend(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer backend.Close()

	embedder, err := app.NewLLMRouter(cfg.LLM).Embedder(cfg.LLM.EmbeddingProvider)
	if err != nil {
		return fmt.Errorf("embedding provider unavailable: %w", err)
	}

	ingestor := ingest.NewIngestor(embedder, backend.Knowledge, ingestOptionsFrom(cfg))

	var report ingest.Report
	if rebuild {
		var flusher ingest.CacheFlusher
		if cfg.Redis.Enabled {
			client, err := redis.NewClient(ctx, cfg.Redis)
			if err != nil {
				log.Warn().Err(err).Msg("Redis unavailable, cached query embeddings are kept")
			} else {
				defer client.Close()
				flusher = redis.NewEmbeddingCache(client, cfg.LLM.EmbeddingProvider, cfg.Redis.EmbeddingCacheTTL)
			}
		}
		report, err = ingestor.Rebuild(ctx, dir, flusher)
	} else {
		report, err = ingestor.Ingest(ctx, dir)
	}
	if err != nil {
		return err
	}

	total, err := backend.Knowledge.Count(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int("files", report.Files).
		Int("chunks", report.Chunks).
		Int("stored", report.Stored).
		Int("skipped_batches", report.SkippedBatches).
		Int64("total_chunks", total).
		Msg("Ingestion finished")
	return nil
}

func ingestOptionsFrom(cfg *config.Config) ingest.Options {
	return ingest.Options{
		ChunkSize:         cfg.Ingest.ChunkSize,
		ChunkOverlap:      cfg.Ingest.ChunkOverlap,
		BatchSize:         cfg.Ingest.BatchSize,
		RequestsPerSecond: cfg.Ingest.RequestsPerSecond,
		Policy:            retry.NewPolicy(cfg.Tutor.MaxRetries, cfg.Tutor.RetryDelay()),
	}
}
