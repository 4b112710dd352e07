// Package ingest loads the reference corpus into the knowledge store.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/llm"
	"github.com/Rrens/rag-tutor/internal/retry"
)

// CacheFlusher drops cached query embeddings after the corpus changes
type CacheFlusher interface {
	FlushAll(ctx context.Context) (int64, error)
}

// Options controls chunking, batching and pacing
type Options struct {
	ChunkSize         int
	ChunkOverlap      int
	BatchSize         int
	RequestsPerSecond float64
	Policy            retry.Policy
}

// DefaultOptions chunks at 1000 runes with 200 overlap, 25 per embedding batch
func DefaultOptions() Options {
	return Options{
		ChunkSize:         1000,
		ChunkOverlap:      200,
		BatchSize:         25,
		RequestsPerSecond: 1,
		Policy:            retry.NewPolicy(2, 0),
	}
}

// Report summarizes an ingestion run
type Report struct {
	Files          int
	Chunks         int
	Stored         int
	SkippedBatches int
}

type document struct {
	source string
	text   string
}

// Ingestor embeds corpus files and appends them to a knowledge store
type Ingestor struct {
	embedder llm.Embedder
	store    domain.KnowledgeRepository
	opts     Options
	limiter  *rate.Limiter
}

func NewIngestor(embedder llm.Embedder, store domain.KnowledgeRepository, opts Options) *Ingestor {
	def := DefaultOptions()
	if opts.ChunkSize < 1 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = def.BatchSize
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Ingestor{
		embedder: embedder,
		store:    store,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Ingest appends every .txt and .md file under dir. A batch whose embedding
// fails after retries is skipped.
func (i *Ingestor) Ingest(ctx context.Context, dir string) (Report, error) {
	docs, err := readCorpus(dir)
	if err != nil {
		return Report{}, err
	}

	var chunks []domain.KnowledgeChunk
	for _, doc := range docs {
		for _, text := range Split(doc.text, i.opts.ChunkSize, i.opts.ChunkOverlap) {
			if strings.TrimSpace(text) == "" {
				continue
			}
			chunks = append(chunks, domain.KnowledgeChunk{Content: text, Source: doc.source})
		}
	}

	report := Report{Files: len(docs), Chunks: len(chunks)}
	log.Info().Int("files", report.Files).Int("chunks", report.Chunks).Str("dir", dir).Msg("corpus split")

	for start := 0; start < len(chunks); start += i.opts.BatchSize {
		end := min(start+i.opts.BatchSize, len(chunks))
		batch := chunks[start:end]

		if err := i.limiter.Wait(ctx); err != nil {
			return report, err
		}

		if err := i.embedBatch(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			log.Error().Err(err).Int("offset", start).Int("size", len(batch)).Msg("embedding failed, skipping batch")
			report.SkippedBatches++
			continue
		}

		if err := i.store.Insert(ctx, batch); err != nil {
			return report, fmt.Errorf("failed to store chunks: %w", err)
		}
		report.Stored += len(batch)
		log.Info().Int("stored", report.Stored).Int("total", report.Chunks).Msg("chunks stored")
	}

	return report, nil
}

// Rebuild empties the knowledge store, then ingests dir. cache may be nil.
func (i *Ingestor) Rebuild(ctx context.Context, dir string, cache CacheFlusher) (Report, error) {
	docs, err := readCorpus(dir)
	if err != nil {
		return Report{}, err
	}
	if len(docs) == 0 {
		return Report{}, fmt.Errorf("corpus %q has no .txt or .md files, refusing to rebuild", dir)
	}

	if err := i.store.Truncate(ctx); err != nil {
		return Report{}, fmt.Errorf("failed to truncate knowledge store: %w", err)
	}
	if cache != nil {
		n, err := cache.FlushAll(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("failed to flush embedding cache")
		} else {
			log.Info().Int64("keys", n).Msg("embedding cache flushed")
		}
	}

	return i.Ingest(ctx, dir)
}

func (i *Ingestor) embedBatch(ctx context.Context, batch []domain.KnowledgeChunk) error {
	texts := make([]string, len(batch))
	for j, c := range batch {
		texts[j] = c.Content
	}

	vectors, err := retry.Do(ctx, i.opts.Policy, func(ctx context.Context) ([][]float32, error) {
		vecs, err := i.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
		}
		return vecs, nil
	}, func(attempt uint, err error) {
		log.Warn().Err(err).Uint("attempt", attempt+1).Msg("embedding batch failed, retrying")
	})
	if err != nil {
		return err
	}

	for j := range batch {
		batch[j].Embedding = vectors[j]
	}
	return nil
}

func readCorpus(dir string) ([]document, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %q is not a directory", dir)
	}

	var docs []document
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supported(path) {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("failed to read corpus file, skipping")
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		docs = append(docs, document{source: filepath.ToSlash(rel), text: domain.StripNUL(string(raw))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus: %w", err)
	}
	return docs, nil
}

func supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}
