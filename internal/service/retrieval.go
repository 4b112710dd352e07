package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/llm"
	"github.com/Rrens/rag-tutor/internal/observability"
)

// EmbeddingCache remembers query vectors. Get returns nil on a miss.
type EmbeddingCache interface {
	Get(ctx context.Context, text string) ([]float32, error)
	Set(ctx context.Context, text string, vec []float32) error
}

// Retriever finds reference material for a search query. It is best effort:
// every failure becomes the no-match result.
type Retriever struct {
	embedder llm.Embedder
	store    domain.KnowledgeRepository
	k        int
	cache    EmbeddingCache
	metrics  *observability.Metrics
}

// NewRetriever creates a retriever returning at most k chunks. cache may be nil.
func NewRetriever(embedder llm.Embedder, store domain.KnowledgeRepository, k int, cache EmbeddingCache, metrics *observability.Metrics) *Retriever {
	if k < 1 {
		k = 3
	}
	return &Retriever{embedder: embedder, store: store, k: k, cache: cache, metrics: metrics}
}

// Retrieve returns up to k chunk contents nearest to query
func (r *Retriever) Retrieve(ctx context.Context, query string) domain.RetrievalResult {
	query = strings.TrimSpace(domain.StripNUL(query))
	if query == "" {
		return domain.NoMatch()
	}

	result, err := r.search(ctx, query)
	if err != nil {
		log.Warn().Err(err).Msg("retrieval failed, continuing without reference material")
		r.metrics.ObserveDegradation(domain.KindRetrieval)
		return domain.NoMatch()
	}
	r.metrics.ObserveRetrieval(len(result.Chunks))
	return result
}

func (r *Retriever) search(ctx context.Context, query string) (domain.RetrievalResult, error) {
	if r.embedder == nil || r.store == nil {
		return domain.NoMatch(), domain.NewError(domain.KindRetrieval, "search", fmt.Errorf("retrieval is not configured"))
	}

	vec, err := r.embed(ctx, query)
	if err != nil {
		return domain.NoMatch(), domain.NewError(domain.KindRetrieval, "embed query", err)
	}

	chunks, err := r.store.Nearest(ctx, vec, r.k)
	if err != nil {
		return domain.NoMatch(), domain.NewError(domain.KindRetrieval, "nearest chunks", err)
	}
	if len(chunks) == 0 {
		return domain.NoMatch(), nil
	}
	if len(chunks) > r.k {
		chunks = chunks[:r.k]
	}

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = domain.StripNUL(c.Content)
	}
	return domain.RetrievalResult{Chunks: contents, Found: true}, nil
}

func (r *Retriever) embed(ctx context.Context, query string) ([]float32, error) {
	if r.cache != nil {
		vec, err := r.cache.Get(ctx, query)
		if err != nil {
			log.Debug().Err(err).Msg("embedding cache read failed")
		} else if len(vec) > 0 {
			return vec, nil
		}
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, query, vec); err != nil {
			log.Debug().Err(err).Msg("embedding cache write failed")
		}
	}
	return vec, nil
}
