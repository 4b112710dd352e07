package domain

import (
	"context"
	"sort"
	"strings"
)

const (
	// NoMatchContext is how an empty retrieval renders inside a prompt
	NoMatchContext = "N/A"

	// ContextSeparator joins retrieved chunk contents
	ContextSeparator = "\n\n---\n\n"
)

// KnowledgeChunk is one unit of embedded reference text
type KnowledgeChunk struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	Source    string    `json:"source"`
}

// RetrievalResult is the per-request outcome of a knowledge lookup. A zero
// value means nothing relevant was found.
type RetrievalResult struct {
	Chunks []string
	Found  bool
}

// NoMatch returns the "nothing relevant found" sentinel
func NoMatch() RetrievalResult {
	return RetrievalResult{}
}

// Context renders the result as a single context block
func (r RetrievalResult) Context() string {
	if !r.Found {
		return NoMatchContext
	}
	return strings.Join(r.Chunks, ContextSeparator)
}

// KnowledgeRepository stores embedded chunks and answers nearest-neighbour
// queries. Nearest returns at most k chunks ordered by ascending distance,
// ties broken by insertion order.
type KnowledgeRepository interface {
	Nearest(ctx context.Context, embedding []float32, k int) ([]KnowledgeChunk, error)
	Insert(ctx context.Context, chunks []KnowledgeChunk) error
	Truncate(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// SquaredL2 is the squared Euclidean distance between a and b. Vectors of
// different length compare over the shorter prefix plus the tail magnitude.
func SquaredL2(a, b []float32) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		var x, y float64
		if i < len(a) {
			x = float64(a[i])
		}
		if i < len(b) {
			y = float64(b[i])
		}
		d := x - y
		sum += d * d
	}
	return sum
}

// NearestChunks ranks chunks by distance to query and keeps the first k.
// Chunks must be in insertion order; equal distances keep that order.
func NearestChunks(chunks []KnowledgeChunk, query []float32, k int) []KnowledgeChunk {
	if k <= 0 || len(chunks) == 0 {
		return nil
	}

	type scored struct {
		chunk KnowledgeChunk
		dist  float64
	}
	ranked := make([]scored, len(chunks))
	for i, c := range chunks {
		ranked[i] = scored{chunk: c, dist: SquaredL2(c.Embedding, query)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]KnowledgeChunk, k)
	for i := range out {
		out[i] = ranked[i].chunk
	}
	return out
}
