package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/repository/memory"
	"github.com/Rrens/rag-tutor/internal/retry"
)

type fakeEmbedder struct {
	mu      sync.Mutex
	calls   int
	batches [][]string
	failOn  map[int]bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn[f.calls] {
		return nil, errors.New("quota exceeded")
	}
	f.batches = append(f.batches, append([]string(nil), texts...))

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

type countingFlusher struct{ calls int }

func (c *countingFlusher) FlushAll(ctx context.Context) (int64, error) {
	c.calls++
	return 3, nil
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"kinematics.txt":   "velocity\x00 is the rate of change of position",
		"dynamics.md":      "F = ma",
		"scan.pdf":         "binary",
		"notes/energy.txt": "E = mc^2",
		"empty.txt":        "   ",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func testOptions() Options {
	return Options{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		BatchSize:    2,
		Policy:       retry.NewPolicy(2, 0),
	}
}

func TestIngestor_Ingest(t *testing.T) {
	ctx := context.Background()
	dir := writeCorpus(t)
	embedder := &fakeEmbedder{}
	store := memory.NewKnowledgeRepository()

	report, err := NewIngestor(embedder, store, testOptions()).Ingest(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, Report{Files: 4, Chunks: 3, Stored: 3}, report)
	assert.Equal(t, 2, embedder.calls)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	nearest, err := store.Nearest(ctx, []float32{6, 1}, 1)
	require.NoError(t, err)
	require.Len(t, nearest, 1)
	assert.Equal(t, "F = ma", nearest[0].Content)
	assert.Equal(t, "dynamics.md", nearest[0].Source)

	for _, batch := range embedder.batches {
		for _, text := range batch {
			assert.NotContains(t, text, "\x00")
		}
	}
}

func TestIngestor_SkipsFailedBatch(t *testing.T) {
	ctx := context.Background()
	dir := writeCorpus(t)
	// first batch fails on both attempts
	embedder := &fakeEmbedder{failOn: map[int]bool{1: true, 2: true}}
	store := memory.NewKnowledgeRepository()

	report, err := NewIngestor(embedder, store, testOptions()).Ingest(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.SkippedBatches)
	assert.Equal(t, 1, report.Stored)
	assert.Equal(t, 3, embedder.calls)
}

func TestIngestor_RetriesBatch(t *testing.T) {
	ctx := context.Background()
	dir := writeCorpus(t)
	embedder := &fakeEmbedder{failOn: map[int]bool{1: true}}

	report, err := NewIngestor(embedder, memory.NewKnowledgeRepository(), testOptions()).Ingest(ctx, dir)
	require.NoError(t, err)

	assert.Zero(t, report.SkippedBatches)
	assert.Equal(t, 3, report.Stored)
}

func TestIngestor_Rebuild(t *testing.T) {
	ctx := context.Background()
	dir := writeCorpus(t)
	store := memory.NewKnowledgeRepository()
	require.NoError(t, store.Insert(ctx, []domain.KnowledgeChunk{
		{Content: "stale", Embedding: []float32{0, 0}},
	}))
	flusher := &countingFlusher{}

	report, err := NewIngestor(&fakeEmbedder{}, store, testOptions()).Rebuild(ctx, dir, flusher)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Stored)
	assert.Equal(t, 1, flusher.calls)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestIngestor_MissingCorpus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeRepository()
	require.NoError(t, store.Insert(ctx, []domain.KnowledgeChunk{{Content: "keep", Embedding: []float32{1}}}))

	_, err := NewIngestor(&fakeEmbedder{}, store, testOptions()).Rebuild(ctx, filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIngestor_RebuildEmptyCorpus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKnowledgeRepository()
	require.NoError(t, store.Insert(ctx, []domain.KnowledgeChunk{{Content: "keep", Embedding: []float32{1}}}))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.pdf"), []byte("%PDF"), 0o644))

	_, err := NewIngestor(&fakeEmbedder{}, store, testOptions()).Rebuild(ctx, dir, nil)
	assert.ErrorContains(t, err, "refusing to rebuild")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
