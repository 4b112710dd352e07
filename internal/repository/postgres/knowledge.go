package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/Rrens/rag-tutor/internal/domain"
)

// KnowledgeRepository implements domain.KnowledgeRepository with pgvector
type KnowledgeRepository struct {
	pool *pgxpool.Pool
}

// NewKnowledgeRepository creates a new knowledge repository
func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{pool: pool}
}

// Nearest returns the k chunks closest to embedding by L2 distance
func (r *KnowledgeRepository) Nearest(ctx context.Context, embedding []float32, k int) ([]domain.KnowledgeChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, content, source
		FROM knowledge_chunks
		ORDER BY embedding <-> $1::vector, id
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.KnowledgeChunk
	for rows.Next() {
		var c domain.KnowledgeChunk
		if err := rows.Scan(&c.ID, &c.Content, &c.Source); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate knowledge chunks: %w", err)
	}

	return chunks, nil
}

// Insert appends chunks in a single transaction
func (r *KnowledgeRepository) Insert(ctx context.Context, chunks []domain.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO knowledge_chunks (content, source, embedding) VALUES ($1, $2, $3::vector)`

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(query, c.Content, c.Source, pgvector.NewVector(c.Embedding))
	}

	br := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert knowledge chunk: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit knowledge chunks: %w", err)
	}
	return nil
}

// Truncate removes every chunk; only a full corpus rebuild calls it
func (r *KnowledgeRepository) Truncate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `TRUNCATE knowledge_chunks RESTART IDENTITY`); err != nil {
		return fmt.Errorf("failed to truncate knowledge chunks: %w", err)
	}
	return nil
}

// Count returns the number of stored chunks
func (r *KnowledgeRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count knowledge chunks: %w", err)
	}
	return n, nil
}
