package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Rrens/rag-tutor/internal/domain"
)

// KnowledgeRepository implements domain.KnowledgeRepository. Embeddings are
// stored as JSON arrays and ranked in memory.
type KnowledgeRepository struct {
	db *sql.DB
}

func (r *KnowledgeRepository) Nearest(ctx context.Context, embedding []float32, k int) ([]domain.KnowledgeChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, content, source, embedding FROM knowledge_chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan knowledge chunks: %w", err)
	}
	defer rows.Close()

	var all []domain.KnowledgeChunk
	for rows.Next() {
		var (
			c   domain.KnowledgeChunk
			raw string
		)
		if err := rows.Scan(&c.ID, &c.Content, &c.Source, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &c.Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding of chunk %d: %w", c.ID, err)
		}
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate knowledge chunks: %w", err)
	}

	return domain.NearestChunks(all, embedding, k), nil
}

func (r *KnowledgeRepository) Insert(ctx context.Context, chunks []domain.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO knowledge_chunks (content, source, embedding) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		raw, err := json.Marshal(c.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.Content, c.Source, string(raw)); err != nil {
			return fmt.Errorf("failed to insert knowledge chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit knowledge chunks: %w", err)
	}
	return nil
}

func (r *KnowledgeRepository) Truncate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM knowledge_chunks`); err != nil {
		return fmt.Errorf("failed to truncate knowledge chunks: %w", err)
	}
	return nil
}

func (r *KnowledgeRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count knowledge chunks: %w", err)
	}
	return n, nil
}
