package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepository implements domain.HistoryRepository on the chat_history table
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Load returns the raw history document, or nil when the user has none
func (r *HistoryRepository) Load(ctx context.Context, userID string) ([]byte, error) {
	query := `SELECT history FROM chat_history WHERE user_id = $1`

	var payload []byte
	err := r.pool.QueryRow(ctx, query, userID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return payload, nil
}

// Upsert replaces the user's history document
func (r *HistoryRepository) Upsert(ctx context.Context, userID string, payload []byte) error {
	query := `
		INSERT INTO chat_history (user_id, history, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET history = EXCLUDED.history, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, userID, string(payload)); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	return nil
}

// Delete removes the user's history document
func (r *HistoryRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM chat_history WHERE user_id = $1`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}

	return nil
}
