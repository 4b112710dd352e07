package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// HistoryRepository implements domain.HistoryRepository
type HistoryRepository struct {
	db *sql.DB
}

func (r *HistoryRepository) Load(ctx context.Context, userID string) ([]byte, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT history FROM chat_history WHERE user_id = ?`, userID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return []byte(payload), nil
}

func (r *HistoryRepository) Upsert(ctx context.Context, userID string, payload []byte) error {
	query := `
		INSERT INTO chat_history (user_id, history, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE
		SET history = excluded.history, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query, userID, string(payload)); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chat_history WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}
