package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Rrens/rag-tutor/internal/domain"
)

// InteractionRepository implements domain.InteractionSink
type InteractionRepository struct {
	db *sql.DB
}

func (r *InteractionRepository) Name() string {
	return "sqlite"
}

func (r *InteractionRepository) Append(ctx context.Context, rec domain.InteractionRecord) error {
	query := `
		INSERT INTO research_log (id, created_at, user_id, message_type, content_descriptor, media_url,
			analysis, retrieved_context, final_reply, succeeded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID.String(),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UserID,
		string(rec.MessageType),
		rec.ContentDescriptor,
		rec.MediaURL,
		rec.Analysis,
		rec.RetrievedContext,
		rec.FinalReply,
		rec.Succeeded,
	)
	if err != nil {
		return fmt.Errorf("failed to append research log: %w", err)
	}
	return nil
}

// CountByUser returns how many research log rows a user has
func (r *InteractionRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM research_log WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count research log: %w", err)
	}
	return n, nil
}
