package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rrens/rag-tutor/internal/domain"
)

// InteractionRepository writes research log rows; implements domain.InteractionSink
type InteractionRepository struct {
	pool *pgxpool.Pool
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(pool *pgxpool.Pool) *InteractionRepository {
	return &InteractionRepository{pool: pool}
}

func (r *InteractionRepository) Name() string {
	return "postgres"
}

// Append inserts one research log row
func (r *InteractionRepository) Append(ctx context.Context, rec domain.InteractionRecord) error {
	query := `
		INSERT INTO research_log (id, created_at, user_id, message_type, content_descriptor, media_url,
			analysis, retrieved_context, final_reply, succeeded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.CreatedAt,
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
