package handler

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/Rrens/rag-tutor/internal/domain"
)

var validate = validator.New()

// Tutor is the message pipeline behind the API
type Tutor interface {
	HandleMessage(ctx context.Context, userID string, msg domain.Message) (domain.Reply, error)
	ResetHistory(ctx context.Context, userID string) error
	History(ctx context.Context, userID string) []domain.Turn
}
