package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InteractionRecord is the audit trace of one handled message
type InteractionRecord struct {
	ID                uuid.UUID   `json:"id"`
	UserID            string      `json:"user_id"`
	MessageType       MessageType `json:"message_type"`
	ContentDescriptor string      `json:"content_descriptor"`
	MediaURL          string      `json:"media_url,omitempty"`
	Analysis          string      `json:"analysis,omitempty"`
	RetrievedContext  string      `json:"retrieved_context"`
	FinalReply        string      `json:"final_reply"`
	Succeeded         bool        `json:"succeeded"`
	CreatedAt         time.Time   `json:"created_at"`
}

// InteractionSink persists interaction records
type InteractionSink interface {
	Name() string
	Append(ctx context.Context, record InteractionRecord) error
}
