package llm

import (
	"context"

	"github.com/Rrens/rag-tutor/internal/domain"
)

// Request contains chat generation parameters
type Request struct {
	// System is the persona instruction, sent out-of-band where the backend allows
	System string
	// History holds prior turns, oldest first
	History []domain.Turn
	// Prompt becomes the new user turn
	Prompt string
	// Model overrides the provider default when set
	Model string
}

// Response contains LLM generation result
type Response struct {
	Text       string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for chat generation backends
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Generate continues the conversation with one new user turn
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Embedder turns text into vectors for the knowledge store
type Embedder interface {
	// Embed encodes a search query
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments encodes corpus chunks, preserving order
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageDescriber produces an objective textual description of a photograph
type ImageDescriber interface {
	DescribeImage(ctx context.Context, data []byte, mimeType string) (string, error)
}

// AudioTranscriber produces a transcript of a voice note
type AudioTranscriber interface {
	TranscribeAudio(ctx context.Context, data []byte, mimeType string) (string, error)
}
