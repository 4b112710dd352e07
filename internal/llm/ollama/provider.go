package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/llm"
)

// Provider implements llm.Provider and llm.Embedder for Ollama
type Provider struct {
	host           string
	defaultModel   string
	embeddingModel string
	client         *http.Client
}

// NewProvider creates a new Ollama provider
func NewProvider(host, defaultModel, embeddingModel string) *Provider {
	if defaultModel == "" {
		defaultModel = "llama3"
	}
	if embeddingModel == "" {
		embeddingModel = "nomic-embed-text"
	}
	return &Provider{
		host:           host,
		defaultModel:   defaultModel,
		embeddingModel: embeddingModel,
		client:         &http.Client{Timeout: 300 * time.Second},
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "ollama"
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return []string{
		"llama3",
		"llama3.1",
		"llama3.2",
		"mistral",
		"mixtral",
		"phi3",
		"qwen2",
	}
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// IsConfigured checks if provider has a host to talk to
func (p *Provider) IsConfigured() bool {
	return p.host != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message   chatMessage `json:"message"`
	Done      bool        `json:"done"`
	EvalCount int         `json:"eval_count"`
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Generate continues the conversation through /api/chat
func (p *Provider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, t := range req.History {
		role, ok := domain.NormalizeRole(t.Role)
		if !ok {
			continue
		}
		messages = append(messages, chatMessage{Role: string(role), Content: t.Text()})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	start := time.Now()

	var chatResp chatResponse
	err := p.post(ctx, "/api/chat", chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options: map[string]any{
			"num_predict": 4096,
		},
	}, &chatResp)
	if err != nil {
		return nil, err
	}

	if chatResp.Message.Content == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	return &llm.Response{
		Text:       chatResp.Message.Content,
		Model:      model,
		TokensUsed: chatResp.EvalCount,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Embed encodes a single text through /api/embeddings
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	var embResp embeddingResponse
	if err := p.post(ctx, "/api/embeddings", embeddingRequest{Model: p.embeddingModel, Prompt: text}, &embResp); err != nil {
		return nil, err
	}
	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding from ollama")
	}

	vec := make([]float32, len(embResp.Embedding))
	for i, v := range embResp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// EmbedDocuments embeds texts one request at a time
func (p *Provider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vec, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (p *Provider) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
