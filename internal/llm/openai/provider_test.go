package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/rag-tutor/internal/config"
	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/llm"
)

func TestGenerate(t *testing.T) {
	var got goopenai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Think about momentum."}}],"usage":{"total_tokens":12}}`))
	}))
	defer srv.Close()

	p := NewProvider(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "deepseek-chat"})
	resp, err := p.Generate(context.Background(), llm.Request{
		History: []domain.Turn{domain.NewTurn(domain.RoleAssistant, "earlier")},
		Prompt:  "now",
	})

	require.NoError(t, err)
	assert.Equal(t, "Think about momentum.", resp.Text)
	assert.Equal(t, "deepseek-chat", resp.Model)
	assert.Equal(t, 12, resp.TokensUsed)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "assistant", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestGenerate_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	p := NewProvider(config.OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := p.Generate(context.Background(), llm.Request{Prompt: "q"})
	assert.ErrorContains(t, err, "openai completion error")
}

func TestGenerate_NotConfigured(t *testing.T) {
	_, err := NewProvider(config.OpenAIConfig{}).Generate(context.Background(), llm.Request{Prompt: "q"})
	assert.ErrorContains(t, err, "not configured")
}

func TestEmbedDocuments_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2]},{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	p := NewProvider(config.OpenAIConfig{APIKey: "k", BaseURL: srv.URL, EmbeddingModel: "text-embedding-3-small"})
	vecs, err := p.EmbedDocuments(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)
}
