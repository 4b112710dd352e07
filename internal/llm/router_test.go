package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name       string
	configured bool
}

func (s *stubProvider) Name() string              { return s.name }
func (s *stubProvider) AvailableModels() []string { return []string{s.name + "-1"} }
func (s *stubProvider) DefaultModel() string      { return s.name + "-1" }
func (s *stubProvider) IsConfigured() bool        { return s.configured }
func (s *stubProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	return &Response{Text: "hi"}, nil
}

type stubEmbeddingProvider struct {
	stubProvider
}

func (s *stubEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, nil
}

func (s *stubEmbeddingProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func TestRouter_GetProvider(t *testing.T) {
	r := NewRouter("a")
	r.RegisterProvider(&stubProvider{name: "a", configured: true})
	r.RegisterProvider(&stubProvider{name: "b", configured: false})

	p, err := r.GetProvider("")
	require.NoError(t, err)
	assert.Equal(t, "a", p.Name())

	_, err = r.GetProvider("b")
	assert.ErrorContains(t, err, "not configured")

	_, err = r.GetProvider("missing")
	assert.ErrorContains(t, err, "not found")

	assert.Equal(t, []string{"a"}, r.ListProviders())
}

func TestRouter_Capabilities(t *testing.T) {
	r := NewRouter("plain")
	r.RegisterProvider(&stubProvider{name: "plain", configured: true})
	r.RegisterProvider(&stubEmbeddingProvider{stubProvider{name: "emb", configured: true}})

	_, err := r.Embedder("plain")
	assert.ErrorContains(t, err, "does not support embeddings")

	e, err := r.Embedder("emb")
	require.NoError(t, err)
	vec, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)

	_, err = r.ImageDescriber("emb")
	assert.Error(t, err)
	_, err = r.AudioTranscriber("plain")
	assert.Error(t, err)
}

func TestRouter_GetProvidersInfo(t *testing.T) {
	r := NewRouter("b")
	r.RegisterProvider(&stubProvider{name: "b", configured: true})
	r.RegisterProvider(&stubProvider{name: "a", configured: false})

	infos := r.GetProvidersInfo()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.False(t, infos[0].Configured)
	assert.True(t, infos[1].Default)
}
