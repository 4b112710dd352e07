package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Rrens/rag-tutor/internal/config"
	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/llm"
)

// Provider talks to Gemini for chat, vision, audio and embeddings
type Provider struct {
	apiKey         string
	model          string
	visionModel    string
	audioModel     string
	embeddingModel string
}

func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		visionModel:    orDefault(cfg.VisionModel, "gemini-2.5-flash"),
		audioModel:     orDefault(cfg.AudioModel, "gemini-2.5-flash"),
		embeddingModel: orDefault(cfg.EmbeddingModel, "text-embedding-004"),
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"gemini-2.5-pro",
		"gemini-2.5-flash",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemini-2.5-pro"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) newClient(ctx context.Context) (*genai.Client, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

func (p *Provider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = p.DefaultModel()
	}

	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	generativeModel := client.GenerativeModel(model)
	generativeModel.SafetySettings = teachingSafetySettings()
	if req.System != "" {
		generativeModel.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	cs := generativeModel.StartChat()
	cs.History = toContents(req.History)

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(req.Prompt))
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	output, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	tokensUsed := 0
	if resp.UsageMetadata != nil {
		tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &llm.Response{
		Text:       output,
		Model:      model,
		TokensUsed: tokensUsed,
		LatencyMs:  latency,
	}, nil
}

func (p *Provider) DescribeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	return p.describeMedia(ctx, p.visionModel, data, orDefault(mimeType, "image/jpeg"), llm.VisionInstruction)
}

func (p *Provider) TranscribeAudio(ctx context.Context, data []byte, mimeType string) (string, error) {
	return p.describeMedia(ctx, p.audioModel, data, orDefault(mimeType, "audio/m4a"), llm.AudioInstruction)
}

func (p *Provider) describeMedia(ctx context.Context, model string, data []byte, mimeType, instruction string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty media payload")
	}

	client, err := p.newClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	generativeModel := client.GenerativeModel(model)
	resp, err := generativeModel.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: data},
		genai.Text(instruction),
	)
	if err != nil {
		return "", fmt.Errorf("gemini media analysis error: %w", err)
	}

	return responseText(resp)
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	em := client.EmbeddingModel(p.embeddingModel)
	em.TaskType = genai.TaskTypeRetrievalQuery

	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding error: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding from gemini")
	}
	return res.Embedding.Values, nil
}

func (p *Provider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	em := client.EmbeddingModel(p.embeddingModel)
	em.TaskType = genai.TaskTypeRetrievalDocument

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embedding error: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}

	out := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// teachingSafetySettings turns content blocking off for every category
func teachingSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockNone})
	}
	return settings
}

func toContents(turns []domain.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role, ok := domain.NormalizeRole(t.Role)
		if !ok {
			continue
		}
		parts := make([]genai.Part, 0, len(t.Parts))
		for _, s := range t.Parts {
			parts = append(parts, genai.Text(s))
		}
		contents = append(contents, &genai.Content{Role: geminiRole(role), Parts: parts})
	}
	return contents
}

func geminiRole(r domain.Role) string {
	if r == domain.RoleAssistant {
		return "model"
	}
	return "user"
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini response had no text")
	}
	return sb.String(), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
