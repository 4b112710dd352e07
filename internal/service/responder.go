package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/llm"
	"github.com/Rrens/rag-tutor/internal/observability"
	"github.com/Rrens/rag-tutor/internal/retry"
)

const (
	// ApologyReply is sent when every generation attempt failed
	ApologyReply = "抱歉，我現在有點忙不過來，請稍後再試一次。"
	// MaintenanceReply is sent when no generation backend is configured
	MaintenanceReply = "系統維護中，請稍後再試。"
)

// Generator is the chat generation collaborator
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Responder produces the tutor's reply with bounded retry
type Responder struct {
	gen     Generator
	policy  retry.Policy
	system  string
	metrics *observability.Metrics
}

// NewResponder creates a responder. A nil gen always yields MaintenanceReply.
func NewResponder(gen Generator, policy retry.Policy, systemPrompt string, metrics *observability.Metrics) *Responder {
	if systemPrompt == "" {
		systemPrompt = llm.DefaultSystemPrompt
	}
	return &Responder{gen: gen, policy: policy, system: systemPrompt, metrics: metrics}
}

// Respond continues history with a new user turn built from the retrieved
// context and question. It never persists anything.
func (r *Responder) Respond(ctx context.Context, history []domain.Turn, retrieved domain.RetrievalResult, question string) (string, bool) {
	if r.gen == nil {
		return MaintenanceReply, false
	}

	req := llm.Request{
		System:  r.system,
		History: history,
		Prompt:  llm.BuildTutorPrompt(retrieved.Context(), question),
	}

	attempts := 0
	text, err := retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		attempts++
		resp, err := r.gen.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		if resp == nil || strings.TrimSpace(resp.Text) == "" {
			return "", fmt.Errorf("empty reply")
		}
		return resp.Text, nil
	}, logRetry("generate"))
	r.metrics.ObserveGenerationAttempts(attempts)

	if err != nil {
		err = domain.NewError(domain.KindGeneration, "generate", err)
		log.Error().Err(err).Int("attempts", attempts).Msg("generation exhausted, sending apology")
		r.metrics.ObserveDegradation(domain.KindGeneration)
		return ApologyReply, false
	}

	return domain.StripNUL(text), true
}
