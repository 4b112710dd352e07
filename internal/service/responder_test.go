package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/llm"
	"github.com/Rrens/rag-tutor/internal/retry"
)

func TestResponder_AlwaysFails(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("429 rate limited"))

	r := NewResponder(gen, retry.NewPolicy(2, 0), "", nil)
	reply, ok := r.Respond(context.Background(), nil, domain.NoMatch(), "q")

	assert.False(t, ok)
	assert.Equal(t, ApologyReply, reply)
	gen.AssertNumberOfCalls(t, "Generate", 2)
}

func TestResponder_SucceedsOnSecondAttempt(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()
	gen.On("Generate", mock.Anything, mock.Anything).Return(&llm.Response{Text: "What is conserved?"}, nil).Once()

	r := NewResponder(gen, retry.NewPolicy(2, 0), "", nil)
	reply, ok := r.Respond(context.Background(), nil, domain.NoMatch(), "q")

	assert.True(t, ok)
	assert.Equal(t, "What is conserved?", reply)
	gen.AssertNumberOfCalls(t, "Generate", 2)
}

func TestResponder_BuildsRequest(t *testing.T) {
	history := []domain.Turn{
		domain.NewTurn(domain.RoleUser, "q0"),
		domain.NewTurn(domain.RoleAssistant, "a0"),
	}
	retrieved := domain.RetrievalResult{Chunks: []string{"動量 = mv"}, Found: true}

	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.System == "persona" &&
			len(req.History) == 2 &&
			req.History[0].Text() == "q0" &&
			req.Prompt == llm.BuildTutorPrompt("動量 = mv", "什麼是動量？")
	})).Return(&llm.Response{Text: "ok"}, nil)

	reply, ok := NewResponder(gen, retry.NewPolicy(2, 0), "persona", nil).
		Respond(context.Background(), history, retrieved, "什麼是動量？")

	assert.True(t, ok)
	assert.Equal(t, "ok", reply)
	gen.AssertExpectations(t)
}

func TestResponder_EmptyReplyIsRetried(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&llm.Response{Text: "  "}, nil)

	reply, ok := NewResponder(gen, retry.NewPolicy(3, 0), "", nil).
		Respond(context.Background(), nil, domain.NoMatch(), "q")

	assert.False(t, ok)
	assert.Equal(t, ApologyReply, reply)
	gen.AssertNumberOfCalls(t, "Generate", 3)
}

func TestResponder_StripsNUL(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return(&llm.Response{Text: "F\x00 = ma"}, nil)

	reply, ok := NewResponder(gen, retry.NewPolicy(1, 0), "", nil).
		Respond(context.Background(), nil, domain.NoMatch(), "q")

	assert.True(t, ok)
	assert.Equal(t, "F = ma", reply)
}

func TestResponder_NoGenerator(t *testing.T) {
	reply, ok := NewResponder(nil, retry.NewPolicy(2, 0), "", nil).
		Respond(context.Background(), nil, domain.NoMatch(), "q")

	assert.False(t, ok)
	assert.Equal(t, MaintenanceReply, reply)
}
