package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/llm"
)

// MockGenerator mocks the Generator interface
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

// MockEmbedder mocks llm.Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockImageDescriber mocks llm.ImageDescriber
type MockImageDescriber struct {
	mock.Mock
}

func (m *MockImageDescriber) DescribeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	args := m.Called(ctx, data, mimeType)
	return args.String(0), args.Error(1)
}

// MockAudioTranscriber mocks llm.AudioTranscriber
type MockAudioTranscriber struct {
	mock.Mock
}

func (m *MockAudioTranscriber) TranscribeAudio(ctx context.Context, data []byte, mimeType string) (string, error) {
	args := m.Called(ctx, data, mimeType)
	return args.String(0), args.Error(1)
}

// MockBlobStore mocks BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	args := m.Called(ctx, data, mimeType)
	return args.String(0), args.Error(1)
}

// MockSink mocks domain.InteractionSink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Name() string {
	return "mock"
}

func (m *MockSink) Append(ctx context.Context, rec domain.InteractionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// MockHistoryRepository mocks domain.HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Load(ctx context.Context, userID string) ([]byte, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockHistoryRepository) Upsert(ctx context.Context, userID string, payload []byte) error {
	args := m.Called(ctx, userID, payload)
	return args.Error(0)
}

func (m *MockHistoryRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// panicSink blows up on every append
type panicSink struct{}

func (panicSink) Name() string { return "panic" }

func (panicSink) Append(ctx context.Context, rec domain.InteractionRecord) error {
	panic("sink exploded")
}
