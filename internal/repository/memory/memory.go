// Package memory holds in-process repositories for tests and local development.
package memory

import (
	"context"
	"sync"

	"github.com/Rrens/rag-tutor/internal/domain"
)

// HistoryRepository implements domain.HistoryRepository in a map
type HistoryRepository struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{docs: make(map[string][]byte)}
}

func (r *HistoryRepository) Load(_ context.Context, userID string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[userID]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (r *HistoryRepository) Upsert(_ context.Context, userID string, payload []byte) error {
	doc := make([]byte, len(payload))
	copy(doc, payload)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[userID] = doc
	return nil
}

func (r *HistoryRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, userID)
	return nil
}

// KnowledgeRepository implements domain.KnowledgeRepository over a slice
type KnowledgeRepository struct {
	mu     sync.RWMutex
	chunks []domain.KnowledgeChunk
	nextID int64
}

func NewKnowledgeRepository() *KnowledgeRepository {
	return &KnowledgeRepository{nextID: 1}
}

func (r *KnowledgeRepository) Nearest(_ context.Context, embedding []float32, k int) ([]domain.KnowledgeChunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.NearestChunks(r.chunks, embedding, k), nil
}

func (r *KnowledgeRepository) Insert(_ context.Context, chunks []domain.KnowledgeChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range chunks {
		c.ID = r.nextID
		r.nextID++
		c.Embedding = append([]float32(nil), c.Embedding...)
		r.chunks = append(r.chunks, c)
	}
	return nil
}

func (r *KnowledgeRepository) Truncate(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = nil
	r.nextID = 1
	return nil
}

func (r *KnowledgeRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.chunks)), nil
}

// InteractionLog implements domain.InteractionSink and keeps every record
type InteractionLog struct {
	mu      sync.Mutex
	records []domain.InteractionRecord
}

func NewInteractionLog() *InteractionLog {
	return &InteractionLog{}
}

func (l *InteractionLog) Name() string {
	return "memory"
}

func (l *InteractionLog) Append(_ context.Context, rec domain.InteractionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

// Records returns a copy of everything appended so far
func (l *InteractionLog) Records() []domain.InteractionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.InteractionRecord(nil), l.records...)
}
