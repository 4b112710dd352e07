package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/observability"
)

// HistoryStore keeps a bounded, ordered list of turns per user
type HistoryStore struct {
	repo      domain.HistoryRepository
	maxLength int
	metrics   *observability.Metrics
}

// NewHistoryStore creates a history store that keeps at most maxLength turns
func NewHistoryStore(repo domain.HistoryRepository, maxLength int, metrics *observability.Metrics) *HistoryStore {
	if maxLength < 1 {
		maxLength = 20
	}
	return &HistoryStore{repo: repo, maxLength: maxLength, metrics: metrics}
}

// MaxLength returns the turn bound
func (h *HistoryStore) MaxLength() int {
	return h.maxLength
}

// storedTurn accepts parts as plain strings or {"text": ...} objects
type storedTurn struct {
	Role  domain.Role       `json:"role"`
	Parts []json.RawMessage `json:"parts"`
}

// Load returns the user's turns, oldest first. A missing record, an
// unreadable payload or a store failure all yield an empty history.
func (h *HistoryStore) Load(ctx context.Context, userID string) []domain.Turn {
	turns, err := h.load(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("history unavailable, starting fresh session")
		h.metrics.ObserveDegradation(domain.KindHistoryCorrupt)
		return []domain.Turn{}
	}
	return turns
}

func (h *HistoryStore) load(ctx context.Context, userID string) ([]domain.Turn, error) {
	payload, err := h.repo.Load(ctx, userID)
	if err != nil {
		return nil, domain.NewError(domain.KindHistoryCorrupt, "load history", err)
	}
	if len(payload) == 0 {
		return []domain.Turn{}, nil
	}

	turns, err := decodeTurns(payload)
	if err != nil {
		return nil, domain.NewError(domain.KindHistoryCorrupt, "decode history", err)
	}
	return domain.TruncateTurns(turns, h.maxLength), nil
}

// Save truncates to the most recent turns and replaces the stored record
func (h *HistoryStore) Save(ctx context.Context, userID string, turns []domain.Turn) error {
	turns = domain.TruncateTurns(turns, h.maxLength)
	if turns == nil {
		turns = []domain.Turn{}
	}

	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := h.repo.Upsert(ctx, userID, payload); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Clear deletes the user's session
func (h *HistoryStore) Clear(ctx context.Context, userID string) error {
	if err := h.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func decodeTurns(payload []byte) ([]domain.Turn, error) {
	var stored []storedTurn
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	turns := make([]domain.Turn, 0, len(stored))
	for _, st := range stored {
		role, ok := domain.NormalizeRole(st.Role)
		if !ok {
			continue
		}
		parts := make([]string, 0, len(st.Parts))
		for _, raw := range st.Parts {
			if text, ok := decodePart(raw); ok {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			continue
		}
		turns = append(turns, domain.Turn{Role: role, Parts: parts})
	}
	return turns, nil
}

func decodePart(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var obj struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Text != nil {
		return *obj.Text, true
	}
	return "", false
}
