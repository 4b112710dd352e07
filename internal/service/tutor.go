package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/observability"
)

// ResetReply confirms an in-band session reset
const ResetReply = "好的，我們重新開始吧！請告訴我你想學習什麼物理觀念，或把題目傳給我。"

// ErrMissingUser is returned when a message carries no user id
var ErrMissingUser = errors.New("user id is required")

// TutorService drives one message through normalization, retrieval,
// generation, persistence and audit
type TutorService struct {
	normalizer *Normalizer
	retriever  *Retriever
	history    *HistoryStore
	responder  *Responder
	recorder   *Recorder
	locker     Locker
	reset      map[string]struct{}
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewTutorService wires the pipeline. locker may be nil, in which case
// same-user messages are not serialized.
func NewTutorService(
	normalizer *Normalizer,
	retriever *Retriever,
	history *HistoryStore,
	responder *Responder,
	recorder *Recorder,
	locker Locker,
	resetCommands []string,
	metrics *observability.Metrics,
) *TutorService {
	reset := make(map[string]struct{}, len(resetCommands))
	for _, c := range resetCommands {
		reset[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return &TutorService{
		normalizer: normalizer,
		retriever:  retriever,
		history:    history,
		responder:  responder,
		recorder:   recorder,
		locker:     locker,
		reset:      reset,
		metrics:    metrics,
		now:        time.Now,
	}
}

// HandleMessage returns a reply for every supported message. The only
// errors are ErrMissingUser and domain.ErrUnsupportedMessage.
func (s *TutorService) HandleMessage(ctx context.Context, userID string, msg domain.Message) (domain.Reply, error) {
	userID = strings.TrimSpace(domain.StripNUL(userID))
	if userID == "" {
		return domain.Reply{}, ErrMissingUser
	}
	if msg == nil {
		return domain.Reply{}, domain.ErrUnsupportedMessage
	}

	start := s.now()
	s.metrics.ObserveMessage(msg.Type())
	defer func() {
		s.metrics.ObserveHandle(msg.Type(), s.now().Sub(start))
	}()

	if text, ok := msg.(domain.TextMessage); ok && s.isReset(text.Text) {
		return s.handleReset(ctx, userID, text.Text), nil
	}

	input, err := s.normalizer.Normalize(ctx, msg)
	if err != nil {
		return domain.Reply{}, err
	}

	retrieved := s.retriever.Retrieve(ctx, input.SearchQuery)

	reply, succeeded := s.exchange(ctx, userID, input, retrieved)
	s.metrics.ObserveReply(succeeded)

	s.recorder.Record(ctx, domain.InteractionRecord{
		ID:                uuid.New(),
		UserID:            userID,
		MessageType:       input.MessageType,
		ContentDescriptor: input.ContentDescriptor,
		MediaURL:          input.MediaURL,
		Analysis:          input.Analysis,
		RetrievedContext:  retrieved.Context(),
		FinalReply:        reply,
		Succeeded:         succeeded,
		CreatedAt:         s.now(),
	})

	log.Info().
		Str("user_id", userID).
		Str("type", string(input.MessageType)).
		Bool("retrieved", retrieved.Found).
		Bool("succeeded", succeeded).
		Msg("message handled")

	return domain.Reply{Text: reply, Succeeded: succeeded, MessageType: input.MessageType}, nil
}

// exchange runs load, generate and save under the user's lock
func (s *TutorService) exchange(ctx context.Context, userID string, input domain.NormalizedInput, retrieved domain.RetrievalResult) (string, bool) {
	unlock := s.lock(ctx, userID)
	defer unlock()

	history := s.history.Load(ctx, userID)

	reply, succeeded := s.responder.Respond(ctx, history, retrieved, input.Question)
	if !succeeded {
		return reply, false
	}

	turns := make([]domain.Turn, 0, len(history)+2)
	turns = append(turns, history...)
	turns = append(turns,
		domain.NewTurn(domain.RoleUser, input.Question),
		domain.NewTurn(domain.RoleAssistant, reply),
	)
	if err := s.history.Save(ctx, userID, turns); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to persist history")
	}
	return reply, true
}

func (s *TutorService) lock(ctx context.Context, userID string) func() {
	if s.locker == nil {
		return func() {}
	}
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("could not acquire user lock, continuing unlocked")
		return func() {}
	}
	return unlock
}

func (s *TutorService) isReset(text string) bool {
	_, ok := s.reset[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func (s *TutorService) handleReset(ctx context.Context, userID, text string) domain.Reply {
	succeeded := true
	if err := s.ResetHistory(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to reset history")
		succeeded = false
	}
	s.metrics.ObserveReply(succeeded)

	s.recorder.Record(ctx, domain.InteractionRecord{
		ID:                uuid.New(),
		UserID:            userID,
		MessageType:       domain.MessageTypeText,
		ContentDescriptor: text,
		RetrievedContext:  domain.NoMatchContext,
		FinalReply:        ResetReply,
		Succeeded:         succeeded,
		CreatedAt:         s.now(),
	})

	return domain.Reply{Text: ResetReply, Succeeded: succeeded, MessageType: domain.MessageTypeText}
}

// ResetHistory empties the user's session
func (s *TutorService) ResetHistory(ctx context.Context, userID string) error {
	unlock := s.lock(ctx, userID)
	defer unlock()
	return s.history.Clear(ctx, userID)
}

// History returns the user's stored turns, oldest first
func (s *TutorService) History(ctx context.Context, userID string) []domain.Turn {
	return s.history.Load(ctx, userID)
}
