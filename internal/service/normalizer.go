package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/llm"
	"github.com/Rrens/rag-tutor/internal/observability"
	"github.com/Rrens/rag-tutor/internal/retry"
)

const (
	// ImageFailedMarker replaces the question when a photo cannot be described
	ImageFailedMarker = "圖片辨識失敗"
	// TranscriptionFailedMarker replaces the question when a voice note cannot be transcribed
	TranscriptionFailedMarker = "語音辨識失敗"
	// UploadFailedURL is recorded when archiving media fails
	UploadFailedURL = "upload_failed"

	imageDescriptor = "Image received"
	audioDescriptor = "Audio received"
)

// BlobStore archives raw media and returns its URL
type BlobStore interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Normalizer turns any supported message into a canonical question and a
// search query
type Normalizer struct {
	images  llm.ImageDescriber
	audio   llm.AudioTranscriber
	blobs   BlobStore
	policy  retry.Policy
	trivial map[string]struct{}
	metrics *observability.Metrics
}

// NewNormalizer creates a normalizer. images, audio and blobs may be nil.
func NewNormalizer(
	images llm.ImageDescriber,
	audio llm.AudioTranscriber,
	blobs BlobStore,
	policy retry.Policy,
	trivialInputs []string,
	metrics *observability.Metrics,
) *Normalizer {
	trivial := make(map[string]struct{}, len(trivialInputs))
	for _, s := range trivialInputs {
		if key := trivialKey(s); key != "" {
			trivial[key] = struct{}{}
		}
	}
	return &Normalizer{
		images:  images,
		audio:   audio,
		blobs:   blobs,
		policy:  policy,
		trivial: trivial,
		metrics: metrics,
	}
}

// Normalize never fails for the supported message variants; collaborator
// failures become marker strings
func (n *Normalizer) Normalize(ctx context.Context, msg domain.Message) (domain.NormalizedInput, error) {
	switch m := msg.(type) {
	case domain.TextMessage:
		return n.normalizeText(m), nil
	case domain.ImageMessage:
		return n.normalizeImage(ctx, m), nil
	case domain.AudioMessage:
		return n.normalizeAudio(ctx, m), nil
	default:
		return domain.NormalizedInput{}, domain.ErrUnsupportedMessage
	}
}

func (n *Normalizer) normalizeText(m domain.TextMessage) domain.NormalizedInput {
	in := domain.NormalizedInput{
		MessageType:       domain.MessageTypeText,
		Question:          m.Text,
		ContentDescriptor: m.Text,
	}
	if !n.IsTrivial(m.Text) {
		in.SearchQuery = m.Text
	}
	return in
}

func (n *Normalizer) normalizeImage(ctx context.Context, m domain.ImageMessage) domain.NormalizedInput {
	in := domain.NormalizedInput{
		MessageType:       domain.MessageTypeImage,
		ContentDescriptor: imageDescriptor,
		MediaURL:          n.archive(ctx, m.Data, m.MIMEType),
	}

	description, err := n.describeImage(ctx, m)
	if err != nil {
		n.degrade(err)
		in.Question = ImageFailedMarker
		in.SearchQuery = ImageFailedMarker
		in.Analysis = ImageFailedMarker
		return in
	}

	in.Question = llm.ImageQuestion(description)
	in.SearchQuery = description
	in.Analysis = description
	return in
}

func (n *Normalizer) normalizeAudio(ctx context.Context, m domain.AudioMessage) domain.NormalizedInput {
	in := domain.NormalizedInput{
		MessageType:       domain.MessageTypeAudio,
		ContentDescriptor: audioDescriptor,
		MediaURL:          n.archive(ctx, m.Data, m.MIMEType),
	}

	transcript, err := n.transcribeAudio(ctx, m)
	if err != nil {
		n.degrade(err)
		in.Question = TranscriptionFailedMarker
		in.SearchQuery = TranscriptionFailedMarker
		in.Analysis = TranscriptionFailedMarker
		return in
	}

	in.Question = llm.AudioQuestion(transcript)
	in.SearchQuery = transcript
	in.Analysis = transcript
	return in
}

func (n *Normalizer) describeImage(ctx context.Context, m domain.ImageMessage) (string, error) {
	if n.images == nil {
		return "", domain.NewError(domain.KindTranscription, "describe image", fmt.Errorf("no image describer configured"))
	}

	text, err := retry.Do(ctx, n.policy, func(ctx context.Context) (string, error) {
		out, err := n.images.DescribeImage(ctx, m.Data, m.MIMEType)
		if err == nil && strings.TrimSpace(out) == "" {
			err = fmt.Errorf("empty image description")
		}
		return out, err
	}, logRetry("describe image"))
	if err != nil {
		return "", domain.NewError(domain.KindTranscription, "describe image", err)
	}
	return domain.StripNUL(text), nil
}

func (n *Normalizer) transcribeAudio(ctx context.Context, m domain.AudioMessage) (string, error) {
	if n.audio == nil {
		return "", domain.NewError(domain.KindTranscription, "transcribe audio", fmt.Errorf("no audio transcriber configured"))
	}

	text, err := retry.Do(ctx, n.policy, func(ctx context.Context) (string, error) {
		out, err := n.audio.TranscribeAudio(ctx, m.Data, m.MIMEType)
		if err == nil && strings.TrimSpace(out) == "" {
			err = fmt.Errorf("empty transcript")
		}
		return out, err
	}, logRetry("transcribe audio"))
	if err != nil {
		return "", domain.NewError(domain.KindTranscription, "transcribe audio", err)
	}
	return domain.StripNUL(text), nil
}

// archive uploads media for the research log. Upload failures are recorded,
// never returned.
func (n *Normalizer) archive(ctx context.Context, data []byte, mimeType string) string {
	if n.blobs == nil {
		return ""
	}
	url, err := n.blobs.Upload(ctx, data, mimeType)
	if err != nil {
		log.Warn().Err(err).Str("mime_type", mimeType).Msg("media upload failed")
		return UploadFailedURL
	}
	return url
}

func (n *Normalizer) degrade(err error) {
	kind, _ := domain.KindOf(err)
	log.Warn().Err(err).Str("kind", string(kind)).Msg("media analysis failed, using marker")
	n.metrics.ObserveDegradation(kind)
}

// IsTrivial reports whether text is too thin to be worth a retrieval:
// configured greetings and acknowledgements, bare numbers, or fewer than two
// characters once trailing punctuation is removed
func (n *Normalizer) IsTrivial(text string) bool {
	key := trivialKey(text)
	if utf8.RuneCountInString(key) < 2 {
		return true
	}
	if _, ok := n.trivial[key]; ok {
		return true
	}
	if _, err := strconv.ParseFloat(key, 64); err == nil {
		return true
	}
	return false
}

func trivialKey(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
	})
	return s
}

func logRetry(op string) retry.OnRetry {
	return func(attempt uint, err error) {
		log.Warn().Err(err).Uint("attempt", attempt+1).Str("op", op).Msg("collaborator call failed")
	}
}
