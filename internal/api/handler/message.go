package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-tutor/internal/api/middleware"
	"github.com/Rrens/rag-tutor/internal/api/response"
	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/service"
)

const (
	defaultImageMIME = "image/jpeg"
	defaultAudioMIME = "audio/m4a"
)

// MessageRequest is one inbound chat message relayed by the gateway
type MessageRequest struct {
	UserID      string `json:"user_id" validate:"required,max=128"`
	Type        string `json:"type" validate:"required,oneof=text image audio"`
	Text        string `json:"text" validate:"required_if=Type text"`
	MediaBase64 string `json:"media_base64" validate:"required_unless=Type text"`
	MIMEType    string `json:"mime_type" validate:"omitempty,max=100"`
}

// MessageHandler handles message endpoints
type MessageHandler struct {
	tutor          Tutor
	limits         *middleware.RateLimitMiddleware
	maxUploadBytes int64
}

// NewMessageHandler creates a new message handler. limits may be nil.
func NewMessageHandler(tutor Tutor, limits *middleware.RateLimitMiddleware, maxUploadBytes int64) *MessageHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &MessageHandler{tutor: tutor, limits: limits, maxUploadBytes: maxUploadBytes}
}

// Post handles a JSON message, media inline as base64
func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	// base64 inflates media by a third
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes*4/3+4096)

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	var data []byte
	if req.Type != string(domain.MessageTypeText) {
		decoded, err := base64.StdEncoding.DecodeString(req.MediaBase64)
		if err != nil || len(decoded) == 0 {
			response.BadRequest(w, "media_base64 is not valid base64")
			return
		}
		data = decoded
	}

	msg, err := buildMessage(domain.MessageType(req.Type), req.Text, data, req.MIMEType)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	h.handle(w, r, req.UserID, msg)
}

// Upload handles a multipart form with user_id, type and file fields
func (h *MessageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	userID := strings.TrimSpace(r.FormValue("user_id"))
	msgType := domain.MessageType(r.FormValue("type"))
	if userID == "" {
		response.BadRequest(w, "user_id is required")
		return
	}
	if msgType != domain.MessageTypeImage && msgType != domain.MessageTypeAudio {
		response.BadRequest(w, "type must be image or audio")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		response.BadRequest(w, "failed to read uploaded file")
		return
	}

	msg, err := buildMessage(msgType, "", data, header.Header.Get("Content-Type"))
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	h.handle(w, r, userID, msg)
}

func (h *MessageHandler) handle(w http.ResponseWriter, r *http.Request, userID string, msg domain.Message) {
	if !h.limits.Allow(w, r, userID) {
		return
	}

	reply, err := h.tutor.HandleMessage(r.Context(), userID, msg)
	if err != nil {
		if errors.Is(err, service.ErrMissingUser) || errors.Is(err, domain.ErrUnsupportedMessage) {
			response.BadRequest(w, err.Error())
			return
		}
		log.Error().Err(err).Str("user_id", userID).Msg("message handling failed")
		response.InternalError(w, "failed to handle message")
		return
	}

	response.OK(w, reply)
}

func buildMessage(t domain.MessageType, text string, data []byte, mimeType string) (domain.Message, error) {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}

	switch t {
	case domain.MessageTypeText:
		return domain.TextMessage{Text: text}, nil
	case domain.MessageTypeImage:
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
			if !strings.HasPrefix(mimeType, "image/") {
				mimeType = defaultImageMIME
			}
		}
		return domain.ImageMessage{Data: data, MIMEType: mimeType}, nil
	case domain.MessageTypeAudio:
		if mimeType == "" {
			mimeType = defaultAudioMIME
		}
		return domain.AudioMessage{Data: data, MIMEType: mimeType}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMessage, t)
	}
}
