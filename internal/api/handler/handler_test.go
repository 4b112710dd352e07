package handler_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/rag-tutor/internal/api/handler"
	"github.com/Rrens/rag-tutor/internal/api/middleware"
	"github.com/Rrens/rag-tutor/internal/domain"
)

type fakeTutor struct {
	messages []domain.Message
	users    []string
	resetErr error
	resets   []string
	turns    []domain.Turn
}

func (f *fakeTutor) HandleMessage(ctx context.Context, userID string, msg domain.Message) (domain.Reply, error) {
	f.users = append(f.users, userID)
	f.messages = append(f.messages, msg)
	return domain.Reply{Text: "what do you think?", Succeeded: true, MessageType: msg.Type()}, nil
}

func (f *fakeTutor) ResetHistory(ctx context.Context, userID string) error {
	f.resets = append(f.resets, userID)
	return f.resetErr
}

func (f *fakeTutor) History(ctx context.Context, userID string) []domain.Turn {
	return f.turns
}

type fakeLimiter struct {
	allowed bool
	err     error
}

func (f fakeLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	return f.allowed, 0, time.Unix(0, 0), f.err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func postJSON(h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
}

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func TestReadyCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	handler.ReadyCheck(map[string]handler.Pinger{"database": pinger{}})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ReadyCheck(map[string]handler.Pinger{"database": pinger{err: errors.New("down")}})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMessageHandler_PostText(t *testing.T) {
	tutor := &fakeTutor{}
	h := handler.NewMessageHandler(tutor, nil, 0)

	rec := postJSON(h.Post, map[string]string{"user_id": "U123", "type": "text", "text": "什麼是動量？"})

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.JSONEq(t, `{"reply":"what do you think?","succeeded":true,"message_type":"text"}`, string(env.Data))
	assert.Equal(t, []string{"U123"}, tutor.users)
	assert.Equal(t, domain.TextMessage{Text: "什麼是動量？"}, tutor.messages[0])
}

func TestMessageHandler_PostImage(t *testing.T) {
	tutor := &fakeTutor{}
	h := handler.NewMessageHandler(tutor, nil, 0)
	png := []byte("\x89PNG\r\n\x1a\n0000")

	rec := postJSON(h.Post, map[string]string{
		"user_id":      "U123",
		"type":         "image",
		"media_base64": base64.StdEncoding.EncodeToString(png),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ImageMessage{Data: png, MIMEType: "image/png"}, tutor.messages[0])
}

func TestMessageHandler_PostAudioDefaultsMIME(t *testing.T) {
	tutor := &fakeTutor{}
	h := handler.NewMessageHandler(tutor, nil, 0)

	rec := postJSON(h.Post, map[string]string{
		"user_id":      "U123",
		"type":         "audio",
		"media_base64": base64.StdEncoding.EncodeToString([]byte("voice")),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.AudioMessage{Data: []byte("voice"), MIMEType: "audio/m4a"}, tutor.messages[0])
}

func TestMessageHandler_PostRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "missing user", body: map[string]string{"type": "text", "text": "hi"}},
		{name: "unknown type", body: map[string]string{"user_id": "U1", "type": "sticker", "text": "hi"}},
		{name: "text without text", body: map[string]string{"user_id": "U1", "type": "text"}},
		{name: "image without media", body: map[string]string{"user_id": "U1", "type": "image"}},
		{name: "bad base64", body: map[string]string{"user_id": "U1", "type": "audio", "media_base64": "%%%"}},
		{name: "not json", body: "just a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tutor := &fakeTutor{}
			rec := postJSON(handler.NewMessageHandler(tutor, nil, 0).Post, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, decode(t, rec).Success)
			assert.Empty(t, tutor.messages)
		})
	}
}

func TestMessageHandler_Upload(t *testing.T) {
	tutor := &fakeTutor{}
	h := handler.NewMessageHandler(tutor, nil, 1<<20)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("user_id", "U123"))
	require.NoError(t, mw.WriteField("type", "audio"))
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="note.m4a"`)
	header.Set("Content-Type", "audio/mp4")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("voice-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.AudioMessage{Data: []byte("voice-bytes"), MIMEType: "audio/mp4"}, tutor.messages[0])
}

func TestMessageHandler_UploadRejectsText(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("user_id", "U123"))
	require.NoError(t, mw.WriteField("type", "text"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.NewMessageHandler(&fakeTutor{}, nil, 0).Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessageHandler_RateLimited(t *testing.T) {
	tutor := &fakeTutor{}
	limits := middleware.NewRateLimitMiddleware(fakeLimiter{allowed: false})

	rec := postJSON(handler.NewMessageHandler(tutor, limits, 0).Post, map[string]string{"user_id": "U1", "type": "text", "text": "hi"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Empty(t, tutor.messages)
}

func TestMessageHandler_LimiterOutageAllows(t *testing.T) {
	tutor := &fakeTutor{}
	limits := middleware.NewRateLimitMiddleware(fakeLimiter{err: errors.New("redis down")})

	rec := postJSON(handler.NewMessageHandler(tutor, limits, 0).Post, map[string]string{"user_id": "U1", "type": "text", "text": "hi"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, tutor.messages, 1)
}

func TestHistoryHandler(t *testing.T) {
	tutor := &fakeTutor{turns: []domain.Turn{domain.NewTurn(domain.RoleUser, "q")}}
	h := handler.NewHistoryHandler(tutor)

	r := chi.NewRouter()
	r.Get("/users/{userID}/history", h.Get)
	r.Delete("/users/{userID}/history", h.Delete)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/U9/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"U9","turns":[{"role":"user","parts":["q"]}]}`, string(decode(t, rec).Data))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/U9/history", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"U9"}, tutor.resets)

	tutor.resetErr = errors.New("db down")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/U9/history", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
