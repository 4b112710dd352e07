package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Rrens/rag-tutor/internal/api/response"
	"github.com/Rrens/rag-tutor/internal/domain"
)

// HistoryHandler exposes a user's stored session
type HistoryHandler struct {
	tutor Tutor
}

func NewHistoryHandler(tutor Tutor) *HistoryHandler {
	return &HistoryHandler{tutor: tutor}
}

// HistoryResponse lists turns oldest first
type HistoryResponse struct {
	UserID string        `json:"user_id"`
	Turns  []domain.Turn `json:"turns"`
}

// Get returns the stored turns
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		response.BadRequest(w, "missing user ID")
		return
	}

	response.OK(w, HistoryResponse{
		UserID: userID,
		Turns:  h.tutor.History(r.Context(), userID),
	})
}

// Delete resets the session
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		response.BadRequest(w, "missing user ID")
		return
	}

	if err := h.tutor.ResetHistory(r.Context(), userID); err != nil {
		response.InternalError(w, "failed to reset history")
		return
	}

	response.NoContent(w)
}
