package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/application/chat"
	domai "github.com/bryanwahyu/datasense/internal/domain/ai"
	"github.com/bryanwahyu/datasense/internal/middleware"
)

type chatRequest struct {
	ProjectID string          `json:"projectId"`
	Message   string          `json:"message"`
	History   []domai.Message `json:"history" validate:"max=200,dive"`
}

// POST /api/chat
// Body: {"projectId": "...", "message": "...", "history": [{"role","content"}]}
func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) error {
	var body chatRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	// a missing or malformed projectId just means no dictionary context
	id, _ := uuid.Parse(body.ProjectID)

	reply, err := r.chat.Ask(req.Context(), chat.Request{
		ProjectID: id,
		Message:   middleware.SanitizeString(body.Message),
		History:   body.History,
	})
	switch {
	case err == nil:
		return writeJSON(w, http.StatusOK, reply)
	case errors.Is(err, chat.ErrEmptyMessage):
		return badRequest("Message is required")
	case errors.Is(err, chat.ErrNoAssistant):
		writeError(w, http.StatusServiceUnavailable, "Chat assistant is not configured")
		return nil
	case errors.Is(err, domai.ErrQuotaExceeded):
		return err
	}
	r.logger.Error("chat failed", zap.Error(err))
	return writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "Failed to get AI response",
		"details": err.Error(),
	})
}
