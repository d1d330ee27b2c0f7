package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/storefront-ai/shop-assist/internal/assist"
	"github.com/storefront-ai/shop-assist/internal/observability"
	"github.com/storefront-ai/shop-assist/internal/session"
)

// AskHandler handles question-answering requests.
type AskHandler struct {
	logger   *observability.Logger
	service  *assist.Service
	sessions *session.Store
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(logger *observability.Logger, service *assist.Service, sessions *session.Store) *AskHandler {
	return &AskHandler{
		logger:   logger,
		service:  service,
		sessions: sessions,
	}
}

// AskRequestDTO represents the API request for a question.
type AskRequestDTO struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId,omitempty"`
}

// AskResponseDTO represents the API response.
type AskResponseDTO struct {
	Answer    string `json:"answer"`
	Intent    string `json:"intent"`
	SessionID string `json:"sessionId"`
	Cached    bool   `json:"cached,omitempty"`
}

// SessionResponseDTO represents a session transcript.
type SessionResponseDTO struct {
	SessionID string              `json:"sessionId"`
	CreatedAt string              `json:"createdAt"`
	Messages  []SessionMessageDTO `json:"messages"`
}

// SessionMessageDTO represents one transcript entry.
type SessionMessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	At      string `json:"at"`
}

// Ask handles POST /api/v1/ask.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO AskRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	question := strings.TrimSpace(reqDTO.Question)
	if question == "" {
		h.writeError(w, http.StatusBadRequest, "question is required", "")
		return
	}

	sessionID := reqDTO.SessionID
	if sessionID == "" {
		sessionID = h.sessions.Create()
	} else if _, err := h.sessions.Get(sessionID); errors.Is(err, session.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "session not found", sessionID)
		return
	}

	result, err := h.service.Respond(ctx, question)
	if err != nil {
		h.logger.Error().Err(err).Str("question", question).Msg("ask failed")
		h.writeError(w, http.StatusInternalServerError, "ask failed", err.Error())
		return
	}

	if err := h.sessions.Append(sessionID, session.RoleUser, question); err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to record question")
	}
	if err := h.sessions.Append(sessionID, session.RoleAssistant, result.Answer); err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to record answer")
	}

	respDTO := AskResponseDTO{
		Answer:    result.Answer,
		Intent:    result.Intent.String(),
		SessionID: sessionID,
		Cached:    result.Cached,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(respDTO); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// GetSession handles GET /api/v1/sessions/{sessionId}.
func (h *AskHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	sess, err := h.sessions.Get(sessionID)
	if errors.Is(err, session.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "session not found", sessionID)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "session lookup failed", err.Error())
		return
	}

	respDTO := SessionResponseDTO{
		SessionID: sess.ID,
		CreatedAt: sess.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Messages:  make([]SessionMessageDTO, 0, len(sess.Messages)),
	}
	for _, msg := range sess.Messages {
		respDTO.Messages = append(respDTO.Messages, SessionMessageDTO{
			Role:    string(msg.Role),
			Content: msg.Content,
			At:      msg.At.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(respDTO); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *AskHandler) writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"error": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}
