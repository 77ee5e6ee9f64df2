package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/assistant"
	"github.com/diaz/kanban/internal/history"
)

// DefaultSession is used when a chat request names no session.
const DefaultSession = "default"

// Chat runs assistant conversations.
type Chat interface {
	Send(ctx context.Context, sessionID, text string) (assistant.Exchange, error)
	History(ctx context.Context, sessionID string) ([]history.Message, error)
	Reset(ctx context.Context, sessionID string) error
}

// ChatHandler serves /api/chat.
type ChatHandler struct {
	chat Chat
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(c Chat) *ChatHandler {
	return &ChatHandler{chat: c}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type historyResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []history.Message `json:"messages"`
}

// ServeHTTP routes:
//
//	POST   /api/chat
//	GET    /api/chat/{session}
//	DELETE /api/chat/{session}
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/chat")

	switch len(parts) {
	case 0:
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.send(w, r)
	case 1:
		switch r.Method {
		case http.MethodGet:
			h.history(w, r, parts[0])
		case http.MethodDelete:
			h.reset(w, r, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *ChatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	session := strings.TrimSpace(req.SessionID)
	if session == "" {
		session = DefaultSession
	}

	ex, err := h.chat.Send(r.Context(), session, req.Message)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		log.Error().Err(err).Str("session", session).Msg("chat failed")
		writeError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (h *ChatHandler) history(w http.ResponseWriter, r *http.Request, session string) {
	messages, err := h.chat.History(r.Context(), session)
	if err != nil {
		log.Error().Err(err).Str("session", session).Msg("load chat history")
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	if messages == nil {
		messages = []history.Message{}
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: session, Messages: messages})
}

func (h *ChatHandler) reset(w http.ResponseWriter, r *http.Request, session string) {
	if err := h.chat.Reset(r.Context(), session); err != nil {
		log.Error().Err(err).Str("session", session).Msg("reset chat")
		writeError(w, http.StatusInternalServerError, "Failed to reset history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
