// Package assist serves the health coaching chat, over HTTP and over a
// WebSocket session.
package assist

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	authapi "techheal/cmd/internal/auth/api"
	"techheal/cmd/internal/genai"
)

const systemPrompt = "You are a helpful health and fitness assistant. Provide concise, " +
	"friendly advice about nutrition, exercise, wellness, and healthy habits. " +
	"Keep responses brief and actionable. Be encouraging and supportive."

// maxHistoryTurns bounds how much of the transcript is replayed per request.
const maxHistoryTurns = 10

// ChatGenerator is the slice of AI behavior the chat needs.
// *genai.Client satisfies it.
type ChatGenerator interface {
	GenerateChat(ctx context.Context, system string, history []genai.Message) (string, error)
}

// Handler serves the chat endpoints.
type Handler struct {
	log  *slog.Logger
	gate *authapi.Gate
	ai   ChatGenerator

	maxBodyBytes int64
}

// NewHandler wires the chat routes. ai may be nil; chat then returns 503.
func NewHandler(log *slog.Logger, gate *authapi.Gate, ai ChatGenerator) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if gate == nil {
		return nil, fmt.Errorf("assist: nil gate")
	}
	return &Handler{
		log:          log,
		gate:         gate,
		ai:           ai,
		maxBodyBytes: 1 << 20,
	}, nil
}

// Register wires chat routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /chat/message", h.handleMessage)
	mux.HandleFunc("GET /chat/ws", h.handleWS)
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message string         `json:"message"`
	History []historyEntry `json:"history,omitempty"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.Require(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := authapi.DecodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		authapi.WriteError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}
	if h.ai == nil {
		authapi.WriteError(w, http.StatusServiceUnavailable, "ai_unavailable", "chat is not configured")
		return
	}

	reply, err := h.reply(r.Context(), req)
	if err != nil {
		h.log.Error("assist.chat.fail", "err", err, "user_id", u.ID)
		authapi.WriteError(w, http.StatusInternalServerError, "ai_failed", "Chat failed")
		return
	}

	h.log.Info("assist.chat.ok", "user_id", u.ID, "history_len", len(req.History))
	authapi.WriteJSON(w, http.StatusOK, chatResponse{Response: reply})
}

// reply replays the last turns of the transcript and appends the new message.
func (h *Handler) reply(ctx context.Context, req chatRequest) (string, error) {
	history := req.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	msgs := make([]genai.Message, 0, len(history)+1)
	for _, e := range history {
		role := "user"
		if e.Role == "assistant" {
			role = "model"
		}
		msgs = append(msgs, genai.Message{Role: role, Text: e.Content})
	}
	msgs = append(msgs, genai.Message{Role: "user", Text: req.Message})

	return h.ai.GenerateChat(ctx, systemPrompt, msgs)
}
