package assist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const (
	wsReadLimit    = 64 << 10
	wsWriteTimeout = 10 * time.Second
	wsIdleTimeout  = 5 * time.Minute
)

// handleWS runs the chat over a persistent WebSocket. One JSON request in,
// one JSON response out, carrying the same shapes as POST /chat/message.
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	u, ok := h.gate.RequireWithQuery(w, r)
	if !ok {
		return
	}
	if h.ai == nil {
		http.Error(w, "chat is not configured", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS policy is enforced by the HTTP layer
	})
	if err != nil {
		h.log.Info("assist.ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	conn.SetReadLimit(wsReadLimit)
	h.log.Info("assist.ws.open", "user_id", u.ID)

	ctx := r.Context()
	for {
		req, err := readChatRequest(ctx, conn)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				h.log.Info("assist.ws.read.fail", "err", err, "user_id", u.ID)
			}
			return
		}
		if req.Message == "" {
			if err := writeWS(ctx, conn, errorEnvelope{Error: "message is required"}); err != nil {
				return
			}
			continue
		}

		reply, err := h.reply(ctx, req)
		if err != nil {
			h.log.Error("assist.ws.chat.fail", "err", err, "user_id", u.ID)
			if err := writeWS(ctx, conn, errorEnvelope{Error: "Chat failed"}); err != nil {
				return
			}
			continue
		}

		if err := writeWS(ctx, conn, chatResponse{Response: reply}); err != nil {
			h.log.Info("assist.ws.write.fail", "err", err, "user_id", u.ID)
			return
		}
	}
}

type errorEnvelope struct {
	Error string `json:"error"`
}

func readChatRequest(parent context.Context, conn *websocket.Conn) (chatRequest, error) {
	ctx, cancel := context.WithTimeout(parent, wsIdleTimeout)
	defer cancel()

	mt, data, err := conn.Read(ctx)
	if err != nil {
		return chatRequest{}, err
	}
	if mt != websocket.MessageText {
		return chatRequest{}, errors.New("assist: binary frames not supported")
	}

	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return chatRequest{}, err
	}
	return req, nil
}

func writeWS(parent context.Context, conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(parent, wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, b)
}
