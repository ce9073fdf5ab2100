package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/domain"
)

// WSHandler streams a class chat over a websocket.
type WSHandler struct {
	chat     *app.ChatService
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewWSHandler(chat *app.ChatService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type textPayload struct {
	Text string `json:"text"`
}

type readPayload struct {
	Marked int `json:"marked"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and joins the connection to the class channel.
// The client first receives the history, then every message posted to the
// class. Inbound "message" frames post, "read" frames mark everything read.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	classID := r.URL.Query().Get("classId")
	userID := r.URL.Query().Get("userId")
	name := r.URL.Query().Get("name")
	if classID == "" || userID == "" || name == "" {
		http.Error(w, "missing classId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	history, updates, cancel, err := h.chat.Join(r.Context(), classID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	seen := make(map[string]struct{}, len(history))
	for _, msg := range history {
		seen[msg.ID] = struct{}{}
	}

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "class", classID, "user", userID, "err", err)
				return
			}
		}
	}()

	send <- outboundMessage{Type: "history", Payload: history}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if _, dup := seen[update.ID]; dup {
					continue
				}
				select {
				case send <- outboundMessage{Type: "message", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "message":
			var payload textPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid message payload"}}
				continue
			}
			// The stored message reaches this client through its own subscription.
			if _, err := h.chat.Send(r.Context(), domain.NewMessage{
				ClassID:  classID,
				UserID:   userID,
				UserName: name,
				Text:     payload.Text,
			}); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "read":
			n, err := h.chat.MarkRead(r.Context(), classID, userID)
			if err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage{Type: "read", Payload: readPayload{Marked: n}}
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
