package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-sync-service/internal/domain"
)

func TestWebSocketChatFlow(t *testing.T) {
	env := newTestEnv(t, true)
	if _, err := env.svc.Chat.Send(context.Background(), domain.NewMessage{ClassID: "c1", UserID: "t1", UserName: "Guru", Text: "selamat datang"}); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	student := dialChat(t, env, "c1", "s1", "Sari")
	teacher := dialChat(t, env, "c1", "t1", "Guru")

	// Each connection starts with the history.
	var history []domain.ChatMessage
	readNext(t, student, "history", &history)
	if len(history) != 1 || history[0].Text != "selamat datang" {
		t.Fatalf("unexpected history: %+v", history)
	}
	readNext(t, teacher, "history", nil)

	if err := student.WriteJSON(map[string]any{"type": "message", "payload": map[string]any{"text": "terima kasih"}}); err != nil {
		t.Fatalf("write message: %v", err)
	}

	// Both members see the new message, including its sender.
	for _, conn := range []*websocket.Conn{teacher, student} {
		var msg domain.ChatMessage
		readNext(t, conn, "message", &msg)
		if msg.Text != "terima kasih" || msg.UserID != "s1" || msg.UserName != "Sari" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	}

	if err := student.WriteJSON(map[string]any{"type": "read"}); err != nil {
		t.Fatalf("write read: %v", err)
	}
	var read readPayload
	readNext(t, student, "read", &read)
	if read.Marked != 1 {
		t.Fatalf("expected 1 message marked, got %d", read.Marked)
	}

	if err := teacher.WriteJSON(map[string]any{"type": "message", "payload": map[string]any{"text": "  "}}); err != nil {
		t.Fatalf("write empty message: %v", err)
	}
	readNext(t, teacher, "error", nil)
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	env := newTestEnv(t, true)
	u := "ws" + env.server.URL[len("http"):] + "/ws/chat?classId=c1"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", resp)
	}
}

func dialChat(t *testing.T, env *testEnv, classID, userID, name string) *websocket.Conn {
	t.Helper()
	u := "ws" + env.server.URL[len("http"):] + "/ws/chat?classId=" + classID + "&userId=" + userID + "&name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn, expect string, payload any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	if payload != nil {
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			t.Fatalf("decode %s payload: %v", expect, err)
		}
	}
}
