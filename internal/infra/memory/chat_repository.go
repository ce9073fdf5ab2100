package memory

import (
	"context"

	"quiz-sync-service/internal/domain"
)

type ChatRepository struct {
	db *Database
}

func NewChatRepository(db *Database) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Add(_ context.Context, msg domain.ChatMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	msg.ReadBy = append([]string{}, msg.ReadBy...)
	if _, exists := r.db.messages[msg.ID]; !exists {
		r.db.order = append(r.db.order, msg.ID)
	}
	r.db.messages[msg.ID] = msg
	return nil
}

// ListByClass returns newest first; ties keep reverse insertion order.
func (r *ChatRepository) ListByClass(_ context.Context, classID string) ([]domain.ChatMessage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]domain.ChatMessage, 0)
	for i := len(r.db.order) - 1; i >= 0; i-- {
		m := r.db.messages[r.db.order[i]]
		if m.ClassID == classID {
			m.ReadBy = append([]string{}, m.ReadBy...)
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *ChatRepository) MarkRead(_ context.Context, classID, userID string) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for id, m := range r.db.messages {
		if m.ClassID != classID || m.ReadByUser(userID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, userID)
		r.db.messages[id] = m
		n++
	}
	return n, nil
}
