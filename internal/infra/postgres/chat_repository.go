package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"quiz-sync-service/internal/domain"
)

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func (r *ChatRepository) Add(ctx context.Context, m domain.ChatMessage) error {
	readBy := m.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO chat_messages (id, class_id, user_id, user_name, text, sent_at, read_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.ClassID, m.UserID, m.UserName, m.Text, m.Timestamp, readBy)
	return errors.Wrap(err, "insert chat message")
}

func (r *ChatRepository) ListByClass(ctx context.Context, classID string) ([]domain.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, class_id, user_id, user_name, text, sent_at, read_by
FROM chat_messages WHERE class_id = $1 ORDER BY sent_at DESC, id DESC`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "list chat messages")
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.ClassID, &m.UserID, &m.UserName, &m.Text, &m.Timestamp, &m.ReadBy); err != nil {
			return nil, errors.Wrap(err, "scan chat message")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ChatRepository) MarkRead(ctx context.Context, classID, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE chat_messages SET read_by = array_append(read_by, $2)
WHERE class_id = $1 AND NOT ($2 = ANY(read_by))`, classID, userID)
	if err != nil {
		return 0, errors.Wrap(err, "mark chat messages read")
	}
	return int(tag.RowsAffected()), nil
}
