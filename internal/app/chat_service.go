package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"quiz-sync-service/internal/domain"
)

// ChatCacheKey is the local-store key caching a class's message history.
func ChatCacheKey(classID string) string {
	return "chat_messages_" + classID
}

// ChatService posts and reads class chat messages and fans new messages out to
// in-process subscribers.
type ChatService struct {
	repo     ChatRepository
	local    LocalStore
	conn     Connectivity
	validate *validator.Validate
	now      func() time.Time
	log      *slog.Logger

	mu          sync.Mutex
	subscribers map[string]map[chan domain.ChatMessage]struct{}
}

func NewChatService(repo ChatRepository, local LocalStore, conn Connectivity, logger *slog.Logger) *ChatService {
	return &ChatService{
		repo:        repo,
		local:       local,
		conn:        conn,
		validate:    validator.New(),
		now:         time.Now,
		log:         logger,
		subscribers: make(map[string]map[chan domain.ChatMessage]struct{}),
	}
}

// Send stores the message, marked as read by its sender, and broadcasts it.
func (s *ChatService) Send(ctx context.Context, in domain.NewMessage) (domain.ChatMessage, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.ChatMessage{}, errors.Wrap(domain.ErrInvalidSubmission, err.Error())
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return domain.ChatMessage{}, domain.ErrEmptyMessage
	}

	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		ClassID:   in.ClassID,
		UserID:    in.UserID,
		UserName:  in.UserName,
		Text:      text,
		Timestamp: s.now(),
		ReadBy:    []string{in.UserID},
	}
	if err := s.repo.Add(ctx, msg); err != nil {
		return domain.ChatMessage{}, errors.Wrap(err, "send message")
	}
	s.broadcast(msg)
	return msg, nil
}

// History returns the class messages, newest first. Online reads refresh the
// local copy; offline or failed reads serve it.
func (s *ChatService) History(ctx context.Context, classID string) ([]domain.ChatMessage, error) {
	if s.conn.IsConnected(ctx) {
		msgs, err := s.repo.ListByClass(ctx, classID)
		if err == nil {
			if err := storeJSON(ctx, s.local, ChatCacheKey(classID), msgs); err != nil {
				s.log.Warn("cache chat messages", "class", classID, "err", err)
			}
			return msgs, nil
		}
		s.log.Warn("load chat messages", "class", classID, "err", err)
	}

	var cached []domain.ChatMessage
	if _, err := loadJSON(ctx, s.local, ChatCacheKey(classID), &cached); err != nil {
		s.log.Error("read cached chat messages", "class", classID, "err", err)
	}
	if cached == nil {
		cached = []domain.ChatMessage{}
	}
	return cached, nil
}

// MarkRead records userID as a reader of every message in the class.
func (s *ChatService) MarkRead(ctx context.Context, classID, userID string) (int, error) {
	if userID == "" {
		return 0, domain.ErrNotAuthenticated
	}
	n, err := s.repo.MarkRead(ctx, classID, userID)
	if err != nil {
		return 0, errors.Wrap(err, "mark messages read")
	}
	return n, nil
}

// Unread counts messages newer than since that userID has not read.
func (s *ChatService) Unread(ctx context.Context, classID, userID string, since time.Time) (int, error) {
	msgs, err := s.History(ctx, classID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range msgs {
		if m.Timestamp.After(since) && !m.ReadByUser(userID) {
			count++
		}
	}
	return count, nil
}

// Join subscribes to the class and then reads its history, so a message sent
// while the history loads arrives on the channel. Such a message may appear in
// both; callers dedupe by ID.
func (s *ChatService) Join(ctx context.Context, classID string) ([]domain.ChatMessage, <-chan domain.ChatMessage, func(), error) {
	updates, cancel := s.Subscribe(classID)
	history, err := s.History(ctx, classID)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return history, updates, cancel, nil
}

// Subscribe returns a channel receiving messages posted to the class.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ChatService) Subscribe(classID string) (<-chan domain.ChatMessage, func()) {
	ch := make(chan domain.ChatMessage, 16)

	s.mu.Lock()
	subs, ok := s.subscribers[classID]
	if !ok {
		subs = make(map[chan domain.ChatMessage]struct{})
		s.subscribers[classID] = subs
	}
	subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscribers[classID]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(s.subscribers, classID)
		}
	}
	return ch, cancel
}

func (s *ChatService) broadcast(msg domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers[msg.ClassID] {
		select {
		case ch <- msg:
		default:
			// Slow subscriber: drop its oldest message to make room.
			select {
			case <-ch:
			default:
			}
			ch <- msg
		}
	}
}
