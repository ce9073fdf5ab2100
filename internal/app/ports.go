package app

import (
	"context"

	"quiz-sync-service/internal/domain"
)

// ScoreRepository is the remote score store, split into the general and class
// partitions.
type ScoreRepository interface {
	// Upsert overwrites the record stored under the score's composite key, or
	// creates it under the deterministic document id. It returns the id used.
	Upsert(ctx context.Context, score domain.QuizScore) (string, error)
	Find(ctx context.Context, q domain.ScoreQuery) ([]domain.QuizScore, error)
}

// LocalStore is device-side key/value storage holding JSON blobs.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Connectivity reports whether the remote store is currently reachable.
type Connectivity interface {
	IsConnected(ctx context.Context) bool
}

// UserRepository reads and writes profiles in the users collection.
type UserRepository interface {
	Put(ctx context.Context, user domain.User) error
	Get(ctx context.Context, id string) (domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.User, error)
}

// ClassRepository stores classes. DeleteCascade removes the class together
// with its class scores and chat messages in one atomic batch.
type ClassRepository interface {
	Create(ctx context.Context, class domain.Class) error
	Get(ctx context.Context, id string) (domain.Class, error)
	FindByCode(ctx context.Context, code string) (domain.Class, error)
	AddStudent(ctx context.Context, classID, userID string) error
	ListByTeacher(ctx context.Context, teacherID string) ([]domain.Class, error)
	ListByStudent(ctx context.Context, studentID string) ([]domain.Class, error)
	DeleteCascade(ctx context.Context, classID string) error
}

// ChatRepository stores class chat messages. ListByClass returns newest first.
type ChatRepository interface {
	Add(ctx context.Context, msg domain.ChatMessage) error
	ListByClass(ctx context.Context, classID string) ([]domain.ChatMessage, error)
	MarkRead(ctx context.Context, classID, userID string) (int, error)
}

// ScoreEventPublisher announces scores that reached the remote store.
type ScoreEventPublisher interface {
	PublishScoreSaved(ctx context.Context, score domain.QuizScore) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishScoreSaved(context.Context, domain.QuizScore) error { return nil }
