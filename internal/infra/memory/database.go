package memory

import (
	"sync"

	"quiz-sync-service/internal/domain"
)

// Database is an in-process stand-in for the remote document store. The
// repositories in this package are views over one Database so that cascades
// happen under a single lock.
type Database struct {
	mu       sync.RWMutex
	scores   map[domain.Partition]map[domain.ScoreKey]domain.QuizScore
	users    map[string]domain.User
	classes  map[string]domain.Class
	messages map[string]domain.ChatMessage
	order    []string // message ids in insertion order
}

func NewDatabase() *Database {
	return &Database{
		scores: map[domain.Partition]map[domain.ScoreKey]domain.QuizScore{
			domain.PartitionGeneral: {},
			domain.PartitionClass:   {},
		},
		users:    make(map[string]domain.User),
		classes:  make(map[string]domain.Class),
		messages: make(map[string]domain.ChatMessage),
	}
}
