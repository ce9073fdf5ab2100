package memory

import (
	"context"
	"sort"
	"sync/atomic"

	"quiz-sync-service/internal/domain"
)

// ScoreRepository keeps scores in the shared Database and counts writes.
type ScoreRepository struct {
	db     *Database
	writes atomic.Int64
}

func NewScoreRepository(db *Database) *ScoreRepository {
	return &ScoreRepository{db: db}
}

func (r *ScoreRepository) Upsert(_ context.Context, score domain.QuizScore) (string, error) {
	r.writes.Add(1)

	key := score.Key()
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	partition := r.db.scores[key.Partition()]
	if existing, ok := partition[key]; ok {
		score.ID = existing.ID
	} else {
		score.ID = key.DocumentID()
	}
	score.Synced = false
	partition[key] = score
	return score.ID, nil
}

func (r *ScoreRepository) Find(_ context.Context, q domain.ScoreQuery) ([]domain.QuizScore, error) {
	partition := q.Partition
	if partition == "" {
		partition = domain.PartitionGeneral
	}

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]domain.QuizScore, 0)
	for _, s := range r.db.scores[partition] {
		if q.Matches(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Writes returns how many upserts reached the repository.
func (r *ScoreRepository) Writes() int {
	return int(r.writes.Load())
}
