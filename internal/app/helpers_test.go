package app_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/domain"
	"quiz-sync-service/internal/infra/memory"
)

type harness struct {
	db      *memory.Database
	remote  *memory.ScoreRepository
	users   *memory.UserRepository
	classes *memory.ClassRepository
	chat    *memory.ChatRepository
	local   *memory.LocalStore
	conn    *memory.Connectivity
	events  *recordingPublisher
	scores  *app.ScoreService
	clock   *fakeClock
}

func newHarness(online bool) *harness {
	db := memory.NewDatabase()
	h := &harness{
		db:      db,
		remote:  memory.NewScoreRepository(db),
		users:   memory.NewUserRepository(db),
		classes: memory.NewClassRepository(db),
		chat:    memory.NewChatRepository(db),
		local:   memory.NewLocalStore(),
		conn:    memory.NewConnectivity(online),
		events:  &recordingPublisher{},
		clock:   &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
	}
	h.scores = app.NewScoreService(h.remote, h.local, h.conn, discardLogger(),
		app.WithPublisher(h.events), app.WithClock(h.clock.Now))
	return h
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances one second per call so successive writes are ordered.
func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.QuizScore
}

func (p *recordingPublisher) PublishScoreSaved(_ context.Context, s domain.QuizScore) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, s)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// failingScores wraps a repository and fails every write when fail is set.
type failingScores struct {
	app.ScoreRepository
	mu   sync.Mutex
	fail map[string]bool
	find error
}

func (f *failingScores) Upsert(ctx context.Context, s domain.QuizScore) (string, error) {
	f.mu.Lock()
	bad := f.fail[s.QuizName]
	f.mu.Unlock()
	if bad {
		return "", io.ErrUnexpectedEOF
	}
	return f.ScoreRepository.Upsert(ctx, s)
}

func (f *failingScores) Find(ctx context.Context, q domain.ScoreQuery) ([]domain.QuizScore, error) {
	if f.find != nil {
		return nil, f.find
	}
	return f.ScoreRepository.Find(ctx, q)
}

func submission(userID, quiz, classID string, score float64) domain.ScoreSubmission {
	return domain.ScoreSubmission{
		MaterialName:    "Narrative Text",
		QuizName:        quiz,
		Score:           score,
		UserID:          userID,
		UserName:        "Student " + userID,
		UserEmail:       userID + "@example.com",
		UserInstitution: "SMA 1",
		ClassID:         classID,
	}
}
