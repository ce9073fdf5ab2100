package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"quiz-sync-service/internal/domain"
)

// UnsyncedScoresKey holds the offline buffer as a JSON array.
const UnsyncedScoresKey = "unsyncedScores"

// SaveResult reports where a submission ended up.
type SaveResult struct {
	Success      bool   `json:"success"`
	OfflineSaved bool   `json:"offlineSaved"`
	ID           string `json:"id"`
}

// FlushResult counts what a flush did with the buffer.
type FlushResult struct {
	Pushed  int `json:"pushed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// UserScores is one user's attempts in both partitions.
type UserScores struct {
	General []domain.QuizScore `json:"generalScores"`
	Class   []domain.QuizScore `json:"classScores"`
}

// ScoreService saves quiz attempts, buffering them locally while the remote
// store is unreachable, and reads them back with a local fallback.
type ScoreService struct {
	remote   ScoreRepository
	local    LocalStore
	conn     Connectivity
	events   ScoreEventPublisher
	validate *validator.Validate
	now      func() time.Time
	log      *slog.Logger

	// bufferMu serializes read-modify-write cycles on the offline buffer.
	bufferMu sync.Mutex
	cacheMu  sync.Mutex
}

// ScoreOption customizes a ScoreService.
type ScoreOption func(*ScoreService)

// WithPublisher announces every remote write to p.
func WithPublisher(p ScoreEventPublisher) ScoreOption {
	return func(s *ScoreService) { s.events = p }
}

// WithClock overrides time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) ScoreOption {
	return func(s *ScoreService) { s.now = now }
}

func NewScoreService(remote ScoreRepository, local LocalStore, conn Connectivity, logger *slog.Logger, opts ...ScoreOption) *ScoreService {
	s := &ScoreService{
		remote:   remote,
		local:    local,
		conn:     conn,
		events:   NopPublisher{},
		validate: validator.New(),
		now:      time.Now,
		log:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the attempt to the remote store when connected, otherwise to the
// offline buffer. Remote failures are returned, not demoted to the buffer.
func (s *ScoreService) Save(ctx context.Context, sub domain.ScoreSubmission) (SaveResult, error) {
	if err := s.validateSubmission(sub); err != nil {
		return SaveResult{}, err
	}
	rec := sub.Record(s.now())

	if !s.conn.IsConnected(ctx) {
		id, err := s.bufferLocally(ctx, rec)
		if err != nil {
			return SaveResult{}, err
		}
		s.log.Info("score buffered offline", "id", id, "user", rec.UserID, "quiz", rec.QuizName)
		return SaveResult{Success: true, OfflineSaved: true, ID: id}, nil
	}

	id, err := s.writeRemote(ctx, rec)
	if err != nil {
		s.log.Error("save quiz score", "user", rec.UserID, "quiz", rec.QuizName, "err", err)
		return SaveResult{}, err
	}
	s.supersedeBuffered(ctx, rec.Key())
	return SaveResult{Success: true, ID: id}, nil
}

// supersedeBuffered marks an unsynced buffer entry for key as synced, so a
// later flush cannot overwrite the newer online write with the older attempt.
func (s *ScoreService) supersedeBuffered(ctx context.Context, key domain.ScoreKey) {
	s.bufferMu.Lock()
	defer s.bufferMu.Unlock()

	buffer := s.readBuffer(ctx)
	changed := false
	for i := range buffer {
		if !buffer[i].Synced && buffer[i].Key() == key {
			buffer[i].Synced = true
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := s.writeBuffer(ctx, buffer); err != nil {
		s.log.Error("write back score buffer", "err", err)
	}
}

// Flush pushes every unsynced buffer entry to the remote store. Entries that
// fail stay unsynced and the walk continues; the buffer is written back either
// way. Entries that no longer validate are dropped and counted as failed.
func (s *ScoreService) Flush(ctx context.Context) (FlushResult, error) {
	if !s.conn.IsConnected(ctx) {
		return FlushResult{}, domain.ErrOffline
	}

	s.bufferMu.Lock()
	defer s.bufferMu.Unlock()

	buffer := s.readBuffer(ctx)
	if len(buffer) == 0 {
		return FlushResult{}, nil
	}

	var res FlushResult
	kept := buffer[:0]
	for _, rec := range buffer {
		if rec.Synced {
			res.Skipped++
			kept = append(kept, rec)
			continue
		}
		if err := s.validateSubmission(rec.Submission()); err != nil {
			s.log.Error("drop invalid buffered score", "id", rec.ID, "err", err)
			res.Failed++
			continue
		}
		pushed := rec
		pushed.Timestamp = s.now()
		if _, err := s.writeRemote(ctx, pushed); err != nil {
			s.log.Warn("flush buffered score", "id", rec.ID, "err", err)
			res.Failed++
			kept = append(kept, rec)
			continue
		}
		rec.Synced = true
		res.Pushed++
		kept = append(kept, rec)
	}
	buffer = kept

	if err := s.writeBuffer(ctx, buffer); err != nil {
		s.log.Error("write back score buffer", "err", err)
	}
	if res.Pushed > 0 || res.Failed > 0 {
		s.log.Info("score buffer flushed", "pushed", res.Pushed, "failed", res.Failed, "skipped", res.Skipped)
	}
	return res, nil
}

// Pending returns the buffered attempts not yet confirmed by the remote store.
func (s *ScoreService) Pending(ctx context.Context) []domain.QuizScore {
	s.bufferMu.Lock()
	defer s.bufferMu.Unlock()

	pending := make([]domain.QuizScore, 0)
	for _, rec := range s.readBuffer(ctx) {
		if !rec.Synced {
			pending = append(pending, rec)
		}
	}
	return pending
}

// Fetch queries one partition. A successful result is merged into the
// partition's local cache; on failure the cached copy, filtered by q, is
// returned instead.
func (s *ScoreService) Fetch(ctx context.Context, q domain.ScoreQuery) ([]domain.QuizScore, error) {
	if q.Partition == "" {
		q.Partition = domain.PartitionGeneral
	}

	scores, err := s.findRemote(ctx, q)
	if err == nil {
		s.mergeCache(ctx, q, scores)
		return scores, nil
	}

	cached, ok := s.loadCache(ctx, q.Partition.CacheKey())
	if !ok {
		return nil, errors.Wrapf(domain.ErrNoCache, "fetch %s scores: %v", q.Partition, err)
	}
	s.log.Warn("serving cached scores", "partition", q.Partition, "err", err)

	return filterScores(cached, q), nil
}

// FetchForUser reads both partitions for one user. Cached copies are used only
// when both partitions are cached.
func (s *ScoreService) FetchForUser(ctx context.Context, userID string) (UserScores, error) {
	if userID == "" {
		return UserScores{}, domain.ErrNotAuthenticated
	}

	general, err := s.findRemote(ctx, domain.ScoreQuery{Partition: domain.PartitionGeneral, UserID: userID})
	var class []domain.QuizScore
	if err == nil {
		class, err = s.findRemote(ctx, domain.ScoreQuery{Partition: domain.PartitionClass, UserID: userID})
	}
	if err == nil {
		s.mergeCache(ctx, domain.ScoreQuery{Partition: domain.PartitionGeneral, UserID: userID}, general)
		s.mergeCache(ctx, domain.ScoreQuery{Partition: domain.PartitionClass, UserID: userID}, class)
		return UserScores{General: general, Class: class}, nil
	}

	cachedGeneral, okGeneral := s.loadCache(ctx, domain.PartitionGeneral.CacheKey())
	cachedClass, okClass := s.loadCache(ctx, domain.PartitionClass.CacheKey())
	if !okGeneral || !okClass {
		return UserScores{}, errors.Wrapf(domain.ErrNoCache, "fetch scores for %s: %v", userID, err)
	}
	mine := domain.ScoreQuery{UserID: userID}
	return UserScores{General: filterScores(cachedGeneral, mine), Class: filterScores(cachedClass, mine)}, nil
}

func (s *ScoreService) validateSubmission(sub domain.ScoreSubmission) error {
	if math.IsNaN(sub.Score) || sub.Score < 0 || sub.Score > 100 {
		return domain.ErrInvalidScore
	}
	if err := s.validate.Struct(sub); err != nil {
		return errors.Wrap(domain.ErrInvalidSubmission, err.Error())
	}
	return nil
}

func (s *ScoreService) findRemote(ctx context.Context, q domain.ScoreQuery) ([]domain.QuizScore, error) {
	if !s.conn.IsConnected(ctx) {
		return nil, domain.ErrOffline
	}
	return s.remote.Find(ctx, q)
}

func (s *ScoreService) writeRemote(ctx context.Context, rec domain.QuizScore) (string, error) {
	rec.Synced = false
	id, err := s.remote.Upsert(ctx, rec)
	if err != nil {
		return "", errors.Wrap(err, "write quiz score")
	}
	rec.ID = id
	if err := s.events.PublishScoreSaved(ctx, rec); err != nil {
		s.log.Warn("publish score event", "id", id, "err", err)
	}
	return id, nil
}

// bufferLocally overwrites the buffered entry with the same composite key or
// appends a new one. An overwritten entry is marked unsynced again.
func (s *ScoreService) bufferLocally(ctx context.Context, rec domain.QuizScore) (string, error) {
	s.bufferMu.Lock()
	defer s.bufferMu.Unlock()

	buffer := s.readBuffer(ctx)
	key := rec.Key()
	idx := -1
	for i := range buffer {
		if buffer[i].Key() == key {
			idx = i
			break
		}
	}

	rec.Synced = false
	if idx >= 0 {
		rec.ID = buffer[idx].ID
		buffer[idx] = rec
	} else {
		buffer = append(buffer, rec)
	}

	if err := s.writeBuffer(ctx, buffer); err != nil {
		return "", errors.Wrap(err, "buffer quiz score")
	}
	return rec.ID, nil
}

// readBuffer fails soft: an unreadable buffer is logged and treated as empty.
func (s *ScoreService) readBuffer(ctx context.Context) []domain.QuizScore {
	raw, ok, err := s.local.Get(ctx, UnsyncedScoresKey)
	if err != nil {
		s.log.Error("read score buffer", "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	var buffer []domain.QuizScore
	if err := json.Unmarshal(raw, &buffer); err != nil {
		s.log.Error("decode score buffer", "err", err)
		return nil
	}
	return buffer
}

func (s *ScoreService) writeBuffer(ctx context.Context, buffer []domain.QuizScore) error {
	raw, err := json.Marshal(buffer)
	if err != nil {
		return err
	}
	return s.local.Set(ctx, UnsyncedScoresKey, raw)
}

// mergeCache replaces the cached records matched by q with fresh, the full
// remote result for q. Records outside q keep their cached copy.
func (s *ScoreService) mergeCache(ctx context.Context, q domain.ScoreQuery, fresh []domain.QuizScore) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	key := q.Partition.CacheKey()
	cached, _ := s.loadCache(ctx, key)
	merged := make([]domain.QuizScore, 0, len(cached)+len(fresh))
	for _, rec := range cached {
		if !q.Matches(rec) {
			merged = append(merged, rec)
		}
	}
	merged = append(merged, fresh...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })

	if err := storeJSON(ctx, s.local, key, merged); err != nil {
		s.log.Warn("cache scores", "key", key, "err", err)
	}
}

func filterScores(scores []domain.QuizScore, q domain.ScoreQuery) []domain.QuizScore {
	out := make([]domain.QuizScore, 0, len(scores))
	for _, rec := range scores {
		if q.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (s *ScoreService) loadCache(ctx context.Context, key string) ([]domain.QuizScore, bool) {
	var scores []domain.QuizScore
	ok, err := loadJSON(ctx, s.local, key, &scores)
	if err != nil {
		s.log.Warn("read cached scores", "key", key, "err", err)
		return nil, false
	}
	return scores, ok
}

func storeJSON(ctx context.Context, store LocalStore, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return store.Set(ctx, key, raw)
}

func loadJSON(ctx context.Context, store LocalStore, key string, v any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, errors.Wrapf(err, "decode %s", key)
	}
	return true, nil
}
