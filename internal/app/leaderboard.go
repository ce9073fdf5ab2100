package app

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"quiz-sync-service/internal/domain"
)

// LeaderboardService folds stored attempts into ranked per-user aggregates.
// Nothing is persisted; each call recomputes from the score store.
type LeaderboardService struct {
	scores ScoreRepository
	users  UserRepository
	sf     singleflight.Group
}

func NewLeaderboardService(scores ScoreRepository, users UserRepository) *LeaderboardService {
	return &LeaderboardService{scores: scores, users: users}
}

// General ranks every student over all general attempts. Students without
// attempts appear with zero score and zero quiz count.
func (l *LeaderboardService) General(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	result, err, _ := l.sf.Do("general", func() (interface{}, error) {
		var (
			scores []domain.QuizScore
			roster []domain.User
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			scores, err = l.scores.Find(gctx, domain.ScoreQuery{Partition: domain.PartitionGeneral})
			return errors.Wrap(err, "load general scores")
		})
		g.Go(func() error {
			var err error
			roster, err = l.users.ListByRole(gctx, domain.RoleStudent)
			return errors.Wrap(err, "load student roster")
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return SortEntries(Aggregate(roster, scores)), nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

// Class ranks the users with at least one attempt in the class for the given
// material. Class members without attempts are not listed.
func (l *LeaderboardService) Class(ctx context.Context, classID, materialName string) ([]domain.LeaderboardEntry, error) {
	result, err, _ := l.sf.Do("class:"+classID+":"+materialName, func() (interface{}, error) {
		scores, err := l.scores.Find(ctx, domain.ScoreQuery{
			Partition:    domain.PartitionClass,
			ClassID:      classID,
			MaterialName: materialName,
		})
		if err != nil {
			return nil, errors.Wrap(err, "load class scores")
		}
		return SortEntries(Aggregate(nil, scores)), nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

// Aggregate seeds one zero entry per roster member, then folds every attempt
// into its owner's entry. Owners missing from the roster get an entry seeded
// from the attempt. Output order is roster order followed by first appearance.
func Aggregate(roster []domain.User, scores []domain.QuizScore) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(roster)+len(scores))
	index := make(map[string]int, len(roster))

	for _, u := range roster {
		if _, seen := index[u.ID]; seen {
			continue
		}
		index[u.ID] = len(entries)
		entries = append(entries, domain.LeaderboardEntry{
			UserID:          u.ID,
			UserName:        u.Name,
			UserEmail:       u.Email,
			UserInstitution: u.Institution,
		})
	}

	for _, s := range scores {
		i, ok := index[s.UserID]
		if !ok {
			i = len(entries)
			index[s.UserID] = i
			entries = append(entries, domain.LeaderboardEntry{
				UserID:          s.UserID,
				UserName:        s.UserName,
				UserEmail:       s.UserEmail,
				UserInstitution: s.UserInstitution,
			})
		}
		e := &entries[i]
		e.QuizCount++
		e.TotalScore += s.Score
		e.Score = e.TotalScore / float64(e.QuizCount)
		if s.Timestamp.After(e.Timestamp) {
			e.Timestamp = s.Timestamp
		}
	}
	return entries
}

// SortEntries orders by score desc, quiz count desc, total score desc, then
// earliest timestamp. It sorts in place and returns entries.
func SortEntries(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.QuizCount != b.QuizCount {
			return a.QuizCount > b.QuizCount
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	return entries
}
