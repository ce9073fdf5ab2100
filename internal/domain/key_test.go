package domain

import (
	"testing"
	"time"
)

func TestDocumentID(t *testing.T) {
	cases := []struct {
		key  ScoreKey
		want string
	}{
		{ScoreKey{UserID: "u1", QuizName: "Level 1"}, "u1_Level 1_general"},
		{ScoreKey{UserID: "u1", QuizName: "Level 1", ClassID: "c9"}, "u1_Level 1_c9"},
		{ScoreKey{UserID: "a_b", QuizName: "c"}, "a%5Fb_c_general"},
		{ScoreKey{UserID: "a", QuizName: "b_c"}, "a_b%5Fc_general"},
		{ScoreKey{UserID: "u/1", QuizName: "50%"}, "u%2F1_50%25_general"},
	}
	for _, c := range cases {
		if got := c.key.DocumentID(); got != c.want {
			t.Fatalf("DocumentID(%+v) = %q, want %q", c.key, got, c.want)
		}
	}
}

func TestPartitionFollowsClassID(t *testing.T) {
	if (ScoreKey{UserID: "u"}).Partition() != PartitionGeneral {
		t.Fatalf("expected general partition")
	}
	if (ScoreKey{UserID: "u", ClassID: "c"}).Partition() != PartitionClass {
		t.Fatalf("expected class partition")
	}
	if PartitionClass.Collection() != "classScores" || PartitionGeneral.CacheKey() != "generalScores" {
		t.Fatalf("unexpected partition names")
	}
}

func TestRecordCarriesKey(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rec := ScoreSubmission{QuizName: "Level 1", UserID: "u1", ClassID: "c1", Score: 60}.Record(ts)
	if rec.ID != "u1_Level 1_c1" || !rec.Timestamp.Equal(ts) || rec.Synced {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Submission().ClassID != "c1" {
		t.Fatalf("submission lost class id")
	}
}

func TestScoreQueryMatches(t *testing.T) {
	s := QuizScore{UserID: "u1", MaterialName: "Narrative Text", QuizName: "Level 1", ClassID: "c1"}
	if !(ScoreQuery{UserID: "u1", ClassID: "c1"}).Matches(s) {
		t.Fatalf("expected match")
	}
	if (ScoreQuery{MaterialName: "Procedure Text"}).Matches(s) {
		t.Fatalf("expected material mismatch")
	}
}
