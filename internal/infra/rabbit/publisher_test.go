package rabbit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"quiz-sync-service/internal/domain"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishScoreSavedRoutesByPartition(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch)
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	general := domain.QuizScore{ID: "u1_Level 1_general", UserID: "u1", QuizName: "Level 1", MaterialName: "Narrative Text", Score: 80, Timestamp: ts}
	class := general
	class.ID = "u1_Level 1_c1"
	class.ClassID = "c1"

	require.NoError(t, p.PublishScoreSaved(context.Background(), general))
	require.NoError(t, p.PublishScoreSaved(context.Background(), class))
	require.Len(t, ch.sent, 2)

	require.Equal(t, ScoreExchange, ch.sent[0].exchange)
	require.Equal(t, "score.saved.general", ch.sent[0].key)
	require.Equal(t, "score.saved.class", ch.sent[1].key)
	require.Equal(t, "application/json", ch.sent[1].msg.ContentType)
	require.Equal(t, "u1_Level 1_c1", ch.sent[1].msg.MessageId)

	var evt ScoreSavedEvent
	require.NoError(t, json.Unmarshal(ch.sent[1].msg.Body, &evt))
	require.Equal(t, "class", evt.Partition)
	require.Equal(t, "c1", evt.ClassID)
	require.Equal(t, float64(80), evt.Score)
	require.True(t, ts.Equal(evt.Timestamp))

	require.NoError(t, p.Close())
	require.True(t, ch.closed)
}
