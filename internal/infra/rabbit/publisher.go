package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"quiz-sync-service/internal/domain"
)

const (
	// ScoreExchange is the topic exchange score events are published to.
	ScoreExchange = "quiz.scores"
	// ScoreSavedRoutingKey prefixes the routing key; the partition is appended.
	ScoreSavedRoutingKey = "score.saved"
)

// ScoreSavedEvent is the body of a score.saved message.
type ScoreSavedEvent struct {
	ID           string    `json:"id"`
	Partition    string    `json:"partition"`
	UserID       string    `json:"userId"`
	QuizName     string    `json:"quizName"`
	MaterialName string    `json:"materialName"`
	ClassID      string    `json:"classId,omitempty"`
	Score        float64   `json:"score"`
	Timestamp    time.Time `json:"timestamp"`
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher announces remote score writes on RabbitMQ.
type Publisher struct {
	conn    *amqp.Connection
	channel channel
}

// Dial connects to url and declares the score exchange.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	err = ch.ExchangeDeclare(
		ScoreExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}
	return &Publisher{conn: conn, channel: ch}, nil
}

func newPublisher(ch channel) *Publisher {
	return &Publisher{channel: ch}
}

func (p *Publisher) PublishScoreSaved(ctx context.Context, score domain.QuizScore) error {
	key := score.Key()
	body, err := json.Marshal(ScoreSavedEvent{
		ID:           score.ID,
		Partition:    string(key.Partition()),
		UserID:       score.UserID,
		QuizName:     score.QuizName,
		MaterialName: score.MaterialName,
		ClassID:      score.ClassID,
		Score:        score.Score,
		Timestamp:    score.Timestamp,
	})
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, ScoreExchange, RoutingKey(key.Partition()), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    score.ID,
		Timestamp:    score.Timestamp,
		Body:         body,
	})
}

// RoutingKey returns score.saved.<partition>.
func RoutingKey(p domain.Partition) string {
	return ScoreSavedRoutingKey + "." + string(p)
}

func (p *Publisher) Close() error {
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
