// Package amqp publishes quiz events to RabbitMQ.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"weekly-quiz/internal/domain"

	"github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange         = "quiz.events"
	RoutingAttemptSubmitted = "quiz.attempt.submitted"
)

// AttemptSubmitted is the body of a quiz.attempt.submitted message.
type AttemptSubmitted struct {
	EventType        string    `json:"eventType"`
	AttemptID        string    `json:"attemptId"`
	UserID           string    `json:"userId"`
	QuizID           string    `json:"quizId"`
	Score            int       `json:"score"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	CorrectAnswers   int       `json:"correctAnswers"`
	TotalQuestions   int       `json:"totalQuestions"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Publisher struct {
	conn     *amqp091.Connection
	channel  channel
	exchange string
}

// NewPublisher dials url and declares a durable topic exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Printf("amqp: publishing to exchange %s", exchange)
	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *Publisher) PublishAttemptSubmitted(ctx context.Context, attempt domain.Attempt) error {
	body, err := json.Marshal(AttemptSubmitted{
		EventType:        RoutingAttemptSubmitted,
		AttemptID:        attempt.ID,
		UserID:           attempt.UserID,
		QuizID:           attempt.QuizID,
		Score:            attempt.Score,
		TimeTakenSeconds: attempt.TimeTakenSeconds,
		CorrectAnswers:   attempt.CorrectAnswers,
		TotalQuestions:   attempt.TotalQuestions,
		SubmittedAt:      attempt.SubmittedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,              // exchange
		RoutingAttemptSubmitted, // routing key
		false,                   // mandatory
		false,                   // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    attempt.SubmittedAt,
			MessageId:    attempt.ID,
			Body:         body,
			Headers: amqp091.Table{
				"quiz_id": attempt.QuizID,
				"user_id": attempt.UserID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("publish attempt %s: %w", attempt.ID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Printf("amqp: close channel: %v", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
