package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// LogSender logs email jobs instead of delivering them. Used when no broker is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, email Email) error {
	log.Info().
		Str("to", email.To).
		Str("template_id", email.TemplateID).
		Str("title", email.Params["title"]).
		Msg("Email delivery not configured, logging email job")
	return nil
}

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// EmailPublisher publishes email jobs as persistent JSON messages to a RabbitMQ queue.
type EmailPublisher struct {
	conn  *amqp.Connection
	ch    amqpChannel
	queue string
}

// DialEmailPublisher connects to the broker and declares the durable email queue
func DialEmailPublisher(url, queue string) (*EmailPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening rabbitmq channel: %w", err)
	}

	p, err := newEmailPublisher(ch, queue)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newEmailPublisher(ch amqpChannel, queue string) (*EmailPublisher, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", queue, err)
	}
	return &EmailPublisher{ch: ch, queue: queue}, nil
}

// Send publishes one email job
func (p *EmailPublisher) Send(ctx context.Context, email Email) error {
	body, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("encoding email job: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.ch.PublishWithContext(publishCtx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publishing email job to %s: %w", p.queue, err)
	}
	return nil
}

// Close closes the channel and the connection
func (p *EmailPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
