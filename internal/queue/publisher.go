package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends events to downstream consumers. Callers treat failures as
// non-fatal: the state change they describe has already been committed.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// DefaultDialTimeout bounds the TCP connect and AMQP handshake of one dial.
const DefaultDialTimeout = 3 * time.Second

// AMQPPublisher publishes persistent JSON messages to a durable queue on
// the default exchange. It dials per call; event volume is a few messages
// per login.
type AMQPPublisher struct {
	URL   string
	Queue string
	Log   *zap.Logger
	// DialTimeout overrides DefaultDialTimeout when positive.
	DialTimeout time.Duration
}

// NewAMQPPublisher returns a publisher for url. An empty queue name selects
// DefaultQueueName.
func NewAMQPPublisher(url, queue string, log *zap.Logger) *AMQPPublisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AMQPPublisher{URL: url, Queue: queue, Log: log}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	if err := p.publish(ctx, ev); err != nil {
		p.Log.Warn("event publish failed", zap.String("type", ev.Type), zap.Error(err))
		return err
	}
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, ev Event) error {
	conn, err := dial(ctx, p.URL, p.DialTimeout)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := declareQueue(ch, p.Queue); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	// Default exchange: the routing key is the queue name.
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// dial connects to url, giving up after timeout or at the ctx deadline,
// whichever comes first.
func dial(ctx context.Context, url string, timeout time.Duration) (*amqp.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, context.DeadlineExceeded
		}
		timeout = min(timeout, left)
	}
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// declareQueue declares name as durable. Idempotent.
func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

var (
	_ Publisher = (*AMQPPublisher)(nil)
	_ Publisher = NopPublisher{}
)
