package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/podpulse/podpulse/pkg/logger"
	"github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the topic exchange carrying row-level events.
	ExchangeName = "events"
	// RouteCheckInCreated is the routing key for check-in insertions.
	RouteCheckInCreated = "checkin.created"
)

// CheckInEvent is the bus payload emitted after a check-in is durably
// written. Delivery is at-least-once and unordered across users, which
// the dispatcher tolerates by recomputing idempotently.
type CheckInEvent struct {
	CheckInID string    `json:"checkin_id"`
	UserID    string    `json:"user_id"`
	GoalID    string    `json:"goal_id"`
	PodID     string    `json:"pod_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Producer publishes check-in events to the exchange.
type Producer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewProducer connects to RabbitMQ and declares the events exchange.
func NewProducer(url string) (*Producer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Producer{conn: conn, channel: ch}, nil
}

// PublishCheckIn publishes a check-in event.
func (p *Producer) PublishCheckIn(ctx context.Context, event CheckInEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx,
		ExchangeName,
		RouteCheckInCreated,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		},
	)
}

// Close releases the channel and connection.
func (p *Producer) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Stream is the consuming side of the bus. Each Subscribe call owns one
// connection; when it drops, the returned channel closes and the caller
// decides how to reconnect.
type Stream struct {
	url string
}

// NewStream creates a Stream for the given broker URL.
func NewStream(url string) *Stream {
	return &Stream{url: url}
}

// Subscribe connects, binds a private auto-delete queue to the check-in
// routing key, and returns a channel of decoded events. The queue is not
// durable: events missed while disconnected are covered by a full
// resync on reconnect, not by replay.
func (s *Stream) Subscribe(ctx context.Context) (<-chan CheckInEvent, error) {
	conn, err := amqp091.Dial(s.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		"",    // broker-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, RouteCheckInCreated, ExchangeName, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer tag
		false, // manual ack
		true,  // exclusive
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	out := make(chan CheckInEvent)
	go func() {
		defer close(out)
		defer conn.Close()
		defer ch.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-deliveries:
				if !ok {
					// Connection or channel lost.
					return
				}

				var event CheckInEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					logger.Log.WithError(err).Warn("Dropping undecodable check-in event")
					_ = msg.Ack(false)
					continue
				}
				_ = msg.Ack(false)

				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	logger.Log.WithField("queue", q.Name).Info("Subscribed to check-in events")
	return out, nil
}

func declareExchange(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}
