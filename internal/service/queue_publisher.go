package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	q "github.com/iliyamo/storefront-auth/internal/queue"
)

// EventPublisher receives audit events. Publish must not block the request
// path; delivery is best effort.
type EventPublisher interface {
	Publish(ev q.AuthEvent)
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(q.AuthEvent) {}

// AMQPPublisher buffers events in memory and ships them to the auth.events
// queue from a single background connection. When the buffer is full new
// events are dropped and logged.
type AMQPPublisher struct {
	url    string
	log    logrus.FieldLogger
	events chan q.AuthEvent
}

// NewAMQPPublisher creates a publisher with room for buffer pending events.
// Call Run to start delivery.
func NewAMQPPublisher(url string, buffer int, log logrus.FieldLogger) *AMQPPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &AMQPPublisher{url: url, log: log, events: make(chan q.AuthEvent, buffer)}
}

// Publish enqueues ev without blocking.
func (p *AMQPPublisher) Publish(ev q.AuthEvent) {
	select {
	case p.events <- ev:
	default:
		p.log.WithField("type", ev.Type).Warn("rabbitmq: event buffer full; dropping audit event")
	}
}

// Run delivers buffered events until ctx is cancelled, redialing the
// broker with backoff whenever the connection drops.
func (p *AMQPPublisher) Run(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		err := p.session(ctx)
		if ctx.Err() != nil {
			return
		}
		p.log.WithError(err).WithField("retry_in", backoff).Warn("rabbitmq: publisher disconnected")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (p *AMQPPublisher) session(ctx context.Context) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so audit events survive broker restarts.
	if _, err := ch.QueueDeclare(q.AuthEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			return fmt.Errorf("connection closed: %v", amqpErr)
		case ev := <-p.events:
			body, err := json.Marshal(ev)
			if err != nil {
				p.log.WithError(err).WithField("type", ev.Type).Error("rabbitmq: dropping unencodable event")
				continue
			}
			if err := publishBody(ctx, ch, body); err != nil {
				// requeue once so a reconnect can deliver it
				p.Publish(ev)
				return err
			}
		}
	}
}

func publishBody(ctx context.Context, ch *amqp.Channel, body []byte) error {
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(pctx,
		"",                // default exchange
		q.AuthEventsQueue, // routing key = queue name
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
}
