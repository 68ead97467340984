// Package service publishes lock-subsystem events to RabbitMQ.  Errors are
// logged and returned so callers can ignore failures without interrupting
// the lock transition that produced them.
package service

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/auditorium-netlock/internal/lock"
	q "github.com/iliyamo/auditorium-netlock/internal/queue"
)

// LockPublisher sends every committed lock.Change to the room.lock.changed
// queue.  Each publish opens its own connection; transitions are rare
// enough that holding a channel open buys nothing.
type LockPublisher struct {
	url  string
	dial func(url string) (*amqp.Connection, error)
}

// NewLockPublisher returns a publisher for the broker at url.
func NewLockPublisher(url string) *LockPublisher {
	return &LockPublisher{url: url, dial: amqp.Dial}
}

// PublishLockChange implements lock.Publisher.  Messages are persistent.
func (p *LockPublisher) PublishLockChange(ctx context.Context, c lock.Change) error {
	ev := EventFromChange(c)
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := p.dial(p.url)
	if err != nil {
		log.Warn().Err(err).Int("room_id", c.RoomID).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		q.LockQueueName, // name
		true,            // durable
		false,           // autoDelete
		false,           // exclusive
		false,           // noWait
		nil,             // args
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    ev.At,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.LockQueueName, false, false, pub); err != nil {
		log.Warn().Err(err).Int("room_id", c.RoomID).Msg("rabbitmq: publish failed")
		return err
	}
	log.Debug().Str("event_id", ev.EventID).Int("room_id", c.RoomID).Str("cause", string(c.Cause)).Msg("lock change published")
	return nil
}

// EventFromChange converts a manager transition into its wire event.
func EventFromChange(c lock.Change) q.LockChangedEvent {
	return q.NewLockChangedEvent(c.RoomID, c.Enabled, c.UnlockAt, c.Reason, string(c.Cause), c.Actor, c.At)
}
