package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher writes events to the queue through a ChannelPool.
type AMQPPublisher struct {
	pool      *ChannelPool
	queueName string
	logger    *log.Logger
}

func NewAMQPPublisher(pool *ChannelPool, queueName string, logger *log.Logger) *AMQPPublisher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &AMQPPublisher{pool: pool, queueName: queueName, logger: logger}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ch, err := p.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("get channel: %w", err)
	}
	defer p.pool.Put(ch)

	err = ch.PublishWithContext(ctx,
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Type:         string(ev.Type),
			Timestamp:    ev.OccurredAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	p.logger.Printf("events: published type=%s order=%s status=%s", ev.Type, ev.OrderNumber, ev.Status)
	return nil
}
