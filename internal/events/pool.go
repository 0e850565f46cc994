package events

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ChannelPool shares one AMQP connection across a fixed set of channels, each
// of which has declared the durable queue.
type ChannelPool struct {
	conn      *amqp.Connection
	channels  chan *amqp.Channel
	mu        sync.Mutex
	closed    bool
	queueName string
	logger    *log.Logger
}

// NewChannelPool dials url and pre-opens size channels.
func NewChannelPool(url, queueName string, size int, logger *log.Logger) (*ChannelPool, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if size < 1 {
		size = 1
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	p := &ChannelPool{
		conn:      conn,
		channels:  make(chan *amqp.Channel, size),
		queueName: queueName,
		logger:    logger,
	}
	for i := 0; i < size; i++ {
		ch, err := p.open()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("open channel %d: %w", i, err)
		}
		p.channels <- ch
	}
	logger.Printf("events: channel pool ready queue=%s size=%d", queueName, size)
	return p, nil
}

func (p *ChannelPool) open() (*amqp.Channel, error) {
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := DeclareQueue(ch, p.queueName); err != nil {
		ch.Close()
		return nil, err
	}
	return ch, nil
}

// Get waits for a free channel, replacing it if the broker closed it.
func (p *ChannelPool) Get(ctx context.Context) (*amqp.Channel, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ch, ok := <-p.channels:
		if !ok {
			return nil, fmt.Errorf("channel pool closed")
		}
		if ch.IsClosed() {
			fresh, err := p.open()
			if err != nil {
				// keep the pool at size so later callers can retry
				p.Put(ch)
				return nil, err
			}
			return fresh, nil
		}
		return ch, nil
	}
}

// Put returns a channel; closed channels are kept as placeholders and reopened by Get.
func (p *ChannelPool) Put(ch *amqp.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || ch == nil {
		if ch != nil {
			ch.Close()
		}
		return
	}
	select {
	case p.channels <- ch:
	default:
		ch.Close()
	}
}

func (p *ChannelPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true

	close(p.channels)
	for ch := range p.channels {
		ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	p.logger.Printf("events: channel pool closed")
}

// DeclareQueue declares the durable event queue. It is idempotent.
func DeclareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}
