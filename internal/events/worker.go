package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"

	"curryhouse/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Tracker tallies consumed events. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	byType   map[Type]int
	byStatus map[domain.OrderStatus]int
	orders   map[string]domain.OrderStatus
	revenue  int64
}

func NewTracker() *Tracker {
	return &Tracker{
		byType:   make(map[Type]int),
		byStatus: make(map[domain.OrderStatus]int),
		orders:   make(map[string]domain.OrderStatus),
	}
}

// Record applies one event.
func (t *Tracker) Record(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byType[ev.Type]++
	t.byStatus[ev.Status]++
	t.orders[ev.OrderID] = ev.Status
	if ev.Type == OrderCreated {
		t.revenue += ev.TotalAmountCents
	}
}

// Summary is a point-in-time view of the tracker.
type Summary struct {
	Events       map[Type]int
	Transitions  map[domain.OrderStatus]int
	Orders       int
	Latest       map[string]domain.OrderStatus
	CreatedCents int64
}

func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Summary{
		Events:       make(map[Type]int, len(t.byType)),
		Transitions:  make(map[domain.OrderStatus]int, len(t.byStatus)),
		Latest:       make(map[string]domain.OrderStatus, len(t.orders)),
		Orders:       len(t.orders),
		CreatedCents: t.revenue,
	}
	for k, v := range t.byType {
		s.Events[k] = v
	}
	for k, v := range t.byStatus {
		s.Transitions[k] = v
	}
	for k, v := range t.orders {
		s.Latest[k] = v
	}
	return s
}

// String renders the summary one event type per line, sorted.
func (s Summary) String() string {
	types := make([]string, 0, len(s.Events))
	for k := range s.Events {
		types = append(types, string(k))
	}
	sort.Strings(types)
	out := fmt.Sprintf("orders=%d created_total=%d", s.Orders, s.CreatedCents)
	for _, k := range types {
		out += fmt.Sprintf("\n  %s: %d", k, s.Events[Type(k)])
	}
	return out
}

// Worker consumes the event queue on its own channel with prefetch 1 and manual acks.
type Worker struct {
	id        int
	channel   *amqp.Channel
	queueName string
	tracker   *Tracker
	logger    *log.Logger
}

func NewWorker(id int, conn *amqp.Connection, queueName string, tracker *Tracker, logger *log.Logger) (*Worker, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel for worker %d: %w", id, err)
	}
	if err := DeclareQueue(ch, queueName); err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos for worker %d: %w", id, err)
	}
	return &Worker{id: id, channel: ch, queueName: queueName, tracker: tracker, logger: logger}, nil
}

// Run consumes until ctx ends or the channel closes.
func (w *Worker) Run(ctx context.Context) error {
	defer w.channel.Close()

	msgs, err := w.channel.Consume(
		w.queueName,
		fmt.Sprintf("notifier-%d", w.id),
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("worker %d consume: %w", w.id, err)
	}
	w.logger.Printf("events: worker %d consuming %s", w.id, w.queueName)

	for {
		select {
		case <-ctx.Done():
			w.logger.Printf("events: worker %d stopping", w.id)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("worker %d: delivery channel closed", w.id)
			}
			w.handle(msg)
		}
	}
}

func (w *Worker) handle(msg amqp.Delivery) {
	var ev Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil || ev.Type == "" {
		w.logger.Printf("events: worker %d dropping malformed message id=%s err=%v", w.id, msg.MessageId, err)
		// no requeue: a malformed body will never parse
		_ = msg.Nack(false, false)
		return
	}

	w.tracker.Record(ev)
	if err := msg.Ack(false); err != nil {
		w.logger.Printf("events: worker %d ack failed order=%s err=%v", w.id, ev.OrderNumber, err)
		return
	}
	w.logger.Printf("events: worker %d handled type=%s order=%s status=%s", w.id, ev.Type, ev.OrderNumber, ev.Status)
}
