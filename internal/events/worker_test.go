package events

import (
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"

	"curryhouse/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeAck struct {
	acks     int
	nacks    int
	requeued bool
}

func (f *fakeAck) Ack(uint64, bool) error {
	f.acks++
	return nil
}

func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacks++
	f.requeued = requeue
	return nil
}

func (f *fakeAck) Reject(uint64, bool) error {
	return nil
}

func TestWorkerHandle_AcksAndTracks(t *testing.T) {
	tracker := NewTracker()
	w := &Worker{id: 1, tracker: tracker, logger: discardLogger()}

	order := domain.Order{ID: "o1", OrderNumber: "M-1001", CustomerID: "c1", Status: domain.StatusPending, TotalAmountCents: 22500}
	created, _ := json.Marshal(NewEvent(OrderCreated, order, ""))
	order.Status = domain.StatusConfirmed
	changed, _ := json.Marshal(NewEvent(OrderStatusChanged, order, domain.StatusPending))

	ack := &fakeAck{}
	w.handle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: created})
	w.handle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: changed})

	if ack.acks != 2 || ack.nacks != 0 {
		t.Fatalf("expected 2 acks, got acks=%d nacks=%d", ack.acks, ack.nacks)
	}
	s := tracker.Summary()
	if s.Orders != 1 || s.Latest["o1"] != domain.StatusConfirmed {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Events[OrderCreated] != 1 || s.Events[OrderStatusChanged] != 1 {
		t.Fatalf("unexpected event counts %v", s.Events)
	}
	if s.CreatedCents != 22500 {
		t.Fatalf("expected created total 22500, got %d", s.CreatedCents)
	}
	if !strings.Contains(s.String(), "order.created: 1") {
		t.Fatalf("unexpected summary text %q", s.String())
	}
}

func TestWorkerHandle_MalformedNackedWithoutRequeue(t *testing.T) {
	w := &Worker{id: 2, tracker: NewTracker(), logger: discardLogger()}
	ack := &fakeAck{}

	w.handle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("not json")})
	w.handle(amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`{"orderId":"x"}`)})

	if ack.nacks != 2 || ack.acks != 0 || ack.requeued {
		t.Fatalf("expected two nacks without requeue, got %+v", ack)
	}
	if w.tracker.Summary().Orders != 0 {
		t.Fatalf("malformed messages must not be tracked")
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
