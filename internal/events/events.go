// Package events publishes order lifecycle events to RabbitMQ and consumes them.
package events

import (
	"context"
	"time"

	"curryhouse/internal/domain"
)

// Type names an order lifecycle event.
type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	OrderCancelled     Type = "order.cancelled"
)

// Event is the JSON message body put on the queue.
type Event struct {
	Type             Type               `json:"type"`
	OrderID          string             `json:"orderId"`
	OrderNumber      string             `json:"orderNumber"`
	CustomerID       string             `json:"customerId"`
	Status           domain.OrderStatus `json:"status"`
	PreviousStatus   domain.OrderStatus `json:"previousStatus,omitempty"`
	TotalAmountCents int64              `json:"totalAmount"`
	OccurredAt       time.Time          `json:"occurredAt"`
}

// NewEvent describes o after a change from prev (empty for creation).
func NewEvent(t Type, o domain.Order, prev domain.OrderStatus) Event {
	return Event{
		Type:             t,
		OrderID:          o.ID,
		OrderNumber:      o.OrderNumber,
		CustomerID:       o.CustomerID,
		Status:           o.Status,
		PreviousStatus:   prev,
		TotalAmountCents: o.TotalAmountCents,
		OccurredAt:       time.Now().UTC(),
	}
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
