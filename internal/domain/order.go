package domain

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order, cancelled last.
var OrderStatuses = []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusCancelled}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CustomerCancellable reports whether a customer may still cancel an order in status s.
func (s OrderStatus) CustomerCancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further progress is expected from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusReady || s == StatusCancelled
}

// DeliveryType is how the order reaches the customer.
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

func (d DeliveryType) Valid() bool {
	return d == DeliveryTypeDelivery || d == DeliveryTypePickup
}

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentCard  PaymentMethod = "card"
	PaymentVipps PaymentMethod = "vipps"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentCard || p == PaymentVipps
}

// PaymentStatus tracks settlement. Orders start pending.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// DefaultEstimatedMinutes is the preparation estimate stamped on new orders.
const DefaultEstimatedMinutes = 30

// OrderLine is a menu item snapshot inside an order. Amounts are øre.
type OrderLine struct {
	MenuItemID     string `json:"menuItem"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"price"`
	Quantity       int    `json:"quantity"`
	SubtotalCents  int64  `json:"subtotal"`
}

// OrderExtra is an add-on selected at checkout.
type OrderExtra struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"price"`
	Quantity       int    `json:"quantity"`
	SubtotalCents  int64  `json:"subtotal"`
}

// DeliveryAddress is where a delivery order is sent.
type DeliveryAddress struct {
	Street     string `json:"street,omitempty" bson:"street,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty" bson:"postalCode,omitempty"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
}

// CustomerSummary is the contact info attached to orders in the admin view.
type CustomerSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Order is a placed order.
type Order struct {
	ID                       string           `json:"id"`
	OrderNumber              string           `json:"orderNumber"`
	CustomerID               string           `json:"customerId"`
	Customer                 *CustomerSummary `json:"customer,omitempty"`
	Lines                    []OrderLine      `json:"items"`
	Extras                   []OrderExtra     `json:"extras"`
	ExtrasTotalCents         int64            `json:"extrasTotal"`
	TotalAmountCents         int64            `json:"totalAmount"`
	DeliveryType             DeliveryType     `json:"deliveryType"`
	DeliveryAddress          *DeliveryAddress `json:"deliveryAddress,omitempty"`
	PaymentMethod            PaymentMethod    `json:"paymentMethod"`
	PaymentStatus            PaymentStatus    `json:"paymentStatus"`
	Status                   OrderStatus      `json:"status"`
	SpecialInstructions      string           `json:"specialInstructions,omitempty"`
	EstimatedDeliveryMinutes int              `json:"estimatedDeliveryTime"`
	CreatedAt                time.Time        `json:"createdAt"`
	UpdatedAt                time.Time        `json:"updatedAt"`
}

// ItemsTotalCents sums line subtotals.
func (o Order) ItemsTotalCents() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.SubtotalCents
	}
	return total
}

// PlaceOrderRequest is the create-order payload sent by clients.
type PlaceOrderRequest struct {
	Items               []OrderLine      `json:"items"`
	Extras              []OrderExtra     `json:"extras"`
	ExtrasTotalCents    int64            `json:"extrasTotal"`
	TotalAmountCents    int64            `json:"totalAmount"`
	DeliveryType        DeliveryType     `json:"deliveryType"`
	DeliveryAddress     *DeliveryAddress `json:"deliveryAddress,omitempty"`
	PaymentMethod       PaymentMethod    `json:"paymentMethod"`
	SpecialInstructions string           `json:"specialInstructions,omitempty"`
}

// StatusUpdateRequest is the admin status change payload.
type StatusUpdateRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
}
