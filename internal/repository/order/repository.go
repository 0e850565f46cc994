package order

import (
	"context"

	"curryhouse/internal/domain"
)

// Repository persists orders. Implementations translate driver errors into
// domain.ErrNotFound, domain.ErrAlreadyExists and domain.ErrConflict.
type Repository interface {
	// NextSequence atomically reserves the next order sequence number.
	NextSequence(ctx context.Context) (int64, error)
	// Create inserts o; a duplicate order number yields domain.ErrAlreadyExists.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetForCustomer(ctx context.Context, customerID, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	// UpdateStatus sets the status. When allowedFrom is non-empty the update
	// only applies if the current status is one of them, else domain.ErrConflict.
	UpdateStatus(ctx context.Context, id string, to domain.OrderStatus, allowedFrom ...domain.OrderStatus) (*domain.Order, error)
}
