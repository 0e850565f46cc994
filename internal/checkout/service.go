package checkout

import (
	"context"
	"io"
	"log"
	"time"

	"curryhouse/internal/cart"
	"curryhouse/internal/domain"
	"curryhouse/internal/extras"
)

// OrderAPI is the subset of the API client the customer flow needs.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req domain.PlaceOrderRequest) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	CancelOrder(ctx context.Context, id string) (*domain.Order, error)
}

// Options are the checkout choices made on top of the cart.
type Options struct {
	Extras          map[string]int
	Notes           string
	DeliveryType    domain.DeliveryType
	PaymentMethod   domain.PaymentMethod
	DeliveryAddress *domain.DeliveryAddress
}

// Service places and follows orders for the signed-in customer.
type Service struct {
	cart    *cart.Store
	api     OrderAPI
	catalog *extras.Catalog
	logger  *log.Logger
}

func NewService(store *cart.Store, api OrderAPI, catalog *extras.Catalog, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if catalog == nil {
		catalog = extras.Default()
	}
	return &Service{cart: store, api: api, catalog: catalog, logger: logger}
}

// Preview returns the totals the customer would be charged for the current cart.
func (s *Service) Preview(opts Options) (Totals, error) {
	return ComputeTotals(s.catalog, s.cart.Lines(), opts.Extras)
}

// PlaceOrder submits the cart. The cart is cleared only when the API accepts the order.
func (s *Service) PlaceOrder(ctx context.Context, opts Options) (*domain.Order, error) {
	req, err := Assemble(s.catalog, Input{
		Lines:           s.cart.Lines(),
		Extras:          opts.Extras,
		Notes:           opts.Notes,
		DeliveryType:    opts.DeliveryType,
		PaymentMethod:   opts.PaymentMethod,
		DeliveryAddress: opts.DeliveryAddress,
	})
	if err != nil {
		return nil, err
	}
	order, err := s.api.CreateOrder(ctx, req)
	if err != nil {
		s.logger.Printf("checkout: create order failed items=%d err=%v", len(req.Items), err)
		return nil, err
	}
	if order.TotalAmountCents != req.TotalAmountCents {
		s.logger.Printf("checkout: server total differs order=%s client=%d server=%d", order.OrderNumber, req.TotalAmountCents, order.TotalAmountCents)
	}
	s.cart.Clear()
	return order, nil
}

func (s *Service) Orders(ctx context.Context) ([]domain.Order, error) {
	return s.api.ListOrders(ctx)
}

func (s *Service) Order(ctx context.Context, id string) (*domain.Order, error) {
	return s.api.GetOrder(ctx, id)
}

// Cancel asks the API to cancel; only pending and confirmed orders are accepted.
func (s *Service) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	return s.api.CancelOrder(ctx, id)
}

// Track polls one order every interval, calling onChange whenever its status
// differs from the last one seen. It returns once the order is ready or
// cancelled, or when ctx ends.
func (s *Service) Track(ctx context.Context, id string, interval time.Duration, onChange func(domain.Order)) (*domain.Order, error) {
	if interval <= 0 {
		interval = 8 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last domain.OrderStatus
	for {
		order, err := s.api.GetOrder(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Printf("checkout: track order=%s err=%v", id, err)
		} else {
			if order.Status != last {
				last = order.Status
				if onChange != nil {
					onChange(*order)
				}
			}
			if order.Status.Terminal() {
				return order, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
