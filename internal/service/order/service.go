package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"curryhouse/internal/domain"
	"curryhouse/internal/events"
	"curryhouse/internal/extras"
	orderrepo "curryhouse/internal/repository/order"
	"github.com/google/uuid"
)

// ErrCannotCancel is returned when a customer cancels an order that has moved past confirmed.
var ErrCannotCancel = errors.New("cannot cancel order at this stage")

// ErrInvalidTransition is returned when the progressive policy refuses a status change.
var ErrInvalidTransition = errors.New("status transition not allowed")

const numberAttempts = 5

// PriceSource resolves current menu items for re-pricing.
type PriceSource interface {
	Prices(ctx context.Context, ids []string) (map[string]domain.MenuItem, error)
}

// CustomerDirectory resolves customer contact details for the admin listing.
type CustomerDirectory interface {
	GetMany(ctx context.Context, ids []string) (map[string]domain.Customer, error)
}

// Options wires the optional collaborators of Service.
type Options struct {
	// Menu re-prices lines server-side. Nil trusts submitted prices.
	Menu      PriceSource
	Extras    *extras.Catalog
	Customers CustomerDirectory
	Publisher events.Publisher
	Policy    TransitionPolicy
	// NumberPrefix precedes the sequence in order numbers. Defaults to "M-".
	NumberPrefix string
	Logger       *log.Logger
}

type Service struct {
	repo      orderrepo.Repository
	menu      PriceSource
	extras    *extras.Catalog
	customers CustomerDirectory
	publisher events.Publisher
	policy    TransitionPolicy
	prefix    string
	logger    *log.Logger
	now       func() time.Time
}

func New(repo orderrepo.Repository, opts Options) *Service {
	s := &Service{
		repo:      repo,
		menu:      opts.Menu,
		extras:    opts.Extras,
		customers: opts.Customers,
		publisher: opts.Publisher,
		policy:    opts.Policy,
		prefix:    opts.NumberPrefix,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.policy == "" {
		s.policy = PolicyOpen
	}
	if s.prefix == "" {
		s.prefix = "M-"
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	return s
}

// Create validates req, prices it and stores a new pending order for customerID.
func (s *Service) Create(ctx context.Context, customerID string, req domain.PlaceOrderRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, domain.Invalid("order must contain at least one item")
	}
	if req.DeliveryType == "" {
		req.DeliveryType = domain.DeliveryTypeDelivery
	}
	if !req.DeliveryType.Valid() {
		return nil, domain.Invalid("deliveryType must be delivery or pickup")
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentCash
	}
	if !req.PaymentMethod.Valid() {
		return nil, domain.Invalid("paymentMethod must be cash, card or vipps")
	}
	for _, l := range req.Items {
		if strings.TrimSpace(l.MenuItemID) == "" {
			return nil, domain.Invalid("every item needs a menuItem id")
		}
		if l.Quantity < 1 {
			return nil, domain.Invalid("item quantity must be at least 1")
		}
	}

	lines, err := s.priceLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	extraLines, extrasTotal, err := s.priceExtras(req.Extras)
	if err != nil {
		return nil, err
	}

	o := domain.Order{
		CustomerID:               customerID,
		Lines:                    lines,
		Extras:                   extraLines,
		ExtrasTotalCents:         extrasTotal,
		DeliveryType:             req.DeliveryType,
		PaymentMethod:            req.PaymentMethod,
		PaymentStatus:            domain.PaymentStatusPending,
		Status:                   domain.StatusPending,
		SpecialInstructions:      strings.TrimSpace(req.SpecialInstructions),
		EstimatedDeliveryMinutes: domain.DefaultEstimatedMinutes,
	}
	if req.DeliveryAddress != nil {
		addr := *req.DeliveryAddress
		if addr.Country == "" {
			addr.Country = "Norway"
		}
		o.DeliveryAddress = &addr
	}

	computed := o.ItemsTotalCents() + extrasTotal
	switch {
	case s.menu != nil:
		if req.TotalAmountCents > 0 && req.TotalAmountCents != computed {
			s.logger.Printf("order: customer=%s submitted total=%d, server total=%d", customerID, req.TotalAmountCents, computed)
		}
		o.TotalAmountCents = computed
	case req.TotalAmountCents > 0:
		o.TotalAmountCents = req.TotalAmountCents
	default:
		o.TotalAmountCents = computed
	}

	created, err := s.insert(ctx, o)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.OrderCreated, *created, ""))
	return created, nil
}

// insert assigns an order number and stores o, retrying on number collisions.
func (s *Service) insert(ctx context.Context, o domain.Order) (*domain.Order, error) {
	for attempt := 1; attempt <= numberAttempts; attempt++ {
		seq, err := s.repo.NextSequence(ctx)
		if err != nil {
			return nil, fmt.Errorf("reserve order number: %w", err)
		}
		o.OrderNumber = fmt.Sprintf("%s%d", s.prefix, seq)
		created, err := s.repo.Create(ctx, o)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		s.logger.Printf("order: number %s taken (attempt %d)", o.OrderNumber, attempt)
	}

	o.OrderNumber = s.fallbackNumber()
	s.logger.Printf("order: sequence exhausted, using %s", o.OrderNumber)
	return s.repo.Create(ctx, o)
}

func (s *Service) fallbackNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:5])
	return fmt.Sprintf("%s%d-%s", s.prefix, s.now().UnixMilli(), suffix)
}

func (s *Service) priceLines(ctx context.Context, items []domain.OrderLine) ([]domain.OrderLine, error) {
	var menu map[string]domain.MenuItem
	if s.menu != nil {
		ids := make([]string, 0, len(items))
		for _, l := range items {
			ids = append(ids, l.MenuItemID)
		}
		var err error
		if menu, err = s.menu.Prices(ctx, ids); err != nil {
			return nil, fmt.Errorf("load menu prices: %w", err)
		}
	}

	lines := make([]domain.OrderLine, 0, len(items))
	for _, l := range items {
		if menu != nil {
			item, ok := menu[l.MenuItemID]
			if !ok {
				return nil, domain.Invalid(fmt.Sprintf("menu item %s not found", l.MenuItemID))
			}
			if !item.IsAvailable {
				return nil, domain.Invalid(fmt.Sprintf("%s is currently unavailable", item.Name))
			}
			l.Name = item.Name
			l.UnitPriceCents = item.PriceCents
		} else if l.UnitPriceCents < 0 {
			return nil, domain.Invalid("item price must not be negative")
		}
		l.SubtotalCents = l.UnitPriceCents * int64(l.Quantity)
		lines = append(lines, l)
	}
	return lines, nil
}

func (s *Service) priceExtras(in []domain.OrderExtra) ([]domain.OrderExtra, int64, error) {
	out := make([]domain.OrderExtra, 0, len(in))
	var total int64
	for _, e := range in {
		if e.Quantity < 1 {
			return nil, 0, domain.Invalid("extra quantity must be at least 1")
		}
		if s.extras != nil {
			known, ok := s.extras.Lookup(e.ID)
			if !ok {
				return nil, 0, domain.Invalid(fmt.Sprintf("unknown extra %s", e.ID))
			}
			e.Name = known.Name
			e.UnitPriceCents = known.PriceCents
		} else if e.UnitPriceCents < 0 {
			return nil, 0, domain.Invalid("extra price must not be negative")
		}
		e.SubtotalCents = e.UnitPriceCents * int64(e.Quantity)
		total += e.SubtotalCents
		out = append(out, e)
	}
	return out, total, nil
}

func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *Service) GetForCustomer(ctx context.Context, customerID, id string) (*domain.Order, error) {
	return s.repo.GetForCustomer(ctx, customerID, id)
}

// Cancel moves a customer's own order to cancelled while it is still pending or confirmed.
func (s *Service) Cancel(ctx context.Context, customerID, id string) (*domain.Order, error) {
	current, err := s.repo.GetForCustomer(ctx, customerID, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CustomerCancellable() {
		return nil, ErrCannotCancel
	}
	updated, err := s.repo.UpdateStatus(ctx, id, domain.StatusCancelled, domain.StatusPending, domain.StatusConfirmed)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, ErrCannotCancel
		}
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.OrderCancelled, *updated, current.Status))
	return updated, nil
}

// ListAll returns every order, newest first, with customer contact details attached.
func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if s.customers == nil || len(orders) == 0 {
		return orders, nil
	}

	seen := make(map[string]struct{}, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.CustomerID]; !ok {
			seen[o.CustomerID] = struct{}{}
			ids = append(ids, o.CustomerID)
		}
	}
	customers, err := s.customers.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	for i := range orders {
		if c, ok := customers[orders[i].CustomerID]; ok {
			orders[i].Customer = c.Summary()
		}
	}
	return orders, nil
}

// UpdateStatus sets an order's status on behalf of staff, subject to the policy.
func (s *Service) UpdateStatus(ctx context.Context, id string, to domain.OrderStatus) (*domain.Order, error) {
	if !to.Valid() {
		return nil, domain.Invalid(fmt.Sprintf("invalid status %q", to))
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := s.policy.allowedFrom(to)
	if len(from) > 0 && !contains(from, current.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, to)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, to, from...)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
		}
		return nil, err
	}
	if current.Status != to {
		s.publish(ctx, events.NewEvent(events.OrderStatusChanged, *updated, current.Status))
	}
	return updated, nil
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Printf("order: publish %s order=%s error=%v", ev.Type, ev.OrderID, err)
	}
}
