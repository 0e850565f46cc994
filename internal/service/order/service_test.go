package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"curryhouse/internal/domain"
	"curryhouse/internal/events"
	"curryhouse/internal/extras"
)

type memoryRepo struct {
	mu       sync.Mutex
	seq      int64
	orders   map[string]domain.Order
	numbers  map[string]bool
	sequence func() int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{seq: 1000, orders: map[string]domain.Order{}, numbers: map[string]bool{}}
}

func (r *memoryRepo) NextSequence(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sequence != nil {
		return r.sequence(), nil
	}
	r.seq++
	return r.seq, nil
}

func (r *memoryRepo) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.numbers[o.OrderNumber] {
		return nil, domain.ErrAlreadyExists
	}
	r.numbers[o.OrderNumber] = true
	o.ID = fmt.Sprintf("o%d", len(r.orders)+1)
	o.CreatedAt = time.Now()
	r.orders[o.ID] = o
	return &o, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (r *memoryRepo) GetForCustomer(ctx context.Context, customerID, id string) (*domain.Order, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil || o.CustomerID != customerID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (r *memoryRepo) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Order{}
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListAll(context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Order{}
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id string, to domain.OrderStatus, allowedFrom ...domain.OrderStatus) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if len(allowedFrom) > 0 && !contains(allowedFrom, o.Status) {
		return nil, domain.ErrConflict
	}
	o.Status = to
	r.orders[id] = o
	return &o, nil
}

// set forces a status without any checks.
func (r *memoryRepo) set(id string, s domain.OrderStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.orders[id]
	o.Status = s
	r.orders[id] = o
}

type stubMenu map[string]domain.MenuItem

func (m stubMenu) Prices(_ context.Context, ids []string) (map[string]domain.MenuItem, error) {
	out := map[string]domain.MenuItem{}
	for _, id := range ids {
		if it, ok := m[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

type stubCustomers map[string]domain.Customer

func (c stubCustomers) GetMany(context.Context, []string) (map[string]domain.Customer, error) {
	return c, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func basicRequest() domain.PlaceOrderRequest {
	return domain.PlaceOrderRequest{
		Items:            []domain.OrderLine{{MenuItemID: "m1", Name: "Lamb Biryani", UnitPriceCents: 100, Quantity: 2}},
		Extras:           []domain.OrderExtra{{ID: "raita", Name: "Raita", UnitPriceCents: 25, Quantity: 1}},
		TotalAmountCents: 225,
	}
}

func TestCreate_DefaultsAndNumbering(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	svc := New(repo, Options{Publisher: pub})

	o, err := svc.Create(context.Background(), "c1", basicRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.OrderNumber != "M-1001" {
		t.Fatalf("expected M-1001, got %s", o.OrderNumber)
	}
	if o.Status != domain.StatusPending || o.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("unexpected statuses %s/%s", o.Status, o.PaymentStatus)
	}
	if o.DeliveryType != domain.DeliveryTypeDelivery || o.PaymentMethod != domain.PaymentCash {
		t.Fatalf("expected delivery/cash defaults, got %s/%s", o.DeliveryType, o.PaymentMethod)
	}
	if o.TotalAmountCents != 225 || o.ExtrasTotalCents != 25 || o.Lines[0].SubtotalCents != 200 {
		t.Fatalf("unexpected amounts %+v", o)
	}
	if o.EstimatedDeliveryMinutes != 30 {
		t.Fatalf("expected 30 minute estimate, got %d", o.EstimatedDeliveryMinutes)
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.OrderCreated {
		t.Fatalf("expected one created event, got %+v", pub.events)
	}

	second, _ := svc.Create(context.Background(), "c1", basicRequest())
	if second.OrderNumber != "M-1002" {
		t.Fatalf("expected M-1002, got %s", second.OrderNumber)
	}
}

func TestCreate_DerivesTotalWithoutClientTotal(t *testing.T) {
	svc := New(newMemoryRepo(), Options{})
	req := basicRequest()
	req.TotalAmountCents = 0

	o, err := svc.Create(context.Background(), "c1", req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.TotalAmountCents != 225 {
		t.Fatalf("expected derived total 225, got %d", o.TotalAmountCents)
	}
}

func TestCreate_Rejections(t *testing.T) {
	svc := New(newMemoryRepo(), Options{})
	cases := []struct {
		name   string
		mutate func(*domain.PlaceOrderRequest)
	}{
		{"no items", func(r *domain.PlaceOrderRequest) { r.Items = nil }},
		{"zero quantity", func(r *domain.PlaceOrderRequest) { r.Items[0].Quantity = 0 }},
		{"bad delivery", func(r *domain.PlaceOrderRequest) { r.DeliveryType = "drone" }},
		{"bad payment", func(r *domain.PlaceOrderRequest) { r.PaymentMethod = "bitcoin" }},
		{"zero extra", func(r *domain.PlaceOrderRequest) { r.Extras[0].Quantity = 0 }},
	}
	for _, tc := range cases {
		req := basicRequest()
		tc.mutate(&req)
		if _, err := svc.Create(context.Background(), "c1", req); !domain.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestCreate_RepricesFromMenuAndCatalog(t *testing.T) {
	menu := stubMenu{
		"m1": {ID: "m1", Name: "Lamb Biryani", PriceCents: 24900, IsAvailable: true},
		"m2": {ID: "m2", Name: "Mango Lassi", PriceCents: 5900, IsAvailable: false},
	}
	catalog := extras.NewCatalog([]extras.Extra{{ID: "raita", Name: "Raita", PriceCents: 3500}})
	svc := New(newMemoryRepo(), Options{Menu: menu, Extras: catalog})

	o, err := svc.Create(context.Background(), "c1", basicRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Lines[0].UnitPriceCents != 24900 || o.Extras[0].UnitPriceCents != 3500 {
		t.Fatalf("expected server prices, got %+v %+v", o.Lines[0], o.Extras[0])
	}
	if o.TotalAmountCents != 2*24900+3500 {
		t.Fatalf("expected server total, got %d", o.TotalAmountCents)
	}

	req := basicRequest()
	req.Items = append(req.Items, domain.OrderLine{MenuItemID: "m2", Quantity: 1})
	if _, err := svc.Create(context.Background(), "c1", req); !domain.IsValidation(err) {
		t.Fatalf("expected unavailable item rejected, got %v", err)
	}
	req = basicRequest()
	req.Items[0].MenuItemID = "ghost"
	if _, err := svc.Create(context.Background(), "c1", req); !domain.IsValidation(err) {
		t.Fatalf("expected unknown item rejected, got %v", err)
	}
	req = basicRequest()
	req.Extras[0].ID = "caviar"
	if _, err := svc.Create(context.Background(), "c1", req); !domain.IsValidation(err) {
		t.Fatalf("expected unknown extra rejected, got %v", err)
	}
}

func TestCreate_RetriesCollisionsThenFallsBack(t *testing.T) {
	repo := newMemoryRepo()
	repo.numbers["M-1001"] = true
	svc := New(repo, Options{})

	o, err := svc.Create(context.Background(), "c1", basicRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.OrderNumber != "M-1002" {
		t.Fatalf("expected retry to M-1002, got %s", o.OrderNumber)
	}

	repo.sequence = func() int64 { return 1002 }
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	o, err = svc.Create(context.Background(), "c1", basicRequest())
	if err != nil {
		t.Fatalf("create with exhausted sequence: %v", err)
	}
	if !strings.HasPrefix(o.OrderNumber, "M-1700000000000-") || len(o.OrderNumber) != len("M-1700000000000-")+5 {
		t.Fatalf("unexpected fallback number %s", o.OrderNumber)
	}
}

func TestCreate_PublishFailureDoesNotFailRequest(t *testing.T) {
	svc := New(newMemoryRepo(), Options{Publisher: &recordingPublisher{err: errors.New("broker down")}})
	if _, err := svc.Create(context.Background(), "c1", basicRequest()); err != nil {
		t.Fatalf("expected publish errors to be swallowed, got %v", err)
	}
}

func TestCancel_OnlyFromPendingOrConfirmed(t *testing.T) {
	cases := []struct {
		from    domain.OrderStatus
		allowed bool
	}{
		{domain.StatusPending, true},
		{domain.StatusConfirmed, true},
		{domain.StatusPreparing, false},
		{domain.StatusReady, false},
		{domain.StatusCancelled, false},
	}
	for _, tc := range cases {
		repo := newMemoryRepo()
		svc := New(repo, Options{})
		o, _ := svc.Create(context.Background(), "c1", basicRequest())
		repo.set(o.ID, tc.from)

		got, err := svc.Cancel(context.Background(), "c1", o.ID)
		if tc.allowed {
			if err != nil || got.Status != domain.StatusCancelled {
				t.Fatalf("from %s: expected cancelled, got %+v err=%v", tc.from, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrCannotCancel) {
			t.Fatalf("from %s: expected ErrCannotCancel, got %v", tc.from, err)
		}
		after, _ := repo.GetByID(context.Background(), o.ID)
		if after.Status != tc.from {
			t.Fatalf("from %s: status changed to %s", tc.from, after.Status)
		}
	}
}

func TestCancel_ForeignOrderNotFound(t *testing.T) {
	svc := New(newMemoryRepo(), Options{})
	o, _ := svc.Create(context.Background(), "c1", basicRequest())
	if _, err := svc.Cancel(context.Background(), "c2", o.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAll_AttachesCustomers(t *testing.T) {
	customers := stubCustomers{"c1": {ID: "c1", Name: "Kari", Email: "kari@example.no", Phone: "98765432"}}
	svc := New(newMemoryRepo(), Options{Customers: customers})
	_, _ = svc.Create(context.Background(), "c1", basicRequest())
	_, _ = svc.Create(context.Background(), "c9", basicRequest())

	all, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	for _, o := range all {
		switch o.CustomerID {
		case "c1":
			if o.Customer == nil || o.Customer.Email != "kari@example.no" {
				t.Fatalf("expected customer summary, got %+v", o.Customer)
			}
		case "c9":
			if o.Customer != nil {
				t.Fatalf("expected no summary for unknown customer")
			}
		}
	}
}

func TestUpdateStatus_OpenPolicyAcceptsAnyValidStatus(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	svc := New(repo, Options{Publisher: pub})
	o, _ := svc.Create(context.Background(), "c1", basicRequest())

	if _, err := svc.UpdateStatus(context.Background(), o.ID, "shipped"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
	for _, s := range []domain.OrderStatus{domain.StatusReady, domain.StatusPending, domain.StatusCancelled, domain.StatusPreparing} {
		got, err := svc.UpdateStatus(context.Background(), o.ID, s)
		if err != nil || got.Status != s {
			t.Fatalf("open policy to %s: %+v err=%v", s, got, err)
		}
	}
	last := pub.events[len(pub.events)-1]
	if last.Type != events.OrderStatusChanged || last.PreviousStatus != domain.StatusCancelled {
		t.Fatalf("unexpected last event %+v", last)
	}
	if _, err := svc.UpdateStatus(context.Background(), "missing", domain.StatusReady); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus_ProgressivePolicy(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(repo, Options{Policy: PolicyProgressive})
	o, _ := svc.Create(context.Background(), "c1", basicRequest())

	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.StatusPreparing); err != nil {
		t.Fatalf("forward move: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.StatusPreparing); err != nil {
		t.Fatalf("same status should be allowed: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.StatusConfirmed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected backwards move rejected, got %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.StatusCancelled); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected cancel from preparing rejected, got %v", err)
	}

	repo.set(o.ID, domain.StatusCancelled)
	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.StatusReady); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected cancelled to stay final, got %v", err)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyOpen {
		t.Fatalf("expected open default, got %q err=%v", p, err)
	}
	if _, err := ParsePolicy("strict"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func createConcurrently(t *testing.T, svc *Service, n int) []string {
	t.Helper()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := svc.Create(context.Background(), fmt.Sprintf("c%d", i%5), basicRequest())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, o.OrderNumber)
		}(i)
	}
	wg.Wait()
	if len(errs) > 0 {
		t.Fatalf("expected every create to succeed, got %d errors, first: %v", len(errs), errs[0])
	}
	return numbers
}

func TestCreate_ConcurrentNumbersUnique(t *testing.T) {
	repo := newMemoryRepo()
	svc := New(repo, Options{})

	numbers := createConcurrently(t, svc, 50)

	seen := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			t.Fatalf("order number %s issued twice", n)
		}
		seen[n] = true
	}
	if len(seen) != 50 {
		t.Fatalf("expected 50 numbers, got %d", len(seen))
	}
	all, _ := repo.ListAll(context.Background())
	if len(all) != 50 {
		t.Fatalf("expected 50 stored orders, got %d", len(all))
	}
}

func TestCreate_ConcurrentCollisionsRetryToUniqueNumbers(t *testing.T) {
	repo := newMemoryRepo()
	calls := 0
	// every sequence value is handed out twice
	repo.sequence = func() int64 {
		calls++
		return 1000 + int64(calls+1)/2
	}
	svc := New(repo, Options{})

	numbers := createConcurrently(t, svc, 40)

	seen := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			t.Fatalf("order number %s issued twice", n)
		}
		seen[n] = true
	}
	if len(seen) != 40 {
		t.Fatalf("expected 40 numbers, got %d", len(seen))
	}
}
