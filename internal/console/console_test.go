package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"curryhouse/internal/domain"
)

type stubAPI struct {
	mu     sync.Mutex
	orders []domain.Order
	calls  []domain.OrderStatus
	fail   map[domain.OrderStatus]error
	gate   chan struct{}
	// hold blocks updates to one status until the channel is closed
	hold map[domain.OrderStatus]chan struct{}
	// afterList runs once the list has been read, before it is returned
	afterList func()
}

func (s *stubAPI) ListAllOrders(_ context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	list := append([]domain.Order(nil), s.orders...)
	hook := s.afterList
	s.afterList = nil
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return list, nil
}

func (s *stubAPI) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if s.gate != nil {
		<-s.gate
	}
	if ch := s.hold[status]; ch != nil {
		<-ch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, status)
	if err := s.fail[status]; err != nil {
		return nil, err
	}
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = status
			o := s.orders[i]
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubAPI) statusOf(id string) domain.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o.Status
		}
	}
	return ""
}

func (s *stubAPI) callLog() []domain.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OrderStatus(nil), s.calls...)
}

type fakeTimer struct {
	mu      sync.Mutex
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) fire() {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if !stopped {
		t.fn()
	}
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeTimers) afterFunc(_ time.Duration, fn func()) stopper {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) get(i int) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[i]
}

func newTestConsole(t *testing.T, api *stubAPI) (*Console, *fakeTimers) {
	t.Helper()
	timers := &fakeTimers{}
	c := New(api, Config{})
	c.afterFunc = timers.afterFunc
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return c, timers
}

func statusOf(c *Console, id string) domain.OrderStatus {
	for _, o := range c.Orders() {
		if o.ID == id {
			return o.Status
		}
	}
	return ""
}

func twoOrders() []domain.Order {
	return []domain.Order{
		{ID: "o1", OrderNumber: "M-1001", Status: domain.StatusPending},
		{ID: "o2", OrderNumber: "M-1002", Status: domain.StatusConfirmed},
	}
}

func TestSetStatus_AppliesBeforeResponse(t *testing.T) {
	api := &stubAPI{orders: twoOrders(), gate: make(chan struct{})}
	c, _ := newTestConsole(t, api)

	if err := c.SetStatus("o1", domain.StatusConfirmed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if got := statusOf(c, "o1"); got != domain.StatusConfirmed {
		t.Fatalf("expected optimistic confirmed, got %s", got)
	}
	p, ok := c.PendingUndo()
	if !ok || p.PreviousStatus != domain.StatusPending || p.NewStatus != domain.StatusConfirmed {
		t.Fatalf("unexpected pending undo %+v ok=%v", p, ok)
	}

	close(api.gate)
	c.Wait()
	if calls := api.callLog(); len(calls) != 1 || calls[0] != domain.StatusConfirmed {
		t.Fatalf("unexpected backend calls %v", calls)
	}
	if c.Err() != nil {
		t.Fatalf("unexpected error %v", c.Err())
	}
}

func TestUndo_WithinWindowRestoresPrevious(t *testing.T) {
	api := &stubAPI{orders: twoOrders()}
	c, timers := newTestConsole(t, api)

	if err := c.SetStatus("o1", domain.StatusConfirmed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	c.Wait()
	if err := c.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := statusOf(c, "o1"); got != domain.StatusPending {
		t.Fatalf("expected local pending after undo, got %s", got)
	}
	if _, ok := c.PendingUndo(); ok {
		t.Fatalf("expected pending undo cleared")
	}
	if !timers.get(0).stopped {
		t.Fatalf("expected undo timer stopped")
	}
	c.Wait()
	calls := api.callLog()
	if len(calls) != 2 || calls[1] != domain.StatusPending {
		t.Fatalf("expected restore call to pending, got %v", calls)
	}
}

func TestUndo_AfterExpiryNotPossible(t *testing.T) {
	api := &stubAPI{orders: twoOrders()}
	c, timers := newTestConsole(t, api)

	if err := c.SetStatus("o1", domain.StatusConfirmed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	c.Wait()
	timers.get(0).fire()

	if _, ok := c.PendingUndo(); ok {
		t.Fatalf("expected pending undo cleared on expiry")
	}
	if err := c.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
	if got := statusOf(c, "o1"); got != domain.StatusConfirmed {
		t.Fatalf("expected change kept, got %s", got)
	}
	if calls := api.callLog(); len(calls) != 1 {
		t.Fatalf("expiry must not call backend, calls=%v", calls)
	}
}

func TestSetStatus_BackendFailureReverts(t *testing.T) {
	api := &stubAPI{
		orders: twoOrders(),
		fail:   map[domain.OrderStatus]error{domain.StatusConfirmed: errors.New("network down")},
	}
	c, timers := newTestConsole(t, api)

	if err := c.SetStatus("o1", domain.StatusConfirmed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	c.Wait()

	if got := statusOf(c, "o1"); got != domain.StatusPending {
		t.Fatalf("expected revert to pending, got %s", got)
	}
	if c.Err() == nil {
		t.Fatalf("expected error surfaced")
	}
	if _, ok := c.PendingUndo(); ok {
		t.Fatalf("expected no pending undo after failure")
	}
	if !timers.get(0).stopped {
		t.Fatalf("expected timer stopped after failure")
	}
}

func TestSetStatus_SecondChangeSupersedesUndo(t *testing.T) {
	api := &stubAPI{orders: twoOrders()}
	c, timers := newTestConsole(t, api)

	if err := c.SetStatus("o1", domain.StatusConfirmed); err != nil {
		t.Fatalf("set o1: %v", err)
	}
	if err := c.SetStatus("o2", domain.StatusPreparing); err != nil {
		t.Fatalf("set o2: %v", err)
	}
	c.Wait()

	if !timers.get(0).stopped {
		t.Fatalf("expected first timer stopped")
	}
	p, ok := c.PendingUndo()
	if !ok || p.OrderID != "o2" {
		t.Fatalf("expected pending undo for o2, got %+v", p)
	}

	// a late expiry from the first change must not clear the second
	c.expire(1)
	if _, ok := c.PendingUndo(); !ok {
		t.Fatalf("stale expiry cleared the current undo")
	}

	if err := c.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	c.Wait()
	if statusOf(c, "o1") != domain.StatusConfirmed || statusOf(c, "o2") != domain.StatusConfirmed {
		t.Fatalf("unexpected statuses o1=%s o2=%s", statusOf(c, "o1"), statusOf(c, "o2"))
	}
}

func TestUndo_FailureSurfacedWithoutRetry(t *testing.T) {
	api := &stubAPI{
		orders: twoOrders(),
		fail:   map[domain.OrderStatus]error{domain.StatusPending: errors.New("timeout")},
	}
	c, _ := newTestConsole(t, api)

	if err := c.SetStatus("o1", domain.StatusConfirmed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	c.Wait()
	if err := c.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	c.Wait()

	if c.Err() == nil {
		t.Fatalf("expected undo failure surfaced")
	}
	if calls := api.callLog(); len(calls) != 2 {
		t.Fatalf("expected exactly one restore attempt, calls=%v", calls)
	}
}

func TestRefresh_KeepsInFlightStatus(t *testing.T) {
	api := &stubAPI{orders: twoOrders(), gate: make(chan struct{})}
	c, _ := newTestConsole(t, api)

	if err := c.SetStatus("o1", domain.StatusReady); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := statusOf(c, "o1"); got != domain.StatusReady {
		t.Fatalf("refresh overwrote in-flight status, got %s", got)
	}

	close(api.gate)
	c.Wait()
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := statusOf(c, "o1"); got != domain.StatusReady {
		t.Fatalf("expected committed ready, got %s", got)
	}
}

func TestSetStatus_Rejections(t *testing.T) {
	c, _ := newTestConsole(t, &stubAPI{orders: twoOrders()})

	if err := c.SetStatus("missing", domain.StatusReady); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := c.SetStatus("o1", "shipped"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := c.SetStatus("o1", domain.StatusPending); err != nil {
		t.Fatalf("same status should be a no-op, got %v", err)
	}
	if _, ok := c.PendingUndo(); ok {
		t.Fatalf("no-op must not open an undo window")
	}
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	api := &stubAPI{orders: twoOrders()}
	c := New(api, Config{PollInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(c.Orders()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("poll never loaded orders")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestUndo_WaitsForSlowUpdate(t *testing.T) {
	slow := make(chan struct{})
	api := &stubAPI{orders: twoOrders(), hold: map[domain.OrderStatus]chan struct{}{domain.StatusConfirmed: slow}}
	c, _ := newTestConsole(t, api)

	if err := c.SetStatus("o1", domain.StatusConfirmed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := c.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if calls := api.callLog(); len(calls) != 0 {
		t.Fatalf("restore sent before the update it reverts, calls=%v", calls)
	}

	close(slow)
	c.Wait()
	calls := api.callLog()
	if len(calls) != 2 || calls[0] != domain.StatusConfirmed || calls[1] != domain.StatusPending {
		t.Fatalf("expected confirmed then pending, got %v", calls)
	}
	if got := api.statusOf("o1"); got != domain.StatusPending {
		t.Fatalf("expected backend pending, got %s", got)
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := statusOf(c, "o1"); got != domain.StatusPending {
		t.Fatalf("expected pending after poll, got %s", got)
	}
}

func TestUndo_SkippedWhenUpdateFailed(t *testing.T) {
	slow := make(chan struct{})
	api := &stubAPI{
		orders: twoOrders(),
		hold:   map[domain.OrderStatus]chan struct{}{domain.StatusConfirmed: slow},
		fail:   map[domain.OrderStatus]error{domain.StatusConfirmed: errors.New("network down")},
	}
	c, _ := newTestConsole(t, api)

	if err := c.SetStatus("o1", domain.StatusConfirmed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := c.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	close(slow)
	c.Wait()

	if calls := api.callLog(); len(calls) != 1 || calls[0] != domain.StatusConfirmed {
		t.Fatalf("expected only the failed update, got %v", calls)
	}
	if got := statusOf(c, "o1"); got != domain.StatusPending {
		t.Fatalf("expected local pending, got %s", got)
	}
	if c.Err() == nil {
		t.Fatalf("expected update failure surfaced")
	}
}

func TestRefresh_KeepsStatusSettledDuringFetch(t *testing.T) {
	api := &stubAPI{orders: twoOrders(), gate: make(chan struct{})}
	c, _ := newTestConsole(t, api)

	if err := c.SetStatus("o1", domain.StatusReady); err != nil {
		t.Fatalf("set status: %v", err)
	}
	api.mu.Lock()
	api.afterList = func() {
		close(api.gate)
		c.Wait()
	}
	api.mu.Unlock()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := statusOf(c, "o1"); got != domain.StatusReady {
		t.Fatalf("stale list overwrote settled status, got %s", got)
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := statusOf(c, "o1"); got != domain.StatusReady {
		t.Fatalf("expected ready from backend, got %s", got)
	}
}

func TestRefresh_KeepsChangeMadeDuringFetch(t *testing.T) {
	api := &stubAPI{orders: twoOrders()}
	c, _ := newTestConsole(t, api)

	api.mu.Lock()
	api.afterList = func() {
		if err := c.SetStatus("o2", domain.StatusPreparing); err != nil {
			t.Errorf("set status: %v", err)
		}
		c.Wait()
	}
	api.mu.Unlock()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := statusOf(c, "o2"); got != domain.StatusPreparing {
		t.Fatalf("expected preparing kept, got %s", got)
	}
}
