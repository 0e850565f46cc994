// Package console is the staff view of all orders: it polls the API and applies
// status changes optimistically with a single time-bounded undo.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"curryhouse/internal/domain"
)

// ErrNothingToUndo is returned by Undo when no change is within its window.
var ErrNothingToUndo = errors.New("nothing to undo")

// OrderAPI is the admin subset of the API client.
type OrderAPI interface {
	ListAllOrders(ctx context.Context) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

// PendingUndo describes the one status change that can still be reverted.
type PendingUndo struct {
	OrderID        string
	OrderNumber    string
	PreviousStatus domain.OrderStatus
	NewStatus      domain.OrderStatus
	ExpiresAt      time.Time
}

// Config tunes the console. Zero durations fall back to 8 seconds.
type Config struct {
	UndoWindow     time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration
	Logger         *log.Logger
}

type stopper interface {
	Stop() bool
}

type inflight struct {
	status domain.OrderStatus
	seq    uint64
}

// call is one backend status update. Calls for the same order run in the
// order they were issued; err is set before done is closed.
type call struct {
	done chan struct{}
	err  error
}

// Console holds the local order list and the pending undo record.
type Console struct {
	api            OrderAPI
	logger         *log.Logger
	undoWindow     time.Duration
	pollInterval   time.Duration
	requestTimeout time.Duration

	afterFunc func(time.Duration, func()) stopper
	now       func() time.Time

	mu         sync.Mutex
	orders     []domain.Order
	pending    *PendingUndo
	pendingSeq uint64
	timer      stopper
	seq        uint64
	inflight   map[string]inflight
	changed    map[string]uint64
	calls      map[string]*call
	lastErr    error
	onChange   func()

	wg sync.WaitGroup
}

func New(api OrderAPI, cfg Config) *Console {
	if cfg.UndoWindow <= 0 {
		cfg.UndoWindow = 8 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 8 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	return &Console{
		api:            api,
		logger:         cfg.Logger,
		undoWindow:     cfg.UndoWindow,
		pollInterval:   cfg.PollInterval,
		requestTimeout: cfg.RequestTimeout,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		now:      time.Now,
		inflight: make(map[string]inflight),
		changed:  make(map[string]uint64),
		calls:    make(map[string]*call),
	}
}

// OnChange registers a callback run after any local state change. It is called
// without the console lock held.
func (c *Console) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// SetStatus shows the new status immediately, opens the undo window for this
// change (dropping any earlier one) and sends the update in the background.
func (c *Console) SetStatus(orderID string, status domain.OrderStatus) error {
	if !status.Valid() {
		return domain.Invalid(fmt.Sprintf("invalid status %q", status))
	}

	c.mu.Lock()
	i := c.index(orderID)
	if i < 0 {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	prev := c.orders[i].Status
	if prev == status {
		c.mu.Unlock()
		return nil
	}
	c.orders[i].Status = status
	c.lastErr = nil

	c.stopTimerLocked()
	c.seq++
	seq := c.seq
	c.pending = &PendingUndo{
		OrderID:        orderID,
		OrderNumber:    c.orders[i].OrderNumber,
		PreviousStatus: prev,
		NewStatus:      status,
		ExpiresAt:      c.now().Add(c.undoWindow),
	}
	c.pendingSeq = seq
	c.timer = c.afterFunc(c.undoWindow, func() { c.expire(seq) })
	c.inflight[orderID] = inflight{status: status, seq: seq}
	c.changed[orderID] = seq
	after, cur := c.chainLocked(orderID)
	c.mu.Unlock()
	c.notify()

	c.wg.Add(1)
	go c.push(orderID, status, prev, seq, false, after, cur)
	return nil
}

// Undo reverts the pending change locally and asks the API to restore the
// previous status. A failed restore is reported, not retried.
func (c *Console) Undo() error {
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return ErrNothingToUndo
	}
	p := *c.pending
	c.stopTimerLocked()
	c.pending = nil

	if i := c.index(p.OrderID); i >= 0 {
		c.orders[i].Status = p.PreviousStatus
	}
	c.lastErr = nil
	c.seq++
	seq := c.seq
	c.inflight[p.OrderID] = inflight{status: p.PreviousStatus, seq: seq}
	c.changed[p.OrderID] = seq
	after, cur := c.chainLocked(p.OrderID)
	c.mu.Unlock()
	c.notify()

	c.wg.Add(1)
	go c.push(p.OrderID, p.PreviousStatus, p.NewStatus, seq, true, after, cur)
	return nil
}

// chainLocked registers a new call for orderID and returns the call it must
// wait for, if any.
func (c *Console) chainLocked(orderID string) (after, cur *call) {
	after = c.calls[orderID]
	cur = &call{done: make(chan struct{})}
	c.calls[orderID] = cur
	return after, cur
}

func (c *Console) push(orderID string, status, revertTo domain.OrderStatus, seq uint64, undo bool, after, cur *call) {
	defer c.wg.Done()

	var err error
	defer func() {
		cur.err = err
		close(cur.done)
		c.mu.Lock()
		if c.calls[orderID] == cur {
			delete(c.calls, orderID)
		}
		c.mu.Unlock()
	}()

	if after != nil {
		<-after.done
		if undo && after.err != nil {
			// the change being undone never landed and was already reverted
			c.mu.Lock()
			if f, ok := c.inflight[orderID]; ok && f.seq == seq {
				delete(c.inflight, orderID)
			}
			c.mu.Unlock()
			c.logger.Printf("console: undo skipped order=%s, update it reverts failed", orderID)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()
	_, err = c.api.UpdateOrderStatus(ctx, orderID, status)

	c.mu.Lock()
	if f, ok := c.inflight[orderID]; ok && f.seq == seq {
		delete(c.inflight, orderID)
	}
	if err == nil {
		c.mu.Unlock()
		return
	}

	if undo {
		c.lastErr = fmt.Errorf("undo order %s: %w", orderID, err)
		c.logger.Printf("console: undo failed order=%s status=%s err=%v", orderID, status, err)
	} else {
		if i := c.index(orderID); i >= 0 && c.orders[i].Status == status {
			c.orders[i].Status = revertTo
		}
		if c.pending != nil && c.pendingSeq == seq {
			c.stopTimerLocked()
			c.pending = nil
		}
		c.lastErr = fmt.Errorf("update order %s to %s: %w", orderID, status, err)
		c.logger.Printf("console: update failed order=%s status=%s reverted=%s err=%v", orderID, status, revertTo, err)
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Console) expire(seq uint64) {
	c.mu.Lock()
	if c.pending == nil || c.pendingSeq != seq {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()
	c.notify()
}

// Refresh replaces the local list with the API's, keeping the local status of
// orders whose update is in flight or settled while the list was being fetched.
func (c *Console) Refresh(ctx context.Context) error {
	c.mu.Lock()
	start := c.seq
	held := make(map[string]bool, len(c.inflight))
	for id := range c.inflight {
		held[id] = true
	}
	c.mu.Unlock()

	list, err := c.api.ListAllOrders(ctx)
	if err != nil {
		c.mu.Lock()
		c.lastErr = fmt.Errorf("refresh orders: %w", err)
		c.mu.Unlock()
		c.notify()
		return err
	}

	c.mu.Lock()
	for i := range list {
		id := list[i].ID
		if f, ok := c.inflight[id]; ok {
			list[i].Status = f.status
			continue
		}
		if held[id] || c.changed[id] > start {
			if j := c.index(id); j >= 0 {
				list[i].Status = c.orders[j].Status
			}
		}
	}
	for id, seq := range c.changed {
		if _, ok := c.inflight[id]; !ok && !held[id] && seq <= start {
			delete(c.changed, id)
		}
	}
	c.orders = list
	c.mu.Unlock()
	c.notify()
	return nil
}

// Run refreshes immediately and then every poll interval until ctx ends.
func (c *Console) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
			c.logger.Printf("console: poll failed err=%v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Orders returns a copy of the local list.
func (c *Console) Orders() []domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Order(nil), c.orders...)
}

func (c *Console) PendingUndo() (PendingUndo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return PendingUndo{}, false
	}
	return *c.pending, true
}

// Err is the last failure surfaced to staff, cleared by the next action.
func (c *Console) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Wait blocks until background status updates have finished.
func (c *Console) Wait() {
	c.wg.Wait()
}

// Close stops the undo timer and waits for in-flight updates.
func (c *Console) Close() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Console) index(orderID string) int {
	for i := range c.orders {
		if c.orders[i].ID == orderID {
			return i
		}
	}
	return -1
}

func (c *Console) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Console) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
