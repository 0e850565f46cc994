// Package cart keeps a customer's pre-checkout selection and persists it locally.
package cart

import (
	"io"
	"log"
	"sync"
)

// Item is what the menu hands to AddItem. PriceCents is copied into the line.
type Item struct {
	ID         string
	Name       string
	PriceCents int64
}

// Line is one menu item in the cart. Quantity is always >= 1.
type Line struct {
	ItemID         string `json:"itemId"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unitPrice"`
	Quantity       int    `json:"quantity"`
}

// Snapshot is a consistent copy of the cart contents and totals.
type Snapshot struct {
	Lines           []Line
	TotalItems      int
	TotalPriceCents int64
}

// Store is the cart state container. Every mutation recomputes totals and saves the lines.
type Store struct {
	mu      sync.Mutex
	storage Storage
	logger  *log.Logger

	lines      []Line
	totalItems int
	totalPrice int64
}

// NewStore returns an empty cart backed by storage. Call Init to load saved lines.
func NewStore(storage Storage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if storage == nil {
		storage = NopStorage{}
	}
	return &Store{storage: storage, logger: logger}
}

// Init loads persisted lines. Missing or unreadable storage leaves the cart empty.
func (s *Store) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.storage.Load()
	if err != nil {
		s.logger.Printf("cart: load failed, starting empty err=%v", err)
		lines = nil
	}
	s.lines = s.lines[:0]
	merged := 0
	for _, l := range lines {
		if l.ItemID == "" || l.Quantity < 1 {
			continue
		}
		// a repeated id folds into the first line, keeping its price
		if i := s.index(l.ItemID); i >= 0 {
			s.lines[i].Quantity += l.Quantity
			merged++
			continue
		}
		s.lines = append(s.lines, l)
	}
	if merged > 0 {
		s.logger.Printf("cart: merged %d duplicate lines on load", merged)
	}
	s.recompute()
}

// AddItem appends a line for item or bumps its quantity by one.
func (s *Store) AddItem(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(item.ID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		s.lines = append(s.lines, Line{
			ItemID:         item.ID,
			Name:           item.Name,
			UnitPriceCents: item.PriceCents,
			Quantity:       1,
		})
	}
	s.commit()
}

// RemoveItem drops the line for itemID. Unknown ids are a no-op.
func (s *Store) RemoveItem(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(itemID)
	if i < 0 {
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.commit()
}

// IncreaseQuantity adds one to an existing line.
func (s *Store) IncreaseQuantity(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(itemID)
	if i < 0 {
		return
	}
	s.lines[i].Quantity++
	s.commit()
}

// DecreaseQuantity subtracts one; a line reaching zero is removed.
func (s *Store) DecreaseQuantity(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(itemID)
	if i < 0 {
		return
	}
	if s.lines[i].Quantity <= 1 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	} else {
		s.lines[i].Quantity--
	}
	s.commit()
}

// UpdateQuantity sets an absolute quantity; q <= 0 removes the line.
func (s *Store) UpdateQuantity(itemID string, q int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(itemID)
	if i < 0 {
		return
	}
	if q <= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	} else {
		s.lines[i].Quantity = q
	}
	s.commit()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.commit()
}

// ItemQuantity returns the quantity for itemID, or 0.
func (s *Store) ItemQuantity(itemID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(itemID); i >= 0 {
		return s.lines[i].Quantity
	}
	return 0
}

func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalItems
}

// TotalPriceCents is the sum of unit price times quantity over all lines.
func (s *Store) TotalPriceCents() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPrice
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Lines:           append([]Line(nil), s.lines...),
		TotalItems:      s.totalItems,
		TotalPriceCents: s.totalPrice,
	}
}

func (s *Store) index(itemID string) int {
	for i := range s.lines {
		if s.lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// commit recomputes totals and saves; caller holds mu.
func (s *Store) commit() {
	s.recompute()
	if err := s.storage.Save(append([]Line(nil), s.lines...)); err != nil {
		s.logger.Printf("cart: save failed lines=%d err=%v", len(s.lines), err)
	}
}

func (s *Store) recompute() {
	s.totalItems = 0
	s.totalPrice = 0
	for _, l := range s.lines {
		s.totalItems += l.Quantity
		s.totalPrice += l.UnitPriceCents * int64(l.Quantity)
	}
}
