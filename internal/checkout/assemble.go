// Package checkout turns a cart plus extras and notes into an order request and
// drives the customer side of the order lifecycle.
package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"curryhouse/internal/cart"
	"curryhouse/internal/domain"
	"curryhouse/internal/extras"
)

var (
	// ErrEmptyCart is returned when checking out with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUnknownExtra is returned for an extra id missing from the catalog.
	ErrUnknownExtra = errors.New("unknown extra")
)

// Input is everything the customer chose at checkout.
type Input struct {
	Lines           []cart.Line
	Extras          map[string]int
	Notes           string
	DeliveryType    domain.DeliveryType
	PaymentMethod   domain.PaymentMethod
	DeliveryAddress *domain.DeliveryAddress
}

// Totals is the display breakdown of a checkout.
type Totals struct {
	ItemsCents  int64
	ExtrasCents int64
	TotalCents  int64
}

// Assemble builds the order request. Extras with quantity 0 are dropped and
// the remaining ones are priced from the catalog.
func Assemble(catalog *extras.Catalog, in Input) (domain.PlaceOrderRequest, error) {
	if len(in.Lines) == 0 {
		return domain.PlaceOrderRequest{}, ErrEmptyCart
	}

	items := make([]domain.OrderLine, 0, len(in.Lines))
	var itemsTotal int64
	for _, l := range in.Lines {
		if l.Quantity < 1 {
			continue
		}
		sub := l.UnitPriceCents * int64(l.Quantity)
		itemsTotal += sub
		items = append(items, domain.OrderLine{
			MenuItemID:     l.ItemID,
			Name:           l.Name,
			UnitPriceCents: l.UnitPriceCents,
			Quantity:       l.Quantity,
			SubtotalCents:  sub,
		})
	}
	if len(items) == 0 {
		return domain.PlaceOrderRequest{}, ErrEmptyCart
	}

	selected, extrasTotal, err := priceExtras(catalog, in.Extras)
	if err != nil {
		return domain.PlaceOrderRequest{}, err
	}

	delivery := in.DeliveryType
	if delivery == "" {
		delivery = domain.DeliveryTypeDelivery
	}
	payment := in.PaymentMethod
	if payment == "" {
		payment = domain.PaymentCash
	}

	return domain.PlaceOrderRequest{
		Items:               items,
		Extras:              selected,
		ExtrasTotalCents:    extrasTotal,
		TotalAmountCents:    itemsTotal + extrasTotal,
		DeliveryType:        delivery,
		DeliveryAddress:     in.DeliveryAddress,
		PaymentMethod:       payment,
		SpecialInstructions: strings.TrimSpace(in.Notes),
	}, nil
}

// ComputeTotals returns the item, extras and grand totals for display.
func ComputeTotals(catalog *extras.Catalog, lines []cart.Line, selection map[string]int) (Totals, error) {
	var t Totals
	for _, l := range lines {
		t.ItemsCents += l.UnitPriceCents * int64(l.Quantity)
	}
	_, extrasTotal, err := priceExtras(catalog, selection)
	if err != nil {
		return Totals{}, err
	}
	t.ExtrasCents = extrasTotal
	t.TotalCents = t.ItemsCents + t.ExtrasCents
	return t, nil
}

func priceExtras(catalog *extras.Catalog, selection map[string]int) ([]domain.OrderExtra, int64, error) {
	ids := make([]string, 0, len(selection))
	for id := range selection {
		ids = append(ids, id)
	}
	// catalog order keeps the payload stable; unknown ids sort last
	sort.Strings(ids)
	sort.SliceStable(ids, func(i, j int) bool { return catalog.Position(ids[i]) < catalog.Position(ids[j]) })

	var (
		out   []domain.OrderExtra
		total int64
	)
	for _, id := range ids {
		qty := selection[id]
		if qty < 0 {
			return nil, 0, fmt.Errorf("extra %s: quantity must not be negative", id)
		}
		if qty == 0 {
			continue
		}
		e, ok := catalog.Lookup(id)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownExtra, id)
		}
		sub := e.PriceCents * int64(qty)
		total += sub
		out = append(out, domain.OrderExtra{
			ID:             e.ID,
			Name:           e.Name,
			UnitPriceCents: e.PriceCents,
			Quantity:       qty,
			SubtotalCents:  sub,
		})
	}
	return out, total, nil
}
