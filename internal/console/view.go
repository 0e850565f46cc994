package console

import (
	"sort"
	"strings"

	"curryhouse/internal/domain"
)

// Filter keeps orders in status (empty means any) whose order number or
// customer name, email or phone contains search, case-insensitively.
func Filter(orders []domain.Order, status domain.OrderStatus, search string) []domain.Order {
	search = strings.ToLower(strings.TrimSpace(search))
	var out []domain.Order
	for _, o := range orders {
		if status != "" && o.Status != status {
			continue
		}
		if search != "" && !matches(o, search) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func matches(o domain.Order, needle string) bool {
	fields := []string{o.OrderNumber}
	if o.Customer != nil {
		fields = append(fields, o.Customer.Name, o.Customer.Email, o.Customer.Phone)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Counts tallies orders per status.
func Counts(orders []domain.Order) map[domain.OrderStatus]int {
	out := make(map[domain.OrderStatus]int, len(domain.OrderStatuses))
	for _, o := range orders {
		out[o.Status]++
	}
	return out
}

// InProgress returns orders not yet ready or cancelled, oldest first so the
// kitchen works the queue in order.
func InProgress(orders []domain.Order) []domain.Order {
	var out []domain.Order
	for _, o := range orders {
		if !o.Status.Terminal() {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
