package order

import (
	"fmt"

	"curryhouse/internal/domain"
)

// TransitionPolicy decides which admin status changes are accepted.
type TransitionPolicy string

const (
	// PolicyOpen accepts any valid status from any status.
	PolicyOpen TransitionPolicy = "open"
	// PolicyProgressive only moves forward along pending, confirmed, preparing,
	// ready; cancelled is reachable from pending or confirmed and is final.
	PolicyProgressive TransitionPolicy = "progressive"
)

// ParsePolicy maps a config value to a policy. Empty means open.
func ParsePolicy(v string) (TransitionPolicy, error) {
	switch TransitionPolicy(v) {
	case "", PolicyOpen:
		return PolicyOpen, nil
	case PolicyProgressive:
		return PolicyProgressive, nil
	}
	return "", fmt.Errorf("unknown status policy %q", v)
}

var progression = []domain.OrderStatus{
	domain.StatusPending,
	domain.StatusConfirmed,
	domain.StatusPreparing,
	domain.StatusReady,
}

// allowedFrom lists the statuses an order may hold to move to "to".
// Nil means no restriction.
func (p TransitionPolicy) allowedFrom(to domain.OrderStatus) []domain.OrderStatus {
	if p != PolicyProgressive {
		return nil
	}
	if to == domain.StatusCancelled {
		return []domain.OrderStatus{domain.StatusPending, domain.StatusConfirmed, domain.StatusCancelled}
	}
	for i, s := range progression {
		if s == to {
			return append([]domain.OrderStatus(nil), progression[:i+1]...)
		}
	}
	return nil
}

func contains(list []domain.OrderStatus, s domain.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
