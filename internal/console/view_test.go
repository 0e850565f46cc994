package console

import (
	"testing"
	"time"

	"curryhouse/internal/domain"
)

func TestFilter_StatusAndSearch(t *testing.T) {
	orders := []domain.Order{
		{ID: "1", OrderNumber: "M-1001", Status: domain.StatusPending, Customer: &domain.CustomerSummary{Name: "Kari Nordmann", Email: "kari@example.no"}},
		{ID: "2", OrderNumber: "M-1002", Status: domain.StatusReady, Customer: &domain.CustomerSummary{Name: "Ola", Phone: "98765432"}},
		{ID: "3", OrderNumber: "M-1003", Status: domain.StatusPending},
	}

	if got := Filter(orders, domain.StatusPending, ""); len(got) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(got))
	}
	if got := Filter(orders, "", "KARI"); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("unexpected search result %+v", got)
	}
	if got := Filter(orders, "", "9876"); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected phone match, got %+v", got)
	}
	if got := Filter(orders, domain.StatusReady, "1003"); len(got) != 0 {
		t.Fatalf("expected no match, got %+v", got)
	}
}

func TestInProgress_OldestFirst(t *testing.T) {
	now := time.Now()
	orders := []domain.Order{
		{ID: "new", Status: domain.StatusPending, CreatedAt: now},
		{ID: "done", Status: domain.StatusReady, CreatedAt: now.Add(-time.Hour)},
		{ID: "old", Status: domain.StatusPreparing, CreatedAt: now.Add(-time.Minute)},
	}
	got := InProgress(orders)
	if len(got) != 2 || got[0].ID != "old" || got[1].ID != "new" {
		t.Fatalf("unexpected in-progress list %+v", got)
	}
	if Counts(orders)[domain.StatusPending] != 1 {
		t.Fatalf("unexpected counts %v", Counts(orders))
	}
}
