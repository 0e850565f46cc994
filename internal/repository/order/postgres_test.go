package order

import (
	"context"
	"errors"
	"os"
	"testing"

	"curryhouse/internal/domain"
	"curryhouse/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_CreateListAndCancelGuard(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if _, err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)
	customerID := insertCustomer(ctx, t, pool, "kari@example.no")

	repo := NewPostgres(pool, nil)
	seq, err := repo.NextSequence(ctx)
	if err != nil {
		t.Fatalf("next sequence: %v", err)
	}
	if seq < 1001 {
		t.Fatalf("expected sequence to start at 1001, got %d", seq)
	}

	created, err := repo.Create(ctx, sampleOrder(customerID, "M-1001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Status != domain.StatusPending || len(created.Lines) != 1 {
		t.Fatalf("unexpected order %+v", created)
	}
	if created.DeliveryAddress == nil || created.DeliveryAddress.City != "Oslo" {
		t.Fatalf("expected address round-trip, got %+v", created.DeliveryAddress)
	}

	if _, err := repo.Create(ctx, sampleOrder(customerID, "M-1001")); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on duplicate number, got %v", err)
	}

	list, err := repo.ListByCustomer(ctx, customerID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list by customer: %v len=%d", err, len(list))
	}
	if _, err := repo.GetForCustomer(ctx, "00000000-0000-0000-0000-000000000000", created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign customer, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}

	if _, err := repo.UpdateStatus(ctx, created.ID, domain.StatusPreparing); err != nil {
		t.Fatalf("update status: %v", err)
	}
	_, err = repo.UpdateStatus(ctx, created.ID, domain.StatusCancelled, domain.StatusPending, domain.StatusConfirmed)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict cancelling preparing order, got %v", err)
	}
	got, err := repo.GetByID(ctx, created.ID)
	if err != nil || got.Status != domain.StatusPreparing {
		t.Fatalf("expected status unchanged, got %+v err=%v", got, err)
	}
}

func sampleOrder(customerID, number string) domain.Order {
	return domain.Order{
		OrderNumber:              number,
		CustomerID:               customerID,
		Lines:                    []domain.OrderLine{{MenuItemID: "m1", Name: "Lamb Biryani", UnitPriceCents: 24900, Quantity: 1, SubtotalCents: 24900}},
		Extras:                   []domain.OrderExtra{{ID: "garlic-naan", Name: "Garlic Naan", UnitPriceCents: 4500, Quantity: 1, SubtotalCents: 4500}},
		ExtrasTotalCents:         4500,
		TotalAmountCents:         29400,
		DeliveryType:             domain.DeliveryTypeDelivery,
		DeliveryAddress:          &domain.DeliveryAddress{Street: "Karl Johans gate 1", City: "Oslo", PostalCode: "0154", Country: "Norway"},
		PaymentMethod:            domain.PaymentVipps,
		PaymentStatus:            domain.PaymentStatusPending,
		Status:                   domain.StatusPending,
		EstimatedDeliveryMinutes: domain.DefaultEstimatedMinutes,
	}
}

func insertCustomer(ctx context.Context, t *testing.T, pool *pgxpool.Pool, email string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO customers (name, email, phone, password_hash)
		VALUES ('Kari', $1, '98765432', 'x')
		RETURNING id::text
	`, email).Scan(&id)
	if err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	return id
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE orders, menu_items, customers RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
