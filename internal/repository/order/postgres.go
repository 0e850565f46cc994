package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"

	"curryhouse/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `
id::text, order_number, customer_id::text, lines, extras, extras_total_cents, total_amount_cents,
delivery_type, delivery_address, payment_method, payment_status, status, special_instructions,
estimated_minutes, created_at, updated_at`

func (r *postgresRepo) NextSequence(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n); err != nil {
		r.logger.Printf("order repo: nextval error=%v", err)
		return 0, err
	}
	return n, nil
}

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	linesJSON, err := json.Marshal(nonNilLines(o.Lines))
	if err != nil {
		return nil, err
	}
	extrasJSON, err := json.Marshal(nonNilExtras(o.Extras))
	if err != nil {
		return nil, err
	}
	var addrJSON []byte
	if o.DeliveryAddress != nil {
		if addrJSON, err = json.Marshal(o.DeliveryAddress); err != nil {
			return nil, err
		}
	}

	q := `
INSERT INTO orders (
    order_number, customer_id, lines, extras, extras_total_cents, total_amount_cents,
    delivery_type, delivery_address, payment_method, payment_status, status,
    special_instructions, estimated_minutes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING` + orderColumns
	created, err := r.scanOrder(r.pool.QueryRow(ctx, q,
		o.OrderNumber,
		o.CustomerID,
		linesJSON,
		extrasJSON,
		o.ExtrasTotalCents,
		o.TotalAmountCents,
		string(o.DeliveryType),
		addrJSON,
		string(o.PaymentMethod),
		string(o.PaymentStatus),
		string(o.Status),
		o.SpecialInstructions,
		o.EstimatedDeliveryMinutes,
	))
	if err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: created id=%s number=%s customer=%s", created.ID, created.OrderNumber, created.CustomerID)
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	q := `SELECT` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOrder(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetForCustomer(ctx context.Context, customerID, id string) (*domain.Order, error) {
	q := `SELECT` + orderColumns + ` FROM orders WHERE id = $1 AND customer_id = $2`
	return r.scanOrder(r.pool.QueryRow(ctx, q, id, customerID))
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	q := `SELECT` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, q, customerID)
}

func (r *postgresRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	q := `SELECT` + orderColumns + ` FROM orders ORDER BY created_at DESC`
	return r.list(ctx, q)
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, to domain.OrderStatus, allowedFrom ...domain.OrderStatus) (*domain.Order, error) {
	from := make([]string, 0, len(allowedFrom))
	for _, s := range allowedFrom {
		from = append(from, string(s))
	}

	q := `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND (cardinality($3::text[]) = 0 OR status = ANY($3::text[]))
RETURNING` + orderColumns
	updated, err := r.scanOrder(r.pool.QueryRow(ctx, q, id, string(to), from))
	if err == nil {
		r.logger.Printf("order repo: status id=%s status=%s", id, to)
		return updated, nil
	}
	if !errors.Is(err, domain.ErrNotFound) || len(from) == 0 {
		return nil, err
	}

	// nothing matched: either the order is gone or its status moved on
	var current string
	err = r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	r.logger.Printf("order repo: status conflict id=%s current=%s wanted=%s", id, current, to)
	return nil, domain.ErrConflict
}

func (r *postgresRepo) list(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	result := []domain.Order{}
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("order repo: list rows error=%v", err)
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                               domain.Order
		linesJSON, extrasJSON, addrJSON []byte
		delivery, payment, paid, status string
	)
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&linesJSON,
		&extrasJSON,
		&o.ExtrasTotalCents,
		&o.TotalAmountCents,
		&delivery,
		&addrJSON,
		&payment,
		&paid,
		&status,
		&o.SpecialInstructions,
		&o.EstimatedDeliveryMinutes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, domain.ErrAlreadyExists
			case "22P02":
				// malformed uuid in the id parameter
				return nil, domain.ErrNotFound
			}
		}
		r.logger.Printf("order repo: scan error=%v", err)
		return nil, err
	}
	o.DeliveryType = domain.DeliveryType(delivery)
	o.PaymentMethod = domain.PaymentMethod(payment)
	o.PaymentStatus = domain.PaymentStatus(paid)
	o.Status = domain.OrderStatus(status)

	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		r.logger.Printf("order repo: decode lines id=%s err=%v", o.ID, err)
		return nil, err
	}
	if len(extrasJSON) > 0 {
		if err := json.Unmarshal(extrasJSON, &o.Extras); err != nil {
			r.logger.Printf("order repo: decode extras id=%s err=%v", o.ID, err)
			return nil, err
		}
	}
	if len(addrJSON) > 0 {
		var addr domain.DeliveryAddress
		if err := json.Unmarshal(addrJSON, &addr); err != nil {
			r.logger.Printf("order repo: decode address id=%s err=%v", o.ID, err)
			return nil, err
		}
		o.DeliveryAddress = &addr
	}
	o.Lines = nonNilLines(o.Lines)
	o.Extras = nonNilExtras(o.Extras)
	return &o, nil
}

func nonNilLines(l []domain.OrderLine) []domain.OrderLine {
	if l == nil {
		return []domain.OrderLine{}
	}
	return l
}

func nonNilExtras(e []domain.OrderExtra) []domain.OrderExtra {
	if e == nil {
		return []domain.OrderExtra{}
	}
	return e
}
