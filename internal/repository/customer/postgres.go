package customer

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

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

const customerColumns = `id::text, name, email, phone, password_hash, role, created_at`

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	role := c.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	const q = `
INSERT INTO customers (name, email, phone, password_hash, role)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + customerColumns
	return r.scanCustomer(r.pool.QueryRow(ctx, q,
		c.Name,
		strings.ToLower(c.Email),
		c.Phone,
		c.PasswordHash,
		role,
	))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE lower(email) = lower($1) LIMIT 1`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, email))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 LIMIT 1`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetMany(ctx context.Context, ids []string) (map[string]domain.Customer, error) {
	out := make(map[string]domain.Customer, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE id::text = ANY($1::text[])`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		r.logger.Printf("customer repo: get many count=%d error=%v", len(ids), err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		c, err := r.scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = *c
	}
	return out, rows.Err()
}

func (r *postgresRepo) UpdateProfile(ctx context.Context, id, name, phone string) (*domain.Customer, error) {
	const q = `
UPDATE customers SET name = $2, phone = $3
WHERE id = $1
RETURNING ` + customerColumns
	c, err := r.scanCustomer(r.pool.QueryRow(ctx, q, id, name, phone))
	if err != nil {
		return nil, err
	}
	r.logger.Printf("customer repo: profile updated id=%s", c.ID)
	return c, nil
}

func (r *postgresRepo) AddFavorite(ctx context.Context, customerID, menuItemID string) error {
	const q = `INSERT INTO customer_favorites (customer_id, menu_item_id) VALUES ($1, $2)`
	if _, err := r.pool.Exec(ctx, q, customerID, menuItemID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return domain.ErrAlreadyExists
			case "23503", "22P02":
				// unknown or malformed menu item id
				return domain.ErrNotFound
			}
		}
		r.logger.Printf("customer repo: add favorite customer=%s item=%s error=%v", customerID, menuItemID, err)
		return err
	}
	return nil
}

func (r *postgresRepo) RemoveFavorite(ctx context.Context, customerID, menuItemID string) error {
	const q = `DELETE FROM customer_favorites WHERE customer_id = $1 AND menu_item_id::text = $2`
	if _, err := r.pool.Exec(ctx, q, customerID, menuItemID); err != nil {
		r.logger.Printf("customer repo: remove favorite customer=%s item=%s error=%v", customerID, menuItemID, err)
		return err
	}
	return nil
}

func (r *postgresRepo) FavoriteIDs(ctx context.Context, customerID string) ([]string, error) {
	const q = `
SELECT menu_item_id::text FROM customer_favorites
WHERE customer_id = $1
ORDER BY created_at, menu_item_id`
	rows, err := r.pool.Query(ctx, q, customerID)
	if err != nil {
		r.logger.Printf("customer repo: favorites customer=%s error=%v", customerID, err)
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.PasswordHash,
		&c.Role,
		&c.CreatedAt,
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
				return nil, domain.ErrNotFound
			}
		}
		r.logger.Printf("customer repo: scan error=%v", err)
		return nil, err
	}
	return &c, nil
}
