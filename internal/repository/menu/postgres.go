package menu

import (
	"context"
	"errors"
	"fmt"
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

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const itemColumns = `
id::text, name, description, price_cents, category, tags, image, is_available, is_popular,
is_vegetarian, spice_level, preparation_time, created_at`

func (r *postgresRepo) List(ctx context.Context, f domain.MenuFilter) ([]domain.MenuItem, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" && f.Category != "All" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Tag != "" {
		args = append(args, f.Tag)
		where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	q := `SELECT` + itemColumns + ` FROM menu_items`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY is_popular DESC, created_at DESC`

	items, err := r.list(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	r.logger.Printf("menu repo: list category=%q tag=%q search=%q count=%d", f.Category, f.Tag, f.Search, len(items))
	return items, nil
}

func (r *postgresRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM menu_items ORDER BY category`)
	if err != nil {
		r.logger.Printf("menu repo: categories error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Popular(ctx context.Context, limit int) ([]domain.MenuItem, error) {
	q := `SELECT` + itemColumns + ` FROM menu_items WHERE is_popular ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, q, limit)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	q := `SELECT` + itemColumns + ` FROM menu_items WHERE id = $1`
	return r.scanItem(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetMany(ctx context.Context, ids []string) (map[string]domain.MenuItem, error) {
	out := make(map[string]domain.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := `SELECT` + itemColumns + ` FROM menu_items WHERE id::text = ANY($1::text[])`
	items, err := r.list(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (r *postgresRepo) Create(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	q := `
INSERT INTO menu_items (name, description, price_cents, category, tags, image, is_available, is_popular, is_vegetarian, spice_level, preparation_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING` + itemColumns
	return r.scanItem(r.pool.QueryRow(ctx, q, itemArgs(item)...))
}

func (r *postgresRepo) Upsert(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	q := `
INSERT INTO menu_items (name, description, price_cents, category, tags, image, is_available, is_popular, is_vegetarian, spice_level, preparation_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (name) DO UPDATE
SET description = EXCLUDED.description,
    price_cents = EXCLUDED.price_cents,
    category = EXCLUDED.category,
    tags = EXCLUDED.tags,
    image = EXCLUDED.image,
    is_available = EXCLUDED.is_available,
    is_popular = EXCLUDED.is_popular,
    is_vegetarian = EXCLUDED.is_vegetarian,
    spice_level = EXCLUDED.spice_level,
    preparation_time = EXCLUDED.preparation_time
RETURNING` + itemColumns
	saved, err := r.scanItem(r.pool.QueryRow(ctx, q, itemArgs(item)...))
	if err != nil {
		return nil, err
	}
	r.logger.Printf("menu repo: upsert name=%q id=%s", saved.Name, saved.ID)
	return saved, nil
}

func (r *postgresRepo) SetAvailability(ctx context.Context, id string, available bool) (*domain.MenuItem, error) {
	q := `UPDATE menu_items SET is_available = $2 WHERE id = $1 RETURNING` + itemColumns
	return r.scanItem(r.pool.QueryRow(ctx, q, id, available))
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id::text = $1`, id)
	if err != nil {
		r.logger.Printf("menu repo: delete id=%s error=%v", id, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Printf("menu repo: deleted id=%s", id)
	return nil
}

func itemArgs(item domain.MenuItem) []any {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		item.Name,
		item.Description,
		item.PriceCents,
		item.Category,
		tags,
		item.Image,
		item.IsAvailable,
		item.IsPopular,
		item.IsVegetarian,
		item.SpiceLevel,
		item.PreparationTime,
	}
}

func (r *postgresRepo) list(ctx context.Context, q string, args ...any) ([]domain.MenuItem, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("menu repo: query error=%v", err)
		return nil, err
	}
	defer rows.Close()

	result := []domain.MenuItem{}
	for rows.Next() {
		it, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) scanItem(row pgx.Row) (*domain.MenuItem, error) {
	var it domain.MenuItem
	err := row.Scan(
		&it.ID,
		&it.Name,
		&it.Description,
		&it.PriceCents,
		&it.Category,
		&it.Tags,
		&it.Image,
		&it.IsAvailable,
		&it.IsPopular,
		&it.IsVegetarian,
		&it.SpiceLevel,
		&it.PreparationTime,
		&it.CreatedAt,
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
		r.logger.Printf("menu repo: scan error=%v", err)
		return nil, err
	}
	if it.Tags == nil {
		it.Tags = []string{}
	}
	return &it, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
