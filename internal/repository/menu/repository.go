package menu

import (
	"context"

	"curryhouse/internal/domain"
)

// Repository persists menu items.
type Repository interface {
	// List returns items matching f, popular first then newest.
	List(ctx context.Context, f domain.MenuFilter) ([]domain.MenuItem, error)
	Categories(ctx context.Context) ([]string, error)
	Popular(ctx context.Context, limit int) ([]domain.MenuItem, error)
	GetByID(ctx context.Context, id string) (*domain.MenuItem, error)
	// GetMany returns the items found among ids keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]domain.MenuItem, error)
	Create(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	// Upsert inserts or updates by item name.
	Upsert(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	SetAvailability(ctx context.Context, id string, available bool) (*domain.MenuItem, error)
	// Delete removes an item; placed orders keep their own copy of its name and price.
	Delete(ctx context.Context, id string) error
}
