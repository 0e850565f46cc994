package customer

import (
	"context"

	"curryhouse/internal/domain"
)

// Repository persists and fetches customers.
type Repository interface {
	Create(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	// GetMany returns the customers found among ids keyed by id; unknown ids are skipped.
	GetMany(ctx context.Context, ids []string) (map[string]domain.Customer, error)
	UpdateProfile(ctx context.Context, id, name, phone string) (*domain.Customer, error)

	// AddFavorite returns domain.ErrAlreadyExists when the item is already saved
	// and domain.ErrNotFound when the menu item does not exist.
	AddFavorite(ctx context.Context, customerID, menuItemID string) error
	// RemoveFavorite is a no-op for items that are not saved.
	RemoveFavorite(ctx context.Context, customerID, menuItemID string) error
	// FavoriteIDs returns saved menu item ids, oldest first.
	FavoriteIDs(ctx context.Context, customerID string) ([]string, error)
}
