package menu

import (
	"context"
	"strings"

	"curryhouse/internal/domain"
	menurepo "curryhouse/internal/repository/menu"
)

const popularLimit = 10

// CategoryAll is the pseudo-category that disables category filtering.
const CategoryAll = "All"

type Service struct {
	repo menurepo.Repository
}

func New(repo menurepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, f domain.MenuFilter) ([]domain.MenuItem, error) {
	f.Category = strings.TrimSpace(f.Category)
	if f.Category == CategoryAll {
		f.Category = ""
	}
	f.Tag = strings.TrimSpace(f.Tag)
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f)
}

// Categories returns "All" followed by every distinct category.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{CategoryAll}, cats...), nil
}

func (s *Service) Popular(ctx context.Context) ([]domain.MenuItem, error) {
	return s.repo.Popular(ctx, popularLimit)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.MenuItem, error) {
	return s.repo.GetByID(ctx, id)
}

// Prices returns the items among ids keyed by id, for server-side re-pricing.
func (s *Service) Prices(ctx context.Context, ids []string) (map[string]domain.MenuItem, error) {
	return s.repo.GetMany(ctx, ids)
}

// CreateInput is the admin payload for a new menu item. Tags may be a
// comma-separated string.
type CreateInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceCents      int64  `json:"price"`
	Category        string `json:"category"`
	Tags            string `json:"tags"`
	Image           string `json:"image"`
	IsPopular       bool   `json:"isPopular"`
	IsVegetarian    bool   `json:"isVegetarian"`
	SpiceLevel      int    `json:"spiceLevel"`
	PreparationTime int    `json:"preparationTime"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.MenuItem, error) {
	item := domain.MenuItem{
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		PriceCents:      in.PriceCents,
		Category:        strings.TrimSpace(in.Category),
		Tags:            SplitTags(in.Tags),
		Image:           strings.TrimSpace(in.Image),
		IsAvailable:     true,
		IsPopular:       in.IsPopular,
		IsVegetarian:    in.IsVegetarian,
		SpiceLevel:      in.SpiceLevel,
		PreparationTime: in.PreparationTime,
	}
	if err := Validate(item); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, item)
}

func (s *Service) SetAvailability(ctx context.Context, id string, available bool) (*domain.MenuItem, error) {
	return s.repo.SetAvailability(ctx, id, available)
}

// Delete removes a menu item for good. Saved favorites of it go with it.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Invalid("menu item id is required")
	}
	return s.repo.Delete(ctx, id)
}

// Validate checks the fields every stored menu item must carry.
func Validate(item domain.MenuItem) error {
	switch {
	case item.Name == "":
		return domain.Invalid("name is required")
	case item.Description == "":
		return domain.Invalid("description is required")
	case item.PriceCents <= 0:
		return domain.Invalid("price must be positive")
	case item.Category == "":
		return domain.Invalid("category is required")
	case item.SpiceLevel < 0 || item.SpiceLevel > 5:
		return domain.Invalid("spiceLevel must be between 0 and 5")
	case item.PreparationTime < 0:
		return domain.Invalid("preparationTime must not be negative")
	}
	return nil
}

// SplitTags turns "a, b,,c" into [a b c].
func SplitTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
