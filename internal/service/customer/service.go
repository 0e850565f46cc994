package customer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"curryhouse/internal/domain"
	custrepo "curryhouse/internal/repository/customer"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
)

// MenuLookup resolves saved favorites to menu items.
type MenuLookup interface {
	GetMany(ctx context.Context, ids []string) (map[string]domain.MenuItem, error)
}

var phonePattern = regexp.MustCompile(`^[0-9]{8,15}$`)

// Identity is what a verified access token says about the caller.
type Identity struct {
	CustomerID string
	Role       string
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}

// Service handles customer signup/login flows.
type Service struct {
	repo        custrepo.Repository
	menu        MenuLookup
	tokens      *tokenManager
	passwordMin int
}

// New creates a Service signing HS256 tokens with secret.
func New(repo custrepo.Repository, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(secret, ttl),
		passwordMin: 6,
	}
}

// WithMenu sets the lookup used to resolve favorites and returns s.
func (s *Service) WithMenu(menu MenuLookup) *Service {
	s.menu = menu
	return s
}

// SignupInput captures fields expected by the register endpoint.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Signup registers a customer and returns an access token for them.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.Customer, string, error) {
	c, err := s.create(ctx, in, domain.RoleCustomer)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(*c)
	if err != nil {
		return nil, "", err
	}
	return c, token, nil
}

// CreateStaff registers an admin account. It is not reachable over HTTP.
func (s *Service) CreateStaff(ctx context.Context, in SignupInput) (*domain.Customer, error) {
	return s.create(ctx, in, domain.RoleAdmin)
}

func (s *Service) create(ctx context.Context, in SignupInput, role string) (*domain.Customer, error) {
	name := strings.TrimSpace(in.Name)
	if len([]rune(name)) < 2 {
		return nil, domain.Invalid("name must be at least 2 characters")
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, domain.Invalid("valid email required")
	}
	phone := strings.TrimSpace(in.Phone)
	if !phonePattern.MatchString(phone) {
		return nil, domain.Invalid("phone must be 8-15 digits")
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, domain.Customer{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hashed),
		Role:         role,
	})
}

// Login validates credentials and returns the customer with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Customer, string, error) {
	password = strings.TrimSpace(password)
	c, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(*c)
	if err != nil {
		return nil, "", err
	}
	return c, token, nil
}

// Authenticate verifies an access token without touching the store.
func (s *Service) Authenticate(token string) (Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{CustomerID: claims.Subject, Role: claims.Role}, nil
}

// Me loads the customer behind a verified identity.
func (s *Service) Me(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return c, nil
}

// ProfileInput holds profile changes. Blank fields are left unchanged.
type ProfileInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UpdateProfile changes the caller's name and/or phone.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*domain.Customer, error) {
	current, err := s.Me(ctx, id)
	if err != nil {
		return nil, err
	}
	name, phone := current.Name, current.Phone
	if v := strings.TrimSpace(in.Name); v != "" {
		if len([]rune(v)) < 2 {
			return nil, domain.Invalid("name must be at least 2 characters")
		}
		name = v
	}
	if v := strings.TrimSpace(in.Phone); v != "" {
		if !phonePattern.MatchString(v) {
			return nil, domain.Invalid("phone must be 8-15 digits")
		}
		phone = v
	}
	if name == current.Name && phone == current.Phone {
		return current, nil
	}
	updated, err := s.repo.UpdateProfile(ctx, id, name, phone)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return updated, err
}

// Favorites returns the caller's saved menu items, oldest first. Items that
// no longer exist are skipped.
func (s *Service) Favorites(ctx context.Context, id string) ([]domain.MenuItem, error) {
	ids, err := s.repo.FavoriteIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MenuItem, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	if s.menu == nil {
		return nil, errors.New("customer: menu lookup not configured")
	}
	items, err := s.menu.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load favorite items: %w", err)
	}
	for _, itemID := range ids {
		if it, ok := items[itemID]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// AddFavorite saves menuItemID for the caller and returns the updated list.
// A repeat add returns domain.ErrAlreadyExists.
func (s *Service) AddFavorite(ctx context.Context, id, menuItemID string) ([]domain.MenuItem, error) {
	menuItemID = strings.TrimSpace(menuItemID)
	if menuItemID == "" {
		return nil, domain.Invalid("menu item id is required")
	}
	if err := s.repo.AddFavorite(ctx, id, menuItemID); err != nil {
		return nil, err
	}
	return s.Favorites(ctx, id)
}

// RemoveFavorite drops menuItemID from the caller's list and returns the rest.
func (s *Service) RemoveFavorite(ctx context.Context, id, menuItemID string) ([]domain.MenuItem, error) {
	if err := s.repo.RemoveFavorite(ctx, id, strings.TrimSpace(menuItemID)); err != nil {
		return nil, err
	}
	return s.Favorites(ctx, id)
}

func validatePassword(pass string, minLen int) error {
	if len(pass) < minLen {
		return domain.Invalid(fmt.Sprintf("password must be at least %d characters", minLen))
	}
	return nil
}
