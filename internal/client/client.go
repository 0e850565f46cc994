// Package client talks to the ordering API over HTTP and unwraps its response envelope.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"curryhouse/internal/domain"
	"github.com/go-resty/resty/v2"
)

// APIError is a non-success response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// Client is a thin typed wrapper over the REST surface.
type Client struct {
	http *resty.Client
}

// New returns a Client rooted at baseURL (for example http://localhost:8080/api).
func New(baseURL string) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	return &Client{http: r}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token    string          `json:"token"`
	Customer domain.Customer `json:"user"`
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register creates an account and adopts the returned token.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	res, err := do[AuthResult](ctx, c, http.MethodPost, "/auth/register", in)
	if err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

// Login authenticates and adopts the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	res, err := do[AuthResult](ctx, c, http.MethodPost, "/auth/login", body)
	if err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

// UpdateProfile changes the caller's name and phone. Blank values are left as
// they are.
func (c *Client) UpdateProfile(ctx context.Context, name, phone string) (*domain.Customer, error) {
	body := map[string]string{"name": name, "phone": phone}
	cu, err := do[domain.Customer](ctx, c, http.MethodPut, "/user/profile", body)
	if err != nil {
		return nil, err
	}
	return &cu, nil
}

func (c *Client) Favorites(ctx context.Context) ([]domain.MenuItem, error) {
	return do[[]domain.MenuItem](ctx, c, http.MethodGet, "/user/favorites", nil)
}

// AddFavorite saves a menu item and returns the updated favorites.
func (c *Client) AddFavorite(ctx context.Context, menuItemID string) ([]domain.MenuItem, error) {
	return do[[]domain.MenuItem](ctx, c, http.MethodPost, "/user/favorites/"+url.PathEscape(menuItemID), nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, menuItemID string) ([]domain.MenuItem, error) {
	return do[[]domain.MenuItem](ctx, c, http.MethodDelete, "/user/favorites/"+url.PathEscape(menuItemID), nil)
}

func (c *Client) Menu(ctx context.Context, f domain.MenuFilter) ([]domain.MenuItem, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	path := "/menu"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return do[[]domain.MenuItem](ctx, c, http.MethodGet, path, nil)
}

func (c *Client) MenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	item, err := do[domain.MenuItem](ctx, c, http.MethodGet, "/menu/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) CreateOrder(ctx context.Context, req domain.PlaceOrderRequest) (*domain.Order, error) {
	return doOrder(ctx, c, http.MethodPost, "/orders", req)
}

// ListOrders returns the caller's orders, newest first.
func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return do[[]domain.Order](ctx, c, http.MethodGet, "/orders", nil)
}

func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return doOrder(ctx, c, http.MethodGet, "/orders/"+url.PathEscape(id), nil)
}

func (c *Client) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	return doOrder(ctx, c, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/cancel", nil)
}

// ListAllOrders is the admin view of every order.
func (c *Client) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	return do[[]domain.Order](ctx, c, http.MethodGet, "/orders/admin/all", nil)
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	body := domain.StatusUpdateRequest{Status: status}
	return doOrder(ctx, c, http.MethodPatch, "/orders/admin/"+url.PathEscape(id)+"/status", body)
}

func doOrder(ctx context.Context, c *Client, method, path string, body any) (*domain.Order, error) {
	o, err := do[domain.Order](ctx, c, method, path, body)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func do[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var (
		zero T
		ok   envelope[T]
		fail envelope[json.RawMessage]
	)
	req := c.http.R().SetContext(ctx).SetResult(&ok).SetError(&fail)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		msg := fail.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return zero, &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	if !ok.Success {
		return zero, &APIError{StatusCode: resp.StatusCode(), Message: ok.Message}
	}
	return ok.Data, nil
}
