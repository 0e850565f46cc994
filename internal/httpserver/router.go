package httpserver

import (
	"context"
	"errors"
	"log"
	"time"

	"curryhouse/internal/domain"
	customersvc "curryhouse/internal/service/customer"
	menusvc "curryhouse/internal/service/menu"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerService is the auth and account surface used by the handlers.
type CustomerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, string, error)
	Login(ctx context.Context, email, password string) (*domain.Customer, string, error)
	Authenticate(token string) (customersvc.Identity, error)
	Me(ctx context.Context, id string) (*domain.Customer, error)
	UpdateProfile(ctx context.Context, id string, in customersvc.ProfileInput) (*domain.Customer, error)
	Favorites(ctx context.Context, id string) ([]domain.MenuItem, error)
	AddFavorite(ctx context.Context, id, menuItemID string) ([]domain.MenuItem, error)
	RemoveFavorite(ctx context.Context, id, menuItemID string) ([]domain.MenuItem, error)
}

type MenuService interface {
	List(ctx context.Context, f domain.MenuFilter) ([]domain.MenuItem, error)
	Categories(ctx context.Context) ([]string, error)
	Popular(ctx context.Context) ([]domain.MenuItem, error)
	Get(ctx context.Context, id string) (*domain.MenuItem, error)
	Create(ctx context.Context, in menusvc.CreateInput) (*domain.MenuItem, error)
	SetAvailability(ctx context.Context, id string, available bool) (*domain.MenuItem, error)
	Delete(ctx context.Context, id string) error
}

type OrderService interface {
	Create(ctx context.Context, customerID string, req domain.PlaceOrderRequest) (*domain.Order, error)
	ListForCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	GetForCustomer(ctx context.Context, customerID, id string) (*domain.Order, error)
	Cancel(ctx context.Context, customerID, id string) (*domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

// Deps carries the services behind the API routes.
type Deps struct {
	CustomerSvc CustomerService
	MenuSvc     MenuService
	OrderSvc    OrderService
	// CORSOrigins enables CORS for the admin dashboard when non-empty.
	CORSOrigins []string
}

type api struct {
	logger    *log.Logger
	customers CustomerService
	menu      MenuService
	orders    OrderService
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.CustomerSvc == nil || deps.MenuSvc == nil || deps.OrderSvc == nil {
		return nil, errors.New("httpserver: customer, menu and order services are required")
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &api{logger: logger, customers: deps.CustomerSvc, menu: deps.MenuSvc, orders: deps.OrderSvc}
	authn := requireAuth(deps.CustomerSvc)
	admin := requireAdmin()

	v1 := router.Group("/api")

	auth := v1.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.GET("/me", authn, h.me)

	user := v1.Group("/user", authn)
	user.PUT("/profile", h.updateProfile)
	user.GET("/favorites", h.listFavorites)
	user.POST("/favorites/:menuItemId", h.addFavorite)
	user.DELETE("/favorites/:menuItemId", h.removeFavorite)

	menu := v1.Group("/menu")
	menu.GET("", h.listMenu)
	menu.GET("/categories", h.menuCategories)
	menu.GET("/popular/items", h.popularMenu)
	menu.GET("/:id", h.getMenuItem)
	menu.POST("/admin", authn, admin, h.createMenuItem)
	menu.PATCH("/admin/:id/availability", authn, admin, h.setMenuAvailability)
	menu.DELETE("/admin/:id", authn, admin, h.deleteMenuItem)

	orders := v1.Group("/orders", authn)
	orders.POST("", h.createOrder)
	orders.GET("", h.listOrders)
	orders.GET("/admin/all", admin, h.listAllOrders)
	orders.PATCH("/admin/:id/status", admin, h.updateOrderStatus)
	orders.GET("/:id", h.getOrder)
	orders.PATCH("/:id/cancel", h.cancelOrder)

	return router, nil
}
