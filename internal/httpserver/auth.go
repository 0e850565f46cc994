package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"curryhouse/internal/domain"
	customersvc "curryhouse/internal/service/customer"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string           `json:"token"`
	User  *domain.Customer `json:"user"`
}

func (h *api) register(c *gin.Context) {
	var req customersvc.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	customer, token, err := h.customers.Signup(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			respondError(c, http.StatusConflict, "User already exists with this email")
			return
		}
		h.fail(c, err, "User not found", "Server error during registration")
		return
	}
	respondMessage(c, http.StatusCreated, "User registered successfully", authResponse{Token: token, User: customer})
}

func (h *api) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Email and password are required")
		return
	}
	customer, token, err := h.customers.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err, "Invalid credentials", "Server error during login")
		return
	}
	respondMessage(c, http.StatusOK, "Login successful", authResponse{Token: token, User: customer})
}

func (h *api) me(c *gin.Context) {
	customer, err := h.customers.Me(c.Request.Context(), identity(c).CustomerID)
	if err != nil {
		h.fail(c, err, "User not found", "Server error")
		return
	}
	respondData(c, http.StatusOK, customer)
}

// requireAuth verifies the bearer token and stores the caller's identity.
func requireAuth(svc CustomerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(c, http.StatusUnauthorized, "No token, authorization denied")
			return
		}
		id, err := svc.Authenticate(strings.TrimSpace(token))
		if err != nil {
			respondError(c, http.StatusUnauthorized, "Token is not valid")
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// requireAdmin must run after requireAuth.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(identityKey)
		if !exists {
			respondError(c, http.StatusUnauthorized, "User not found in context")
			return
		}
		if id, ok := v.(customersvc.Identity); !ok || !id.IsAdmin() {
			respondError(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) customersvc.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(customersvc.Identity)
	return id
}
