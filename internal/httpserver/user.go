package httpserver

import (
	"errors"
	"net/http"

	"curryhouse/internal/domain"
	customersvc "curryhouse/internal/service/customer"
	"github.com/gin-gonic/gin"
)

func (h *api) updateProfile(c *gin.Context) {
	var req customersvc.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	customer, err := h.customers.UpdateProfile(c.Request.Context(), identity(c).CustomerID, req)
	if err != nil {
		h.fail(c, err, "User not found", "Server error while updating profile")
		return
	}
	respondMessage(c, http.StatusOK, "Profile updated successfully", customer)
}

func (h *api) listFavorites(c *gin.Context) {
	items, err := h.customers.Favorites(c.Request.Context(), identity(c).CustomerID)
	if err != nil {
		h.fail(c, err, "User not found", "Server error while fetching favorites")
		return
	}
	respondList(c, items)
}

func (h *api) addFavorite(c *gin.Context) {
	items, err := h.customers.AddFavorite(c.Request.Context(), identity(c).CustomerID, c.Param("menuItemId"))
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			respondError(c, http.StatusBadRequest, "Item already in favorites")
			return
		}
		h.fail(c, err, "Menu item not found", "Server error while adding to favorites")
		return
	}
	respondMessage(c, http.StatusOK, "Item added to favorites", nonNil(items))
}

func (h *api) removeFavorite(c *gin.Context) {
	items, err := h.customers.RemoveFavorite(c.Request.Context(), identity(c).CustomerID, c.Param("menuItemId"))
	if err != nil {
		h.fail(c, err, "Menu item not found", "Server error while removing from favorites")
		return
	}
	respondMessage(c, http.StatusOK, "Item removed from favorites", nonNil(items))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
