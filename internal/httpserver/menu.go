package httpserver

import (
	"net/http"

	"curryhouse/internal/domain"
	menusvc "curryhouse/internal/service/menu"
	"github.com/gin-gonic/gin"
)

type availabilityRequest struct {
	IsAvailable *bool `json:"isAvailable" binding:"required"`
}

func (h *api) listMenu(c *gin.Context) {
	items, err := h.menu.List(c.Request.Context(), domain.MenuFilter{
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		Search:   c.Query("search"),
	})
	if err != nil {
		h.fail(c, err, "Menu item not found", "Server error while fetching menu items")
		return
	}
	respondList(c, items)
}

func (h *api) menuCategories(c *gin.Context) {
	cats, err := h.menu.Categories(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Category not found", "Server error while fetching categories")
		return
	}
	respondData(c, http.StatusOK, cats)
}

func (h *api) popularMenu(c *gin.Context) {
	items, err := h.menu.Popular(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Menu item not found", "Server error while fetching popular items")
		return
	}
	respondList(c, items)
}

func (h *api) getMenuItem(c *gin.Context) {
	item, err := h.menu.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Menu item not found", "Server error while fetching menu item")
		return
	}
	respondData(c, http.StatusOK, item)
}

func (h *api) createMenuItem(c *gin.Context) {
	var req menusvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	item, err := h.menu.Create(c.Request.Context(), req)
	if err != nil {
		if isDuplicate(err) {
			respondError(c, http.StatusConflict, "A menu item with this name already exists")
			return
		}
		h.fail(c, err, "Menu item not found", "Server error while creating menu item")
		return
	}
	respondMessage(c, http.StatusCreated, "Menu item created", item)
}

func (h *api) setMenuAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "isAvailable is required")
		return
	}
	item, err := h.menu.SetAvailability(c.Request.Context(), c.Param("id"), *req.IsAvailable)
	if err != nil {
		h.fail(c, err, "Menu item not found", "Server error while updating menu item")
		return
	}
	respondData(c, http.StatusOK, item)
}

func (h *api) deleteMenuItem(c *gin.Context) {
	if err := h.menu.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Menu item not found", "Server error while deleting menu item")
		return
	}
	respondMessage(c, http.StatusOK, "Menu item deleted", nil)
}
