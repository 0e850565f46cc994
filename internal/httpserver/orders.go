package httpserver

import (
	"errors"
	"net/http"

	"curryhouse/internal/domain"
	"github.com/gin-gonic/gin"
)

func (h *api) createOrder(c *gin.Context) {
	var req domain.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	order, err := h.orders.Create(c.Request.Context(), identity(c).CustomerID, req)
	if err != nil {
		h.fail(c, err, "Menu item not found", "Server error while creating order")
		return
	}
	respondMessage(c, http.StatusCreated, "Order placed successfully", order)
}

func (h *api) listOrders(c *gin.Context) {
	orders, err := h.orders.ListForCustomer(c.Request.Context(), identity(c).CustomerID)
	if err != nil {
		h.fail(c, err, "Order not found", "Server error while fetching orders")
		return
	}
	respondList(c, orders)
}

func (h *api) getOrder(c *gin.Context) {
	order, err := h.orders.GetForCustomer(c.Request.Context(), identity(c).CustomerID, c.Param("id"))
	if err != nil {
		h.fail(c, err, "Order not found", "Server error while fetching order")
		return
	}
	respondData(c, http.StatusOK, order)
}

func (h *api) cancelOrder(c *gin.Context) {
	order, err := h.orders.Cancel(c.Request.Context(), identity(c).CustomerID, c.Param("id"))
	if err != nil {
		h.fail(c, err, "Order not found", "Server error while cancelling order")
		return
	}
	respondMessage(c, http.StatusOK, "Order cancelled successfully", order)
}

func (h *api) listAllOrders(c *gin.Context) {
	orders, err := h.orders.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Order not found", "Server error while fetching orders")
		return
	}
	respondList(c, orders)
}

func (h *api) updateOrderStatus(c *gin.Context) {
	var req domain.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Status is required")
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err, "Order not found", "Server error while updating order status")
		return
	}
	respondMessage(c, http.StatusOK, "Order status updated", order)
}

func isDuplicate(err error) bool {
	return errors.Is(err, domain.ErrAlreadyExists)
}
