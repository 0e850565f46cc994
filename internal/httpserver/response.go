package httpserver

import (
	"errors"
	"net/http"

	"curryhouse/internal/domain"
	customersvc "curryhouse/internal/service/customer"
	ordersvc "curryhouse/internal/service/order"
	"github.com/gin-gonic/gin"
)

func respondData(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

func respondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
}

func respondMessage(c *gin.Context, code int, msg string, data any) {
	body := gin.H{"success": true, "message": msg}
	if data != nil {
		body["data"] = data
	}
	c.JSON(code, body)
}

func respondError(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"success": false, "message": msg})
}

// fail maps a service error onto the failure envelope. notFound is the message
// for domain.ErrNotFound, fallback the message for anything unexpected.
func (h *api) fail(c *gin.Context, err error, notFound, fallback string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, verr.Message)
	case errors.Is(err, domain.ErrNotFound):
		respondError(c, http.StatusNotFound, notFound)
	case errors.Is(err, ordersvc.ErrCannotCancel):
		respondError(c, http.StatusBadRequest, "Cannot cancel order at this stage")
	case errors.Is(err, ordersvc.ErrInvalidTransition):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		respondError(c, http.StatusConflict, "Resource was modified concurrently")
	case errors.Is(err, customersvc.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, customersvc.ErrInvalidToken):
		respondError(c, http.StatusUnauthorized, "Token is not valid")
	default:
		h.logger.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
