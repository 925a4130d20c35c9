package handler

import (
	"errors"
	"net/http"
	"strconv"

	"velour/internal/service"
	"velour/pkg/gateway"

	"github.com/gin-gonic/gin"
)

// respondError maps service and gateway errors onto HTTP statuses. Unmapped
// errors become an opaque 500; details stay in the logs.
func respondError(c *gin.Context, err error) {
	switch {
	case service.NotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrPayableNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "payable does not exist"})
	case errors.Is(err, service.ErrOwnershipMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrNotRefundable):
		c.JSON(http.StatusConflict, gin.H{"error": "payment has no captured charge to refund"})
	case errors.Is(err, gateway.ErrUnknownDriver):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown payment gateway"})
	case errors.Is(err, gateway.ErrCapabilityUnsupported):
		c.JSON(http.StatusBadRequest, gin.H{"error": "gateway does not support this operation"})
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
	default:
		if rej, ok := gateway.IsRejected(err); ok {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": rej.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(n), true
}
