package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/pkg/errors"
)

// respondError maps a typed error to an HTTP status and JSON body
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	switch e := err.(type) {
	case *errors.ErrValidation:
		c.JSON(http.StatusBadRequest, gin.H{"message": e.Message})
	case *errors.ErrForbidden:
		c.JSON(http.StatusForbidden, gin.H{"message": e.Message})
	case *errors.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"message": e.Error()})
	case *errors.ErrAlreadyCancelled:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Order is already cancelled"})
	case *errors.ErrInvalidStateTransition:
		c.JSON(http.StatusBadRequest, gin.H{"message": e.Error()})
	case *errors.ErrRefund:
		c.JSON(http.StatusBadRequest, gin.H{"message": e.Error()})
	case *errors.ErrGateway:
		logger.Error("Gateway error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Payment gateway error. Please try again later."})
	default:
		logger.Error("Internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
	}
}
