package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/api/middleware"
	"github.com/deshikart/shopapi/internal/repository"
	"github.com/deshikart/shopapi/internal/service"
)

// HandleCreateCheckout handles POST /api/checkout
func HandleCreateCheckout(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req service.CreateCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "validation failed",
				"details": err.Error(),
			})
			return
		}

		checkoutService := service.NewCheckoutService(repos, logger)
		checkout, err := checkoutService.CreateCheckout(c.Request.Context(), principal.UserID, req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, checkout)
	}
}

// HandleGetCheckout handles GET /api/checkout/:id
func HandleGetCheckout(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		checkoutID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid checkout ID"})
			return
		}

		checkoutService := service.NewCheckoutService(repos, logger)
		checkout, err := checkoutService.GetCheckout(c.Request.Context(), principal.UserID, checkoutID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, checkout)
	}
}

// HandleUpdatePayment handles PATCH /api/checkout/:id/payment
func HandleUpdatePayment(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		checkoutID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid checkout ID"})
			return
		}

		var req service.UpdatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "details": err.Error()})
			return
		}

		checkoutService := service.NewCheckoutService(repos, logger)
		checkout, err := checkoutService.UpdatePayment(c.Request.Context(), principal.UserID, checkoutID, req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, checkout)
	}
}

// HandleFinalizeCheckout handles PATCH /api/checkout/:id/finalize. The
// explicit finalize path for clients that poll instead of relying on the
// redirect. Same guards as the callback path: error when unpaid, no-op
// when already finalized.
func HandleFinalizeCheckout(repos *repository.Repositories, carts service.CartClearer, publisher service.EventPublisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		checkoutID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid checkout ID"})
			return
		}

		finalizer := service.NewFinalizerService(repos, carts, publisher, logger)
		order, alreadyFinalized, err := finalizer.FinalizeByID(c.Request.Context(), principal.UserID, checkoutID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		if alreadyFinalized {
			c.JSON(http.StatusOK, gin.H{
				"message": "Checkout already finalized",
				"order":   order,
			})
			return
		}

		c.JSON(http.StatusCreated, order)
	}
}
