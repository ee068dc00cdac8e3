package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/api/middleware"
	"github.com/deshikart/shopapi/internal/domain"
	"github.com/deshikart/shopapi/internal/repository"
	"github.com/deshikart/shopapi/internal/service"
)

// HandleMyOrders handles GET /api/orders/my-orders
func HandleMyOrders(repos *repository.Repositories, gw service.PaymentGateway, publisher service.EventPublisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderService := service.NewOrderService(repos, gw, publisher, logger)
		orders, err := orderService.ListUserOrders(c.Request.Context(), principal.UserID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, orders)
	}
}

// HandleGetOrder handles GET /api/orders/:id
func HandleGetOrder(repos *repository.Repositories, gw service.PaymentGateway, publisher service.EventPublisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid order ID"})
			return
		}

		orderService := service.NewOrderService(repos, gw, publisher, logger)
		order, err := orderService.GetOrder(c.Request.Context(), principal.UserID, orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// HandleCancelOrder handles POST /api/orders/:id/cancel. Admins may cancel
// any order; customers only their own, inside the cancellation window.
func HandleCancelOrder(repos *repository.Repositories, gw service.PaymentGateway, publisher service.EventPublisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid order ID"})
			return
		}

		var req service.CancelOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "details": err.Error()})
			return
		}

		actor := domain.CancelActorCustomer
		if principal.Role == "admin" {
			actor = domain.CancelActorAdmin
		}

		orderService := service.NewOrderService(repos, gw, publisher, logger)
		order, err := orderService.CancelOrder(c.Request.Context(), principal.UserID, orderID, req.Reason, actor)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Order cancelled successfully",
			"order":   order,
		})
	}
}

// HandleCancellationStatus handles GET /api/orders/:id/cancellation-status
func HandleCancellationStatus(repos *repository.Repositories, gw service.PaymentGateway, publisher service.EventPublisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid order ID"})
			return
		}

		orderService := service.NewOrderService(repos, gw, publisher, logger)
		status, err := orderService.CancellationStatus(c.Request.Context(), principal.UserID, orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, status)
	}
}

// HandleProcessRefund handles POST /api/orders/:id/refund. Admin-only,
// enforced in the router.
func HandleProcessRefund(repos *repository.Repositories, gw service.PaymentGateway, publisher service.EventPublisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid order ID"})
			return
		}

		var req service.RefundRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "details": err.Error()})
			return
		}

		orderService := service.NewOrderService(repos, gw, publisher, logger)
		order, err := orderService.ProcessRefund(c.Request.Context(), orderID, req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Refund processed successfully",
			"order":   order,
		})
	}
}

// HandleRefundStatus handles GET /api/orders/:id/refund-status
func HandleRefundStatus(repos *repository.Repositories, gw service.PaymentGateway, publisher service.EventPublisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid order ID"})
			return
		}

		orderService := service.NewOrderService(repos, gw, publisher, logger)
		order, err := orderService.RefundStatus(c.Request.Context(), principal.UserID, orderID)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orderId":       order.ID,
			"refundStatus":  order.RefundStatus,
			"refundDetails": order.RefundDetails,
		})
	}
}
