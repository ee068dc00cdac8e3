package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/api/handlers"
	"github.com/deshikart/shopapi/internal/api/middleware"
	"github.com/deshikart/shopapi/internal/config"
	"github.com/deshikart/shopapi/internal/repository"
	"github.com/deshikart/shopapi/internal/service"
)

// NewRouter wires every route. The gateway callback routes are public; the
// gateway's servers and the customer's redirected browser carry no bearer
// token. Everything else sits behind auth.
func NewRouter(cfg *config.Config, repos *repository.Repositories, gw service.PaymentGateway, carts service.CartClearer, publisher service.EventPublisher, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// Public gateway callback channels. Registered before the auth group so
	// the cancel route can serve both callers; it parses the token itself
	// when one is present.
	gatewayGroup := api.Group("/checkout/gateway")
	{
		gatewayGroup.POST("/success/:tranId", handlers.HandleSuccessCallback(repos, gw, carts, publisher, cfg.Gateway, logger))
		gatewayGroup.POST("/fail/:tranId", handlers.HandleFailCallback(repos, gw, carts, publisher, cfg.Gateway, logger))
		gatewayGroup.POST("/cancel/:tranId", handlers.HandleCancelCallback(repos, gw, carts, publisher, cfg.Gateway, cfg.Auth.JWTSecret, logger))
		gatewayGroup.POST("/ipn", handlers.HandleIPN(repos, gw, carts, publisher, logger))
	}

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret, logger))
	{
		checkout := authed.Group("/checkout")
		{
			checkout.POST("", handlers.HandleCreateCheckout(repos, logger))
			checkout.GET("/:id", handlers.HandleGetCheckout(repos, logger))
			checkout.PATCH("/:id/payment", handlers.HandleUpdatePayment(repos, logger))
			checkout.PATCH("/:id/finalize", handlers.HandleFinalizeCheckout(repos, carts, publisher, logger))
			checkout.POST("/gateway/init", handlers.HandleInitPayment(repos, gw, cfg.Gateway, logger))
		}

		orders := authed.Group("/orders")
		{
			orders.GET("/my-orders", handlers.HandleMyOrders(repos, gw, publisher, logger))
			orders.GET("/:id", handlers.HandleGetOrder(repos, gw, publisher, logger))
			orders.POST("/:id/cancel", handlers.HandleCancelOrder(repos, gw, publisher, logger))
			orders.GET("/:id/cancellation-status", handlers.HandleCancellationStatus(repos, gw, publisher, logger))
			orders.GET("/:id/refund-status", handlers.HandleRefundStatus(repos, gw, publisher, logger))
			orders.POST("/:id/refund", middleware.RoleRequired("admin"), handlers.HandleProcessRefund(repos, gw, publisher, logger))
		}
	}

	return router
}

// requestLogger logs each request with method, path, status, and latency
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
