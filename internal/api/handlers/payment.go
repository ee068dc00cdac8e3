package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/api/middleware"
	"github.com/deshikart/shopapi/internal/config"
	"github.com/deshikart/shopapi/internal/domain"
	"github.com/deshikart/shopapi/internal/repository"
	"github.com/deshikart/shopapi/internal/service"
)

// HandleInitPayment handles POST /api/checkout/gateway/init
func HandleInitPayment(repos *repository.Repositories, gw service.PaymentGateway, cfg config.GatewayConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req service.InitPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "validation failed", "details": err.Error()})
			return
		}

		paymentService := service.NewPaymentService(repos, gw, cfg, logger)
		result, err := paymentService.InitiatePayment(c.Request.Context(), principal.UserID, req)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// HandleSuccessCallback handles POST /api/checkout/gateway/success/:tranId.
// The gateway drives the customer's browser here, so the response is a
// redirect back to the storefront rather than JSON. Any processing failure
// degrades to the fail page; the IPN remains the safety net for the
// payment itself.
func HandleSuccessCallback(repos *repository.Repositories, gw service.PaymentGateway, carts service.CartClearer, publisher service.EventPublisher, cfg config.GatewayConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tranID := c.Param("tranId")
		payload := callbackPayload(c)

		reconciler := newReconciler(repos, gw, carts, publisher, logger)
		order, err := reconciler.HandleSuccess(c.Request.Context(), tranID, payload)
		if err != nil {
			logger.Error("Success callback processing failed",
				zap.Error(err),
				zap.String("tran_id", tranID),
			)
			c.Redirect(http.StatusFound, failRedirectURL(cfg.FrontendURL, tranID, "processing_failed"))
			return
		}

		target := fmt.Sprintf("%s/payment/success?order=%s&transaction=%s",
			cfg.FrontendURL, order.ID, url.QueryEscape(tranID))
		c.Redirect(http.StatusFound, target)
	}
}

// HandleFailCallback handles POST /api/checkout/gateway/fail/:tranId
func HandleFailCallback(repos *repository.Repositories, gw service.PaymentGateway, carts service.CartClearer, publisher service.EventPublisher, cfg config.GatewayConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tranID := c.Param("tranId")
		payload := callbackPayload(c)

		reconciler := newReconciler(repos, gw, carts, publisher, logger)
		if err := reconciler.HandleFail(c.Request.Context(), tranID, payload); err != nil {
			logger.Error("Fail callback processing failed",
				zap.Error(err),
				zap.String("tran_id", tranID),
			)
		}

		c.Redirect(http.StatusFound, failRedirectURL(cfg.FrontendURL, tranID, "payment_failed"))
	}
}

// HandleCancelCallback handles POST /api/checkout/gateway/cancel/:tranId.
// Dual-purpose by compatibility: the gateway posts here when the customer
// abandons payment (browser redirect, no auth), and authenticated clients
// post here with an orderId body to cancel a placed order. The two are told
// apart by the presence of a bearer token plus an orderId.
func HandleCancelCallback(repos *repository.Repositories, gw service.PaymentGateway, carts service.CartClearer, publisher service.EventPublisher, cfg config.GatewayConfig, jwtSecret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tranID := c.Param("tranId")
		raw, _ := c.GetRawData()

		if c.GetHeader("Authorization") != "" {
			var body struct {
				OrderID string `json:"orderId"`
				Reason  string `json:"reason"`
			}
			if err := json.Unmarshal(raw, &body); err == nil && body.OrderID != "" {
				handleAuthenticatedOrderCancel(c, repos, gw, publisher, jwtSecret, body.OrderID, body.Reason, logger)
				return
			}
		}

		payload := rawToJSON(raw)
		reconciler := newReconciler(repos, gw, carts, publisher, logger)
		if err := reconciler.HandleGatewayCancel(c.Request.Context(), tranID, payload); err != nil {
			logger.Error("Cancel callback processing failed",
				zap.Error(err),
				zap.String("tran_id", tranID),
			)
		}

		target := fmt.Sprintf("%s/payment/cancel?transaction=%s", cfg.FrontendURL, url.QueryEscape(tranID))
		c.Redirect(http.StatusFound, target)
	}
}

func handleAuthenticatedOrderCancel(c *gin.Context, repos *repository.Repositories, gw service.PaymentGateway, publisher service.EventPublisher, jwtSecret, orderIDStr, reason string, logger *zap.Logger) {
	principal, err := middleware.ParsePrincipal(c, jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	orderID, err := uuid.Parse(orderIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid order ID"})
		return
	}

	orderService := service.NewOrderService(repos, gw, publisher, logger)
	order, err := orderService.CancelOrder(c.Request.Context(), principal.UserID, orderID, reason, domain.CancelActorCustomer)
	if err != nil {
		respondError(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"order":   order,
	})
}

// HandleIPN handles POST /api/checkout/gateway/ipn, the asynchronous
// server-to-server notification. The gateway retries until it sees a 200,
// so the response is always 200 OK; failures are logged and repaired by
// the next delivery.
func HandleIPN(repos *repository.Repositories, gw service.PaymentGateway, carts service.CartClearer, publisher service.EventPublisher, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := c.GetRawData()
		payload := parseIPN(c, raw)
		rawJSON := rawToJSON(raw)

		if payload.TransactionID == "" || payload.ValidationID == "" {
			logger.Warn("IPN missing tran_id or val_id, ignored")
			c.String(http.StatusOK, "OK")
			return
		}

		reconciler := newReconciler(repos, gw, carts, publisher, logger)
		if err := reconciler.HandleIPN(c.Request.Context(), payload, rawJSON); err != nil {
			logger.Error("IPN processing failed",
				zap.Error(err),
				zap.String("tran_id", payload.TransactionID),
			)
		}

		c.String(http.StatusOK, "OK")
	}
}

// callbackReconciler is what the gateway callback handlers need from the
// reconciler
type callbackReconciler interface {
	HandleSuccess(ctx context.Context, tranID string, payload json.RawMessage) (*domain.Order, error)
	HandleFail(ctx context.Context, tranID string, payload json.RawMessage) error
	HandleGatewayCancel(ctx context.Context, tranID string, payload json.RawMessage) error
	HandleIPN(ctx context.Context, payload service.IPNPayload, raw json.RawMessage) error
}

func newReconciler(repos *repository.Repositories, gw service.PaymentGateway, carts service.CartClearer, publisher service.EventPublisher, logger *zap.Logger) callbackReconciler {
	finalizer := service.NewFinalizerService(repos, carts, publisher, logger)
	return service.NewReconcilerService(repos, gw, finalizer, publisher, logger)
}

// callbackPayload captures the request body as JSON for the callback audit
// log. The gateway posts form-encoded bodies; those are folded into a JSON
// object.
func callbackPayload(c *gin.Context) json.RawMessage {
	raw, _ := c.GetRawData()
	return rawToJSON(raw)
}

func rawToJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}

	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return json.RawMessage(`{}`)
	}
	flat := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}
	out, err := json.Marshal(flat)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return out
}

// parseIPN decodes the notification body, which the gateway may deliver as
// JSON or as a form post
func parseIPN(c *gin.Context, raw []byte) service.IPNPayload {
	var payload service.IPNPayload

	contentType := c.ContentType()
	if strings.Contains(contentType, "json") || json.Valid(raw) {
		if err := json.Unmarshal(raw, &payload); err == nil {
			return payload
		}
	}

	if values, err := url.ParseQuery(string(raw)); err == nil {
		payload.TransactionID = values.Get("tran_id")
		payload.ValidationID = values.Get("val_id")
		payload.Status = values.Get("status")
	}
	return payload
}

func failRedirectURL(frontendURL, tranID, reason string) string {
	return fmt.Sprintf("%s/payment/fail?transaction=%s&reason=%s",
		frontendURL, url.QueryEscape(tranID), url.QueryEscape(reason))
}
