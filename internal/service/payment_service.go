package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/config"
	"github.com/deshikart/shopapi/internal/domain"
	"github.com/deshikart/shopapi/internal/gateway"
	"github.com/deshikart/shopapi/internal/repository"
	"github.com/deshikart/shopapi/pkg/errors"
)

type paymentService struct {
	repos   *repository.Repositories
	gateway PaymentGateway
	cfg     config.GatewayConfig
	logger  *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(repos *repository.Repositories, gw PaymentGateway, cfg config.GatewayConfig, logger *zap.Logger) *paymentService {
	return &paymentService{
		repos:   repos,
		gateway: gw,
		cfg:     cfg,
		logger:  logger,
	}
}

// NewTransactionID mints a globally unique gateway transaction reference.
// Each initiation attempt gets a fresh one.
func NewTransactionID(checkoutID uuid.UUID) string {
	prefix := strings.ToUpper(strings.ReplaceAll(checkoutID.String(), "-", ""))[:8]
	return fmt.Sprintf("TXN-%s-%d", prefix, time.Now().UnixMilli())
}

// InitiatePayment opens a gateway session for a checkout. Exactly one
// outbound call; no automatic retry. A failed initiation marks the checkout
// Failed, and a later re-initiation mints a new transaction reference.
func (s *paymentService) InitiatePayment(ctx context.Context, userID uuid.UUID, req InitPaymentRequest) (*InitPaymentResult, error) {
	checkoutID, err := uuid.Parse(req.CheckoutID)
	if err != nil {
		return nil, &errors.ErrValidation{Message: "invalid checkout ID"}
	}

	checkout, err := s.repos.Checkout.GetByID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if checkout.UserID != userID {
		return nil, &errors.ErrForbidden{Message: "Unauthorized access to checkout"}
	}
	if checkout.CustomerInfo.Phone == "" || checkout.CustomerInfo.Email == "" {
		return nil, &errors.ErrValidation{Message: "Customer email and phone are required for payment processing"}
	}
	if checkout.IsPaid {
		return nil, &errors.ErrValidation{Message: "Checkout is already paid"}
	}

	tranID := req.TransactionID
	if tranID == "" {
		tranID = NewTransactionID(checkout.ID)
	}

	productName := req.ProductName
	if productName == "" {
		shortID := checkout.ID.String()
		productName = "Order-" + shortID[len(shortID)-8:]
	}
	city := req.CustomerCity
	if city == "" {
		city = checkout.ShippingAddress.City
	}

	checkout.RecomputeBDTAmount()

	initReq := gateway.InitiateRequest{
		TotalAmount:     checkout.AmountInBDT,
		Currency:        "BDT",
		TransactionID:   tranID,
		SuccessURL:      fmt.Sprintf("%s/api/checkout/gateway/success/%s", s.cfg.BackendURL, tranID),
		FailURL:         fmt.Sprintf("%s/api/checkout/gateway/fail/%s", s.cfg.BackendURL, tranID),
		CancelURL:       fmt.Sprintf("%s/api/checkout/gateway/cancel/%s", s.cfg.BackendURL, tranID),
		IPNURL:          fmt.Sprintf("%s/api/checkout/gateway/ipn", s.cfg.BackendURL),
		ProductName:     productName,
		ProductCategory: "General",
		CustomerName:    checkout.CustomerName(),
		CustomerEmail:   checkout.CustomerInfo.Email,
		CustomerPhone:   checkout.CustomerInfo.Phone,
		CustomerAddress: checkout.ShippingAddress.Address,
		CustomerCity:    city,
		CustomerPost:    checkout.ShippingAddress.PostalCode,
		CustomerCountry: checkout.ShippingAddress.Country,
		ValueA:          checkout.ID.String(),
		ValueB:          userID.String(),
		ValueC:          "web_checkout",
		ValueD:          time.Now().UTC().Format(time.RFC3339),
	}

	resp, err := s.gateway.Initiate(ctx, initReq)
	if err != nil {
		s.markInitiationFailed(ctx, checkout, err.Error())
		return nil, &errors.ErrGateway{Operation: "initiate", Reason: err.Error()}
	}

	if resp.Status != "SUCCESS" {
		reason := resp.FailedReason
		if reason == "" {
			reason = "Gateway initialization failed"
		}
		s.markInitiationFailed(ctx, checkout, reason)
		return nil, &errors.ErrGateway{Operation: "initiate", Reason: reason}
	}

	now := nowUTC()
	details := checkout.PaymentDetails
	details.TransactionID = tranID
	details.Currency = "BDT"
	details.InitiatedAt = &now
	details.Gateway = &domain.GatewaySession{
		Status:      resp.Status,
		SessionKey:  resp.SessionKey,
		RedirectURL: resp.GatewayPageURL,
	}

	won, err := s.repos.Checkout.MarkInitiated(ctx, checkout.ID, tranID, details)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, &errors.ErrValidation{Message: "Checkout is not eligible for payment initiation"}
	}

	s.logger.Info("Payment initiated",
		zap.String("checkout_id", checkout.ID.String()),
		zap.String("tran_id", tranID),
		zap.Int64("amount_bdt", checkout.AmountInBDT),
	)

	return &InitPaymentResult{
		Status:        resp.Status,
		RedirectURL:   resp.GatewayPageURL,
		SessionKey:    resp.SessionKey,
		TransactionID: tranID,
	}, nil
}

// markInitiationFailed records a gateway init failure so the checkout is
// never left Pending indefinitely.
func (s *paymentService) markInitiationFailed(ctx context.Context, checkout *domain.Checkout, reason string) {
	now := nowUTC()
	checkout.PaymentStatus = domain.PaymentStatusFailed
	checkout.PaymentDetails.Failure = &domain.PaymentFailure{
		Reason:   reason,
		FailedAt: now,
	}

	if err := s.repos.Checkout.UpdatePayment(ctx, checkout); err != nil {
		s.logger.Error("Failed to record initiation failure",
			zap.Error(err),
			zap.String("checkout_id", checkout.ID.String()),
		)
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
