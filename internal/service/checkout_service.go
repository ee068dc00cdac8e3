package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/domain"
	"github.com/deshikart/shopapi/internal/repository"
	"github.com/deshikart/shopapi/pkg/errors"
)

// DefaultExchangeRate is the fallback USD to BDT conversion rate
const DefaultExchangeRate = 85

type checkoutService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(repos *repository.Repositories, logger *zap.Logger) *checkoutService {
	return &checkoutService{
		repos:  repos,
		logger: logger,
	}
}

// CreateCheckout snapshots the cart into a new checkout session. Items are
// copied as-is and never re-derived from the catalog afterwards.
func (s *checkoutService) CreateCheckout(ctx context.Context, userID uuid.UUID, req CreateCheckoutRequest) (*domain.Checkout, error) {
	if len(req.Items) == 0 {
		return nil, &errors.ErrValidation{Message: "No items in checkout"}
	}
	if req.CustomerInfo.Phone == "" {
		return nil, &errors.ErrValidation{Message: "Phone number is required for payment processing"}
	}

	items := make([]domain.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.CheckoutItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
		})
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "SSLCommerz"
	}
	country := req.ShippingAddress.Country
	if country == "" {
		country = "BD"
	}

	checkout := &domain.Checkout{
		ID:     uuid.New(),
		UserID: userID,
		Items:  items,
		ShippingAddress: domain.ShippingAddress{
			FirstName:  req.ShippingAddress.FirstName,
			LastName:   req.ShippingAddress.LastName,
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    country,
		},
		CustomerInfo: domain.CustomerInfo{
			Email: req.CustomerInfo.Email,
			Phone: req.CustomerInfo.Phone,
		},
		PaymentMethod: paymentMethod,
		TotalPrice:    req.TotalPrice,
		OrderNotes:    req.OrderNotes,
		ExchangeRate:  DefaultExchangeRate,
		PaymentStatus: domain.PaymentStatusPending,
	}
	checkout.RecomputeBDTAmount()

	if err := s.repos.Checkout.Create(ctx, checkout); err != nil {
		return nil, err
	}

	s.logger.Info("Checkout created",
		zap.String("checkout_id", checkout.ID.String()),
		zap.String("user_id", userID.String()),
	)

	return checkout, nil
}

// GetCheckout returns a checkout, owner-only
func (s *checkoutService) GetCheckout(ctx context.Context, userID, checkoutID uuid.UUID) (*domain.Checkout, error) {
	checkout, err := s.repos.Checkout.GetByID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if checkout.UserID != userID {
		return nil, &errors.ErrForbidden{Message: "Unauthorized access to checkout"}
	}
	return checkout, nil
}

// UpdatePayment is the manual status-sync path. isPaid never reverts to
// false, whatever the client sends.
func (s *checkoutService) UpdatePayment(ctx context.Context, userID, checkoutID uuid.UUID, req UpdatePaymentRequest) (*domain.Checkout, error) {
	checkout, err := s.GetCheckout(ctx, userID, checkoutID)
	if err != nil {
		return nil, err
	}

	if req.PaymentStatus != "" {
		status := domain.PaymentStatus(req.PaymentStatus)
		if !status.IsValid() {
			return nil, &errors.ErrValidation{Message: "invalid payment status"}
		}
		checkout.PaymentStatus = status
	}
	if req.TransactionID != "" {
		checkout.SSLTransactionID = req.TransactionID
		checkout.PaymentDetails.TransactionID = req.TransactionID
	}
	if req.IsPaid != nil && *req.IsPaid && !checkout.IsPaid {
		checkout.IsPaid = true
		now := nowUTC()
		checkout.PaidAt = &now
	}

	if err := s.repos.Checkout.UpdatePayment(ctx, checkout); err != nil {
		return nil, err
	}

	return s.repos.Checkout.GetByID(ctx, checkoutID)
}
