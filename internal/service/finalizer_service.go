package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/domain"
	"github.com/deshikart/shopapi/internal/events"
	"github.com/deshikart/shopapi/internal/repository"
	"github.com/deshikart/shopapi/pkg/errors"
)

type finalizerService struct {
	repos     *repository.Repositories
	carts     CartClearer
	publisher EventPublisher
	logger    *zap.Logger
}

// NewFinalizerService creates a new finalizer service
func NewFinalizerService(repos *repository.Repositories, carts CartClearer, publisher EventPublisher, logger *zap.Logger) *finalizerService {
	return &finalizerService{
		repos:     repos,
		carts:     carts,
		publisher: publisher,
		logger:    logger,
	}
}

// Finalize derives the Order from a paid Checkout, at most once per
// checkout id. Every success path (redirect, IPN, explicit finalize, ops
// tooling) funnels through here. Safe to retry and safe under concurrent
// invocation: the orders table enforces one row per checkout id and the
// checkout-side flip is a compare-and-set on is_finalized.
func (s *finalizerService) Finalize(ctx context.Context, checkout *domain.Checkout) (*domain.Order, error) {
	if !checkout.IsPaid {
		return nil, &errors.ErrValidation{Message: "Checkout is not paid"}
	}

	if checkout.IsFinalized && checkout.OrderID != nil {
		return s.repos.Order.GetByID(ctx, *checkout.OrderID)
	}

	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          checkout.UserID,
		CheckoutID:      checkout.ID,
		Items:           checkout.Items,
		ShippingAddress: checkout.ShippingAddress,
		CustomerInfo:    checkout.CustomerInfo,
		PaymentMethod:   checkout.PaymentMethod,
		TotalPrice:      checkout.TotalPrice,
		OrderNotes:      checkout.OrderNotes,
		Status:          domain.OrderStatusProcessing,
		PaymentStatus:   domain.PaymentStatusCompleted,
		PaymentDetails:  checkout.PaymentDetails,
		IsPaid:          true,
		PaidAt:          checkout.PaidAt,
		CancelledBy:     domain.CancelActorCustomer,
		RefundStatus:    domain.RefundStatusNotApplicable,
	}

	// A concurrent finalize may have created the order already; the
	// conflicting insert is a no-op and the read below returns whichever
	// row won.
	if err := s.repos.Order.Create(ctx, order); err != nil {
		return nil, err
	}

	created, err := s.repos.Order.GetByCheckoutID(ctx, checkout.ID)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	won, err := s.repos.Checkout.Finalize(ctx, checkout.ID, created.ID, now)
	if err != nil {
		return nil, err
	}

	if won {
		s.logger.Info("Checkout finalized",
			zap.String("checkout_id", checkout.ID.String()),
			zap.String("order_id", created.ID.String()),
		)

		// Best-effort side effects; never roll back order creation
		if err := s.carts.Clear(ctx, checkout.UserID); err != nil {
			s.logger.Warn("Failed to clear cart",
				zap.Error(err),
				zap.String("user_id", checkout.UserID.String()),
			)
		}
		s.publisher.Publish(events.TopicOrderCreated, map[string]interface{}{
			"order_id":    created.ID.String(),
			"checkout_id": checkout.ID.String(),
			"user_id":     checkout.UserID.String(),
			"total_price": created.TotalPrice,
		})
	}

	return created, nil
}

// FinalizeByID is the explicit client-triggered entry point
// (PATCH /checkout/:id/finalize). Owner-only; no-op when already
// finalized, error when not yet paid.
func (s *finalizerService) FinalizeByID(ctx context.Context, userID, checkoutID uuid.UUID) (*domain.Order, bool, error) {
	checkout, err := s.repos.Checkout.GetByID(ctx, checkoutID)
	if err != nil {
		return nil, false, err
	}
	if checkout.UserID != userID {
		return nil, false, &errors.ErrForbidden{Message: "Unauthorized access to checkout"}
	}

	alreadyFinalized := checkout.IsFinalized

	order, err := s.Finalize(ctx, checkout)
	if err != nil {
		return nil, alreadyFinalized, err
	}

	return order, alreadyFinalized, nil
}
