package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/domain"
	"github.com/deshikart/shopapi/internal/events"
	"github.com/deshikart/shopapi/internal/repository"
	"github.com/deshikart/shopapi/pkg/errors"
)

type orderService struct {
	repos     *repository.Repositories
	gateway   PaymentGateway
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(repos *repository.Repositories, gw PaymentGateway, publisher EventPublisher, logger *zap.Logger) *orderService {
	return &orderService{
		repos:     repos,
		gateway:   gw,
		publisher: publisher,
		logger:    logger,
	}
}

// GetOrder returns an order, owner-only
func (s *orderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, &errors.ErrForbidden{Message: "Unauthorized access to order"}
	}
	return order, nil
}

// ListUserOrders returns the user's orders, newest first
func (s *orderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return s.repos.Order.ListByUser(ctx, userID)
}

// CancelOrder runs the cancellation policy against an order and, for paid
// orders, kicks off the refund. Owner-only unless the actor is admin or
// system.
func (s *orderService) CancelOrder(ctx context.Context, userID, orderID uuid.UUID, reason string, by domain.CancelActor) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if by == domain.CancelActorCustomer && order.UserID != userID {
		return nil, &errors.ErrForbidden{Message: "Unauthorized access to order"}
	}

	now := nowUTC()
	if err := domain.Cancel(order, reason, by, now); err != nil {
		return nil, err
	}

	won, err := s.repos.Order.ApplyCancellation(ctx, order)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent cancel got there first
		return nil, &errors.ErrAlreadyCancelled{OrderID: orderID.String()}
	}

	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID.String()),
		zap.String("cancelled_by", string(by)),
		zap.String("reason", order.CancellationReason),
	)

	s.publisher.Publish(events.TopicOrderCancelled, map[string]interface{}{
		"order_id":      orderID.String(),
		"user_id":       order.UserID.String(),
		"cancelled_by":  string(by),
		"refund_status": string(order.RefundStatus),
	})

	if order.IsPaid {
		s.initiateRefund(ctx, order)
	}

	return order, nil
}

// initiateRefund moves a pending refund to initiated via the gateway.
// Failures leave the refund retriable; they never undo the cancellation.
func (s *orderService) initiateRefund(ctx context.Context, order *domain.Order) {
	bankTranID := order.BankTransactionID()
	if bankTranID == "" {
		s.logger.Warn("Refund deferred: no bank transaction reference",
			zap.String("order_id", order.ID.String()),
			zap.String("tran_id", order.TransactionID()),
		)
		return
	}

	// Fresh reference per attempt so a retry never collides with an
	// earlier one
	refundRefID := fmt.Sprintf("REFUND_%s_%d", order.ID, time.Now().UnixMilli())

	resp, err := s.gateway.InitiateRefund(ctx, bankTranID, order.TotalPrice, order.CancellationReason, refundRefID)
	if err != nil || resp.Status != "success" {
		reason := "gateway refund initiation failed"
		if err != nil {
			reason = err.Error()
		} else if resp.ErrorReason != "" {
			reason = resp.ErrorReason
		}
		s.logger.Error("Refund initiation failed",
			zap.String("order_id", order.ID.String()),
			zap.String("reason", reason),
		)
		if err := domain.MarkRefundFailed(order, reason); err == nil {
			if _, err := s.repos.Order.UpdateRefund(ctx, order, []domain.RefundStatus{domain.RefundStatusPending}); err != nil {
				s.logger.Error("Failed to record refund failure", zap.Error(err), zap.String("order_id", order.ID.String()))
			}
		}
		return
	}

	if err := domain.MarkRefundInitiated(order, resp.RefundRefID); err != nil {
		return
	}
	if _, err := s.repos.Order.UpdateRefund(ctx, order, []domain.RefundStatus{domain.RefundStatusPending, domain.RefundStatusFailed}); err != nil {
		s.logger.Error("Failed to record refund initiation", zap.Error(err), zap.String("order_id", order.ID.String()))
		return
	}

	s.logger.Info("Refund initiated",
		zap.String("order_id", order.ID.String()),
		zap.String("refund_ref_id", resp.RefundRefID),
	)
}

// CancellationStatus answers whether the order can still be cancelled and
// how long remains. Evaluated at request time, nothing cached.
func (s *orderService) CancellationStatus(ctx context.Context, userID, orderID uuid.UUID) (*CancellationStatusResult, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	canCancel, reason := domain.CanCancel(order, now)

	result := &CancellationStatusResult{
		CanCancel:     canCancel,
		Reason:        reason,
		OrderStatus:   string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		IsDelivered:   order.IsDelivered,
	}

	if canCancel {
		result.TimeRemaining = formatRemaining(domain.CancellationTimeRemaining(order, now))
	}

	return result, nil
}

// ProcessRefund completes the refund for a cancelled, paid order.
// Privileged operation.
func (s *orderService) ProcessRefund(ctx context.Context, orderID uuid.UUID, req RefundRequest) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusCancel || !order.IsPaid {
		return nil, &errors.ErrValidation{Message: "Order must be cancelled and paid to process refund"}
	}

	details := domain.RefundDetails{
		RefundAmount: req.RefundAmount,
		RefundMethod: req.RefundMethod,
		RefundNotes:  req.RefundNotes,
	}
	if details.RefundMethod == "" {
		details.RefundMethod = "original_payment_method"
	}
	if details.RefundNotes == "" {
		details.RefundNotes = "Refund processed for cancelled order"
	}

	if err := domain.ProcessRefund(order, details, nowUTC()); err != nil {
		return nil, err
	}

	won, err := s.repos.Order.UpdateRefund(ctx, order, []domain.RefundStatus{domain.RefundStatusPending, domain.RefundStatusInitiated})
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, &errors.ErrRefund{OrderID: orderID.String(), Reason: "refund is not in a processable state"}
	}

	s.logger.Info("Refund processed",
		zap.String("order_id", orderID.String()),
		zap.Float64("refund_amount", order.RefundDetails.RefundAmount),
	)

	s.publisher.Publish(events.TopicOrderRefunded, map[string]interface{}{
		"order_id":      orderID.String(),
		"refund_amount": order.RefundDetails.RefundAmount,
	})

	return order, nil
}

// RefundStatus returns the refund state for an order, owner-only
func (s *orderService) RefundStatus(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	return s.GetOrder(ctx, userID, orderID)
}

func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return fmt.Sprintf("%d hours", int(d.Hours()))
}
