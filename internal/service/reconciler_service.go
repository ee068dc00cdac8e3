package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/domain"
	"github.com/deshikart/shopapi/internal/events"
	"github.com/deshikart/shopapi/internal/repository"
)

// Finalizer is the single funnel for deriving an Order from a paid
// Checkout
type Finalizer interface {
	Finalize(ctx context.Context, checkout *domain.Checkout) (*domain.Order, error)
}

type reconcilerService struct {
	repos     *repository.Repositories
	gateway   PaymentGateway
	finalizer Finalizer
	publisher EventPublisher
	logger    *zap.Logger
}

// NewReconcilerService creates the callback reconciler. It owns the four
// inbound gateway channels: success redirect, fail redirect, gateway
// cancel, and the asynchronous IPN. Channels race with no ordering
// guarantee; every transition is a guarded compare-and-set and the first
// writer wins. isPaid never reverts.
func NewReconcilerService(repos *repository.Repositories, gw PaymentGateway, finalizer Finalizer, publisher EventPublisher, logger *zap.Logger) *reconcilerService {
	return &reconcilerService{
		repos:     repos,
		gateway:   gw,
		finalizer: finalizer,
		publisher: publisher,
		logger:    logger,
	}
}

// HandleSuccess processes the gateway's success redirect. Idempotent: a
// duplicate delivery, or one racing with the IPN, observes the checkout
// already paid and only re-runs the (also idempotent) finalizer.
func (s *reconcilerService) HandleSuccess(ctx context.Context, tranID string, payload json.RawMessage) (*domain.Order, error) {
	checkout, err := s.repos.Checkout.GetByTransactionID(ctx, tranID)
	if err != nil {
		return nil, err
	}

	s.appendCallback(ctx, checkout, domain.CallbackChannelSuccess, payload)

	now := nowUTC()
	details := checkout.PaymentDetails
	details.TransactionID = tranID

	won, err := s.repos.Checkout.MarkPaid(ctx, tranID, now, details)
	if err != nil {
		return nil, err
	}
	if won {
		s.logger.Info("Payment confirmed via success redirect", zap.String("tran_id", tranID))
		s.publisher.Publish(events.TopicCheckoutPaid, map[string]interface{}{
			"checkout_id": checkout.ID.String(),
			"tran_id":     tranID,
			"channel":     string(domain.CallbackChannelSuccess),
		})
	} else {
		s.logger.Info("Duplicate success callback ignored", zap.String("tran_id", tranID))
	}

	// Reload so the finalizer sees the post-transition state, then funnel
	// through it regardless of who won: a crash between mark-paid and
	// finalize must be repairable by the next callback.
	checkout, err = s.repos.Checkout.GetByTransactionID(ctx, tranID)
	if err != nil {
		return nil, err
	}

	return s.finalizer.Finalize(ctx, checkout)
}

// HandleFail processes the gateway's fail redirect. A stale fail arriving
// after a success is a no-op; the paid state is never downgraded.
func (s *reconcilerService) HandleFail(ctx context.Context, tranID string, payload json.RawMessage) error {
	checkout, err := s.repos.Checkout.GetByTransactionID(ctx, tranID)
	if err != nil {
		return err
	}

	s.appendCallback(ctx, checkout, domain.CallbackChannelFail, payload)

	if checkout.IsPaid {
		s.logger.Info("Fail callback for already-paid checkout ignored", zap.String("tran_id", tranID))
		return nil
	}

	details := checkout.PaymentDetails
	details.Failure = &domain.PaymentFailure{
		Reason:   "Payment failed",
		FailedAt: nowUTC(),
	}

	won, err := s.repos.Checkout.MarkFailed(ctx, tranID, details)
	if err != nil {
		return err
	}
	if !won {
		s.logger.Info("Fail callback lost to a concurrent success", zap.String("tran_id", tranID))
		return nil
	}

	s.logger.Info("Payment failed", zap.String("tran_id", tranID), zap.String("checkout_id", checkout.ID.String()))
	return nil
}

// HandleGatewayCancel processes a mid-flow cancellation at the gateway.
// This transitions the Checkout; order cancellation is a different
// operation on a different aggregate.
func (s *reconcilerService) HandleGatewayCancel(ctx context.Context, tranID string, payload json.RawMessage) error {
	checkout, err := s.repos.Checkout.GetByTransactionID(ctx, tranID)
	if err != nil {
		return err
	}

	s.appendCallback(ctx, checkout, domain.CallbackChannelCancel, payload)

	if checkout.IsPaid {
		s.logger.Info("Cancel callback for already-paid checkout ignored", zap.String("tran_id", tranID))
		return nil
	}

	details := checkout.PaymentDetails
	details.Cancellation = &domain.PaymentCancellation{
		Reason:      "Payment cancelled at gateway",
		CancelledAt: nowUTC(),
	}

	won, err := s.repos.Checkout.MarkCancelled(ctx, tranID, details)
	if err != nil {
		return err
	}
	if won {
		s.logger.Info("Checkout cancelled at gateway", zap.String("tran_id", tranID), zap.String("checkout_id", checkout.ID.String()))
	}
	return nil
}

// HandleIPN processes the asynchronous server-to-server notification. The
// payload is never trusted on its own: the val_id is re-validated against
// the gateway before the success transition is applied. The caller always
// acknowledges with 200 so the gateway stops retrying, whatever happens
// here.
func (s *reconcilerService) HandleIPN(ctx context.Context, payload IPNPayload, raw json.RawMessage) error {
	checkout, err := s.repos.Checkout.GetByTransactionID(ctx, payload.TransactionID)
	if err != nil {
		return err
	}

	s.appendCallback(ctx, checkout, domain.CallbackChannelIPN, raw)

	validation, err := s.gateway.Validate(ctx, payload.ValidationID)
	if err != nil {
		s.logger.Error("IPN validation query failed",
			zap.Error(err),
			zap.String("tran_id", payload.TransactionID),
			zap.String("val_id", payload.ValidationID),
		)
		return err
	}

	if !validation.IsValid() {
		s.logger.Warn("IPN validation rejected",
			zap.String("tran_id", payload.TransactionID),
			zap.String("val_id", payload.ValidationID),
			zap.String("status", validation.Status),
		)
		return nil
	}

	now := nowUTC()
	details := checkout.PaymentDetails
	details.TransactionID = payload.TransactionID
	details.IPNReceivedAt = &now
	details.Validation = &domain.ValidationResult{
		ValidationID:      validation.ValidationID,
		Status:            validation.Status,
		Amount:            validation.AmountFloat(),
		Currency:          validation.Currency,
		CardType:          validation.CardType,
		CardNo:            validation.CardNo,
		BankTransactionID: validation.BankTransactionID,
		StoreAmount:       validation.StoreAmountFloat(),
		TransactionDate:   validation.TransactionDate,
		Raw:               validation.Raw,
	}

	won, err := s.repos.Checkout.MarkPaid(ctx, payload.TransactionID, now, details)
	if err != nil {
		return err
	}
	if won {
		s.logger.Info("Payment confirmed via IPN", zap.String("tran_id", payload.TransactionID))
		s.publisher.Publish(events.TopicCheckoutPaid, map[string]interface{}{
			"checkout_id": checkout.ID.String(),
			"tran_id":     payload.TransactionID,
			"channel":     string(domain.CallbackChannelIPN),
		})
	} else {
		s.logger.Info("Duplicate IPN ignored", zap.String("tran_id", payload.TransactionID))
	}

	checkout, err = s.repos.Checkout.GetByTransactionID(ctx, payload.TransactionID)
	if err != nil {
		return err
	}

	_, err = s.finalizer.Finalize(ctx, checkout)
	return err
}

// appendCallback records the delivery in the audit log. Every inbound
// notification lands here exactly once per delivery, state change or not.
func (s *reconcilerService) appendCallback(ctx context.Context, checkout *domain.Checkout, channel domain.CallbackChannel, payload json.RawMessage) {
	entry := domain.CallbackEntry{
		Channel:    channel,
		ReceivedAt: nowUTC(),
		Data:       payload,
	}
	if err := s.repos.Checkout.AppendCallback(ctx, checkout.ID, entry); err != nil {
		s.logger.Error("Failed to record callback",
			zap.Error(err),
			zap.String("checkout_id", checkout.ID.String()),
			zap.String("channel", string(channel)),
		)
	}
}
