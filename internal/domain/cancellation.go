package domain

import (
	"time"

	"github.com/deshikart/shopapi/pkg/errors"
)

// CancellationWindow is how long after creation an order stays cancellable.
// The boundary is inclusive: an order exactly 24h old can still be
// cancelled.
const CancellationWindow = 24 * time.Hour

// Cancellation reasons reported to callers when an order is not eligible
const (
	ReasonDelivered        = "Cannot cancel delivered orders"
	ReasonAlreadyCancelled = "Order is already cancelled"
	ReasonNoTransaction    = "Cannot process cancellation - transaction details not found"
	ReasonWindowExpired    = "Order cancellation window has expired (24 hours)"
)

// CanCancel reports whether the order is eligible for cancellation at the
// given time, and if not, why. Evaluated on demand from CreatedAt; nothing
// is cached.
func CanCancel(o *Order, now time.Time) (bool, string) {
	if o.IsDelivered {
		return false, ReasonDelivered
	}
	if o.Status == OrderStatusCancel || o.PaymentStatus == PaymentStatusCancelled {
		return false, ReasonAlreadyCancelled
	}
	// A paid order needs the gateway reference to refund against
	if o.IsPaid && o.TransactionID() == "" {
		return false, ReasonNoTransaction
	}
	if now.Sub(o.CreatedAt) > CancellationWindow {
		return false, ReasonWindowExpired
	}
	return true, ""
}

// CancellationTimeRemaining returns how long the order stays cancellable,
// zero if the window has passed.
func CancellationTimeRemaining(o *Order, now time.Time) time.Duration {
	remaining := CancellationWindow - now.Sub(o.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Cancel applies the cancellation transition, setting every dependent field
// in one step. Re-invoking on an already-cancelled order returns
// ErrAlreadyCancelled without touching CancelledAt.
func Cancel(o *Order, reason string, by CancelActor, now time.Time) error {
	if o.Status == OrderStatusCancel || o.PaymentStatus == PaymentStatusCancelled {
		return &errors.ErrAlreadyCancelled{OrderID: o.ID.String()}
	}
	if ok, why := CanCancel(o, now); !ok {
		return &errors.ErrValidation{Message: why}
	}
	if reason == "" {
		reason = "Customer requested cancellation"
	}

	o.Status = OrderStatusCancel
	o.PaymentStatus = PaymentStatusCancelled
	o.IsCancelled = true
	o.CancelledAt = &now
	o.CancellationReason = reason
	o.CancelledBy = by
	if o.IsPaid {
		o.RefundStatus = RefundStatusPending
	} else {
		o.RefundStatus = RefundStatusNotApplicable
	}
	return nil
}
