package domain

import (
	"time"

	"github.com/deshikart/shopapi/pkg/errors"
)

// MarkRefundInitiated records that a refund request was accepted by the
// gateway. Valid from pending, or from failed when retrying.
func MarkRefundInitiated(o *Order, refundID string) error {
	if !o.RefundStatus.CanTransitionTo(RefundStatusInitiated) {
		return &errors.ErrInvalidStateTransition{From: o.RefundStatus, To: RefundStatusInitiated}
	}
	o.RefundStatus = RefundStatusInitiated
	o.RefundDetails.RefundID = refundID
	return nil
}

// MarkRefundFailed records a failed refund initiation. The order stays
// retriable; completed is never set on this path.
func MarkRefundFailed(o *Order, notes string) error {
	if !o.RefundStatus.CanTransitionTo(RefundStatusFailed) {
		return &errors.ErrInvalidStateTransition{From: o.RefundStatus, To: RefundStatusFailed}
	}
	o.RefundStatus = RefundStatusFailed
	if notes != "" {
		o.RefundDetails.RefundNotes = notes
	}
	return nil
}

// ProcessRefund completes the refund, merging the supplied details over the
// existing ones and stamping RefundedAt. Only valid from pending or
// initiated.
func ProcessRefund(o *Order, details RefundDetails, now time.Time) error {
	if o.RefundStatus != RefundStatusPending && o.RefundStatus != RefundStatusInitiated {
		return &errors.ErrInvalidStateTransition{From: o.RefundStatus, To: RefundStatusCompleted}
	}

	if details.RefundID != "" {
		o.RefundDetails.RefundID = details.RefundID
	}
	if details.RefundAmount > 0 {
		o.RefundDetails.RefundAmount = details.RefundAmount
	} else if o.RefundDetails.RefundAmount == 0 {
		o.RefundDetails.RefundAmount = o.TotalPrice
	}
	if details.RefundMethod != "" {
		o.RefundDetails.RefundMethod = details.RefundMethod
	}
	if details.RefundNotes != "" {
		o.RefundDetails.RefundNotes = details.RefundNotes
	}
	o.RefundDetails.RefundedAt = &now
	o.RefundStatus = RefundStatusCompleted
	o.PaymentStatus = PaymentStatusRefunded
	return nil
}
