package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatusIsValid(t *testing.T) {
	valid := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusInitiated,
		PaymentStatusProcessing,
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusCancelled,
		PaymentStatusRefunded,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "expected %s to be valid", s)
	}

	assert.False(t, PaymentStatus("paid").IsValid())
	assert.False(t, PaymentStatus("").IsValid())
}

func TestPaymentStatusTransitions(t *testing.T) {
	tests := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{PaymentStatusPending, PaymentStatusInitiated, true},
		{PaymentStatusInitiated, PaymentStatusCompleted, true},
		{PaymentStatusInitiated, PaymentStatusFailed, true},
		{PaymentStatusInitiated, PaymentStatusCancelled, true},
		{PaymentStatusCompleted, PaymentStatusRefunded, true},
		// Failed and cancelled checkouts may re-initiate with a fresh
		// transaction reference
		{PaymentStatusFailed, PaymentStatusInitiated, true},
		{PaymentStatusCancelled, PaymentStatusInitiated, true},
		// A confirmed payment never downgrades
		{PaymentStatusCompleted, PaymentStatusFailed, false},
		{PaymentStatusCompleted, PaymentStatusCancelled, false},
		{PaymentStatusCompleted, PaymentStatusPending, false},
		{PaymentStatusRefunded, PaymentStatusCompleted, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderStatusIsValid(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancel} {
		assert.True(t, s.IsValid(), "expected %s to be valid", s)
	}
	assert.False(t, OrderStatus("Pending").IsValid())
}

func TestRefundStatusTransitions(t *testing.T) {
	tests := []struct {
		from    RefundStatus
		to      RefundStatus
		allowed bool
	}{
		{RefundStatusPending, RefundStatusInitiated, true},
		{RefundStatusPending, RefundStatusFailed, true},
		{RefundStatusInitiated, RefundStatusCompleted, true},
		{RefundStatusInitiated, RefundStatusFailed, true},
		// A failed refund stays retriable
		{RefundStatusFailed, RefundStatusInitiated, true},
		{RefundStatusCompleted, RefundStatusPending, false},
		{RefundStatusCompleted, RefundStatusInitiated, false},
		{RefundStatusNotApplicable, RefundStatusCompleted, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}
