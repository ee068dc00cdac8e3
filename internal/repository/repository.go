package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/deshikart/shopapi/internal/domain"
)

// CheckoutRepository persists checkout aggregates. Every state transition
// is a guarded compare-and-set: the boolean result reports whether this
// caller won the transition. Losing is not an error; callbacks race with no
// ordering guarantee and the first writer wins.
type CheckoutRepository interface {
	Create(ctx context.Context, checkout *domain.Checkout) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Checkout, error)
	// GetByTransactionID looks a checkout up by its gateway transaction
	// reference (sparse unique).
	GetByTransactionID(ctx context.Context, tranID string) (*domain.Checkout, error)
	// MarkInitiated records the gateway session. Only applies while the
	// checkout is in Pending, Failed or Cancelled (re-initiation).
	MarkInitiated(ctx context.Context, id uuid.UUID, tranID string, details domain.PaymentDetails) (bool, error)
	// MarkPaid flips is_paid exactly once. No-op when already paid.
	MarkPaid(ctx context.Context, tranID string, paidAt time.Time, details domain.PaymentDetails) (bool, error)
	// MarkFailed records a decline. No-op when the checkout is already paid.
	MarkFailed(ctx context.Context, tranID string, details domain.PaymentDetails) (bool, error)
	// MarkCancelled records a gateway-side cancellation. No-op when paid.
	MarkCancelled(ctx context.Context, tranID string, details domain.PaymentDetails) (bool, error)
	// Finalize sets is_finalized and the order reference in one statement,
	// keyed on is_finalized=false. This is the at-most-once guard for
	// order creation.
	Finalize(ctx context.Context, id uuid.UUID, orderID uuid.UUID, at time.Time) (bool, error)
	// AppendCallback records an inbound gateway notification. Always
	// appends, whether or not the notification changed state.
	AppendCallback(ctx context.Context, id uuid.UUID, entry domain.CallbackEntry) error
	// UpdatePayment is the manual payment-sync escape hatch
	// (PATCH /checkout/:id/payment).
	UpdatePayment(ctx context.Context, checkout *domain.Checkout) error
}

// OrderRepository persists order aggregates
type OrderRepository interface {
	// Create persists a new order. At most one order may ever exist per
	// checkout id; a conflicting create is a silent no-op and callers read
	// back by checkout id for the authoritative row.
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByCheckoutID(ctx context.Context, checkoutID uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	// ApplyCancellation writes the order's cancellation fields, guarded on
	// the order not already being cancelled.
	ApplyCancellation(ctx context.Context, order *domain.Order) (bool, error)
	// UpdateRefund writes the order's refund fields, guarded on the current
	// refund status being one of from.
	UpdateRefund(ctx context.Context, order *domain.Order, from []domain.RefundStatus) (bool, error)
}

// Repositories bundles all repositories
type Repositories struct {
	Checkout CheckoutRepository
	Order    OrderRepository
}
