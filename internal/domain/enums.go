package domain

// PaymentStatus represents the payment state of a checkout
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "Pending"
	PaymentStatusInitiated  PaymentStatus = "Initiated"
	PaymentStatusProcessing PaymentStatus = "Processing"
	PaymentStatusCompleted  PaymentStatus = "Completed"
	PaymentStatusFailed     PaymentStatus = "Failed"
	PaymentStatusCancelled  PaymentStatus = "Cancelled"
	PaymentStatusRefunded   PaymentStatus = "Refunded"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending,
		PaymentStatusInitiated,
		PaymentStatusProcessing,
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusCancelled,
		PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a checkout payment status transition is valid.
// Failed and Cancelled may return to Initiated because a re-initiation mints
// a fresh transaction reference.
func (s PaymentStatus) CanTransitionTo(newStatus PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return newStatus == PaymentStatusInitiated ||
			newStatus == PaymentStatusFailed ||
			newStatus == PaymentStatusCancelled
	case PaymentStatusInitiated:
		return newStatus == PaymentStatusProcessing ||
			newStatus == PaymentStatusCompleted ||
			newStatus == PaymentStatusFailed ||
			newStatus == PaymentStatusCancelled
	case PaymentStatusProcessing:
		return newStatus == PaymentStatusCompleted ||
			newStatus == PaymentStatusRefunded
	case PaymentStatusCompleted:
		return newStatus == PaymentStatusRefunded
	case PaymentStatusFailed, PaymentStatusCancelled:
		return newStatus == PaymentStatusInitiated
	case PaymentStatusRefunded:
		return false // Terminal state
	default:
		return false
	}
}

// OrderStatus represents the fulfillment state of an order. Independent
// axis from payment status.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancel     OrderStatus = "Cancel"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancel:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a fulfillment status transition is valid
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusProcessing:
		return newStatus == OrderStatusShipped || newStatus == OrderStatusCancel
	case OrderStatusShipped:
		return newStatus == OrderStatusDelivered || newStatus == OrderStatusCancel
	case OrderStatusDelivered, OrderStatusCancel:
		return false // Terminal states
	default:
		return false
	}
}

// RefundStatus tracks refund progress after cancellation of a paid order
type RefundStatus string

const (
	RefundStatusNotApplicable RefundStatus = "not_applicable"
	RefundStatusPending       RefundStatus = "pending"
	RefundStatusInitiated     RefundStatus = "initiated"
	RefundStatusCompleted     RefundStatus = "completed"
	RefundStatusFailed        RefundStatus = "failed"
)

// CanTransitionTo checks if a refund status transition is valid. A failed
// initiation is retriable.
func (s RefundStatus) CanTransitionTo(newStatus RefundStatus) bool {
	switch s {
	case RefundStatusPending:
		return newStatus == RefundStatusInitiated ||
			newStatus == RefundStatusCompleted ||
			newStatus == RefundStatusFailed
	case RefundStatusInitiated:
		return newStatus == RefundStatusCompleted ||
			newStatus == RefundStatusFailed
	case RefundStatusFailed:
		return newStatus == RefundStatusInitiated
	case RefundStatusNotApplicable, RefundStatusCompleted:
		return false
	default:
		return false
	}
}

// CancelActor identifies who initiated an order cancellation
type CancelActor string

const (
	CancelActorCustomer CancelActor = "customer"
	CancelActorAdmin    CancelActor = "admin"
	CancelActorSystem   CancelActor = "system"
)

// CallbackChannel identifies which gateway notification channel delivered
// a callback
type CallbackChannel string

const (
	CallbackChannelSuccess CallbackChannel = "success"
	CallbackChannelFail    CallbackChannel = "fail"
	CallbackChannelCancel  CallbackChannel = "cancel"
	CallbackChannelIPN     CallbackChannel = "ipn"
)
