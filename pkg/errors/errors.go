package errors

import "fmt"

// ErrNotFound indicates a resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrForbidden indicates the principal does not own the resource
type ErrForbidden struct {
	Message string
}

func (e *ErrForbidden) Error() string {
	return e.Message
}

// ErrValidation indicates a client-caused bad request
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}

// ErrInvalidStateTransition indicates a disallowed status change
type ErrInvalidStateTransition struct {
	From interface{}
	To   interface{}
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %v to %v", e.From, e.To)
}

// ErrGateway indicates the payment gateway call failed or returned a
// non-success status. Recoverable by re-initiating with a new transaction
// reference.
type ErrGateway struct {
	Operation string
	Reason    string
}

func (e *ErrGateway) Error() string {
	return fmt.Sprintf("gateway %s failed: %s", e.Operation, e.Reason)
}

// ErrAlreadyCancelled is returned when cancelling an order that is already
// in the cancelled state. Carries the existing state so callers can report
// it without re-applying the transition.
type ErrAlreadyCancelled struct {
	OrderID string
}

func (e *ErrAlreadyCancelled) Error() string {
	return fmt.Sprintf("order already cancelled: %s", e.OrderID)
}

// ErrRefund indicates refund initiation or processing failed. The order's
// refund status stays pending/failed, never completed.
type ErrRefund struct {
	OrderID string
	Reason  string
}

func (e *ErrRefund) Error() string {
	return fmt.Sprintf("refund failed for order %s: %s", e.OrderID, e.Reason)
}
