package domain

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// CheckoutItem is a line item snapshot taken when the checkout is created.
// Never re-derived from the catalog.
type CheckoutItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
}

// ShippingAddress is the delivery address snapshot
type ShippingAddress struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// CustomerInfo holds contact details. Phone is mandatory because the
// gateway requires it.
type CustomerInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// GatewaySession is the gateway's response to a session initiation
type GatewaySession struct {
	Status      string `json:"status"`
	SessionKey  string `json:"session_key"`
	RedirectURL string `json:"redirect_url"`
}

// ValidationResult is the gateway's answer to a val_id re-query. The IPN
// payload is never trusted on its own; this is what the validator reported.
type ValidationResult struct {
	ValidationID      string          `json:"validation_id"`
	Status            string          `json:"status"`
	Amount            float64         `json:"amount"`
	Currency          string          `json:"currency"`
	CardType          string          `json:"card_type,omitempty"`
	CardNo            string          `json:"card_no,omitempty"`
	BankTransactionID string          `json:"bank_transaction_id,omitempty"`
	StoreAmount       float64         `json:"store_amount,omitempty"`
	TransactionDate   string          `json:"transaction_date,omitempty"`
	Raw               json.RawMessage `json:"raw,omitempty"`
}

// PaymentFailure records a gateway-reported decline or init failure
type PaymentFailure struct {
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// PaymentCancellation records a mid-flow cancellation at the gateway
type PaymentCancellation struct {
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// PaymentDetails collects everything the gateway reported about a
// transaction, one typed field per payload shape.
type PaymentDetails struct {
	TransactionID string               `json:"transaction_id,omitempty"`
	Currency      string               `json:"currency,omitempty"`
	InitiatedAt   *time.Time           `json:"initiated_at,omitempty"`
	Gateway       *GatewaySession      `json:"gateway,omitempty"`
	Validation    *ValidationResult    `json:"validation,omitempty"`
	IPNReceivedAt *time.Time           `json:"ipn_received_at,omitempty"`
	Failure       *PaymentFailure      `json:"failure,omitempty"`
	Cancellation  *PaymentCancellation `json:"cancellation,omitempty"`
}

// CallbackEntry is one inbound gateway notification, recorded regardless of
// whether it changed state.
type CallbackEntry struct {
	Channel    CallbackChannel `json:"channel"`
	ReceivedAt time.Time       `json:"received_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Checkout represents an in-flight purchase attempt. Mutable until
// finalized, then immutable.
type Checkout struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	OrderID          *uuid.UUID
	Items            []CheckoutItem
	ShippingAddress  ShippingAddress
	CustomerInfo     CustomerInfo
	PaymentMethod    string
	TotalPrice       float64
	OrderNotes       string
	ExchangeRate     float64
	AmountInBDT      int64
	PaymentStatus    PaymentStatus
	PaymentDetails   PaymentDetails
	SSLTransactionID string
	IsPaid           bool
	PaidAt           *time.Time
	IsFinalized      bool
	FinalizedAt      *time.Time
	Callbacks        []CallbackEntry
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BDTAmount converts a price to integer BDT at the given rate. The gateway
// rejects fractional and zero amounts.
func BDTAmount(totalPrice, exchangeRate float64) int64 {
	amount := int64(math.Round(totalPrice * exchangeRate))
	if amount < 1 {
		return 1
	}
	return amount
}

// RecomputeBDTAmount refreshes the derived gateway amount. Called at every
// totalPrice or exchangeRate mutation, not from a save hook.
func (c *Checkout) RecomputeBDTAmount() {
	c.AmountInBDT = BDTAmount(c.TotalPrice, c.ExchangeRate)
}

// IsPaymentSuccessful reports whether the checkout holds a confirmed payment
func (c *Checkout) IsPaymentSuccessful() bool {
	return c.IsPaid &&
		(c.PaymentStatus == PaymentStatusCompleted || c.PaymentStatus == PaymentStatusProcessing) &&
		c.SSLTransactionID != ""
}

// CustomerName returns the full name from the shipping address
func (c *Checkout) CustomerName() string {
	return c.ShippingAddress.FirstName + " " + c.ShippingAddress.LastName
}

// RefundDetails records the outcome of a refund for a cancelled paid order
type RefundDetails struct {
	RefundID     string     `json:"refund_id,omitempty"`
	RefundAmount float64    `json:"refund_amount,omitempty"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`
	RefundMethod string     `json:"refund_method,omitempty"`
	RefundNotes  string     `json:"refund_notes,omitempty"`
}

// Order is a finalized, paid purchase derived exactly once from a Checkout.
// Snapshot fields are independent of the checkout after creation.
type Order struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	CheckoutID         uuid.UUID
	Items              []CheckoutItem
	ShippingAddress    ShippingAddress
	CustomerInfo       CustomerInfo
	PaymentMethod      string
	TotalPrice         float64
	OrderNotes         string
	Status             OrderStatus
	PaymentStatus      PaymentStatus
	PaymentDetails     PaymentDetails
	IsPaid             bool
	PaidAt             *time.Time
	IsDelivered        bool
	DeliveredAt        *time.Time
	IsCancelled        bool
	CancelledAt        *time.Time
	CancellationReason string
	CancelledBy        CancelActor
	RefundStatus       RefundStatus
	RefundDetails      RefundDetails
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TransactionID returns the gateway transaction reference attached to the
// order's payment, if any.
func (o *Order) TransactionID() string {
	return o.PaymentDetails.TransactionID
}

// BankTransactionID returns the bank-level reference required for refunds
func (o *Order) BankTransactionID() string {
	if o.PaymentDetails.Validation == nil {
		return ""
	}
	return o.PaymentDetails.Validation.BankTransactionID
}
