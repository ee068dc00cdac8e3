package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/deshikart/shopapi/internal/gateway"
)

// PaymentGateway is the outbound contract with the payment provider
type PaymentGateway interface {
	Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResponse, error)
	Validate(ctx context.Context, valID string) (*gateway.ValidationResponse, error)
	InitiateRefund(ctx context.Context, bankTranID string, amount float64, remarks, refundRefID string) (*gateway.RefundResponse, error)
}

// CartClearer removes a user's cart after finalization. Best-effort.
type CartClearer interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}

// EventPublisher emits lifecycle events. Best-effort.
type EventPublisher interface {
	Publish(topic string, event interface{})
}

// NopPublisher drops events. Used when kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(string, interface{}) {}

// NopClearer skips cart clearing. Used when redis is unavailable.
type NopClearer struct{}

func (NopClearer) Clear(context.Context, uuid.UUID) error { return nil }

// CheckoutItemRequest is a line item in a checkout creation request
type CheckoutItemRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Image     string  `json:"image"`
	UnitPrice float64 `json:"price" binding:"required,min=0"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
}

// ShippingAddressRequest is the delivery address in a checkout creation
// request
type ShippingAddressRequest struct {
	FirstName  string `json:"firstName" binding:"required"`
	LastName   string `json:"lastName" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country"`
}

// CustomerInfoRequest carries contact details; the gateway mandates a phone
// number
type CustomerInfoRequest struct {
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

// CreateCheckoutRequest is the POST /checkout payload
type CreateCheckoutRequest struct {
	Items           []CheckoutItemRequest  `json:"items" binding:"required"`
	ShippingAddress ShippingAddressRequest `json:"shippingAddress" binding:"required"`
	CustomerInfo    CustomerInfoRequest    `json:"customerInfo" binding:"required"`
	PaymentMethod   string                 `json:"paymentMethod"`
	TotalPrice      float64                `json:"totalPrice" binding:"required,min=0"`
	OrderNotes      string                 `json:"orderNotes"`
}

// InitPaymentRequest is the POST /checkout/gateway/init payload
type InitPaymentRequest struct {
	CheckoutID    string `json:"checkoutId" binding:"required"`
	TransactionID string `json:"tran_id"`
	CustomerCity  string `json:"cus_city"`
	ProductName   string `json:"product_name"`
}

// InitPaymentResult is what the client needs to redirect the browser
type InitPaymentResult struct {
	Status        string `json:"status"`
	RedirectURL   string `json:"redirectURL"`
	SessionKey    string `json:"sessionKey"`
	TransactionID string `json:"transactionId"`
}

// UpdatePaymentRequest is the PATCH /checkout/:id/payment payload
type UpdatePaymentRequest struct {
	PaymentStatus string `json:"paymentStatus"`
	TransactionID string `json:"transactionId"`
	IsPaid        *bool  `json:"isPaid"`
}

// IPNPayload is the asynchronous server-to-server notification body
type IPNPayload struct {
	TransactionID string `json:"tran_id" form:"tran_id"`
	ValidationID  string `json:"val_id" form:"val_id"`
	Status        string `json:"status" form:"status"`
}

// CancelOrderRequest is the POST /orders/:id/cancel payload
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// RefundRequest is the POST /orders/:id/refund payload
type RefundRequest struct {
	RefundAmount float64 `json:"refundAmount"`
	RefundMethod string  `json:"refundMethod"`
	RefundNotes  string  `json:"refundNotes"`
}

// CancellationStatusResult answers GET /orders/:id/cancellation-status
type CancellationStatusResult struct {
	CanCancel     bool   `json:"canCancel"`
	TimeRemaining string `json:"timeRemaining,omitempty"`
	Reason        string `json:"reason,omitempty"`
	OrderStatus   string `json:"orderStatus"`
	PaymentStatus string `json:"paymentStatus"`
	IsDelivered   bool   `json:"isDelivered"`
}
