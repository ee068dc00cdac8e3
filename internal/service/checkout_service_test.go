package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deshikart/shopapi/internal/domain"
	"github.com/deshikart/shopapi/pkg/errors"
)

func validCreateRequest() CreateCheckoutRequest {
	return CreateCheckoutRequest{
		Items: []CheckoutItemRequest{
			{ProductID: "p1", Name: "Panjabi", UnitPrice: 25.5, Quantity: 2},
		},
		ShippingAddress: ShippingAddressRequest{
			FirstName: "Rahim", LastName: "Uddin",
			Address: "12 Road", City: "Dhaka", PostalCode: "1207",
		},
		CustomerInfo: CustomerInfoRequest{Email: "rahim@example.com", Phone: "01711111111"},
		TotalPrice:   51,
	}
}

func TestCreateCheckout(t *testing.T) {
	repos := newTestRepos()
	svc := NewCheckoutService(repos, testLogger())
	userID := uuid.New()

	checkout, err := svc.CreateCheckout(context.Background(), userID, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, userID, checkout.UserID)
	assert.Equal(t, domain.PaymentStatusPending, checkout.PaymentStatus)
	assert.False(t, checkout.IsPaid)
	assert.False(t, checkout.IsFinalized)

	// Defaults applied
	assert.Equal(t, "SSLCommerz", checkout.PaymentMethod)
	assert.Equal(t, "BD", checkout.ShippingAddress.Country)
	assert.Equal(t, float64(DefaultExchangeRate), checkout.ExchangeRate)
	assert.Equal(t, int64(4335), checkout.AmountInBDT)

	// Persisted
	stored, err := repos.Checkout.GetByID(context.Background(), checkout.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
	assert.Equal(t, "Panjabi", stored.Items[0].Name)
}

func TestCreateCheckoutValidation(t *testing.T) {
	repos := newTestRepos()
	svc := NewCheckoutService(repos, testLogger())

	t.Run("no items", func(t *testing.T) {
		req := validCreateRequest()
		req.Items = nil
		_, err := svc.CreateCheckout(context.Background(), uuid.New(), req)
		var validation *errors.ErrValidation
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "No items in checkout", validation.Message)
	})

	t.Run("missing phone", func(t *testing.T) {
		req := validCreateRequest()
		req.CustomerInfo.Phone = ""
		_, err := svc.CreateCheckout(context.Background(), uuid.New(), req)
		var validation *errors.ErrValidation
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "Phone number is required for payment processing", validation.Message)
	})
}

func TestGetCheckoutOwnerOnly(t *testing.T) {
	repos := newTestRepos()
	svc := NewCheckoutService(repos, testLogger())
	userID := uuid.New()

	checkout, err := svc.CreateCheckout(context.Background(), userID, validCreateRequest())
	require.NoError(t, err)

	got, err := svc.GetCheckout(context.Background(), userID, checkout.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.ID, got.ID)

	_, err = svc.GetCheckout(context.Background(), uuid.New(), checkout.ID)
	var forbidden *errors.ErrForbidden
	require.ErrorAs(t, err, &forbidden)
}

func TestUpdatePayment(t *testing.T) {
	repos := newTestRepos()
	svc := NewCheckoutService(repos, testLogger())
	userID := uuid.New()

	checkout, err := svc.CreateCheckout(context.Background(), userID, validCreateRequest())
	require.NoError(t, err)

	t.Run("invalid status rejected", func(t *testing.T) {
		_, err := svc.UpdatePayment(context.Background(), userID, checkout.ID, UpdatePaymentRequest{
			PaymentStatus: "paid",
		})
		var validation *errors.ErrValidation
		require.ErrorAs(t, err, &validation)
	})

	t.Run("sets status and transaction", func(t *testing.T) {
		paid := true
		got, err := svc.UpdatePayment(context.Background(), userID, checkout.ID, UpdatePaymentRequest{
			PaymentStatus: string(domain.PaymentStatusCompleted),
			TransactionID: "TXN-MANUAL-1",
			IsPaid:        &paid,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusCompleted, got.PaymentStatus)
		assert.Equal(t, "TXN-MANUAL-1", got.SSLTransactionID)
		assert.True(t, got.IsPaid)
		require.NotNil(t, got.PaidAt)
	})

	t.Run("isPaid never reverts", func(t *testing.T) {
		notPaid := false
		got, err := svc.UpdatePayment(context.Background(), userID, checkout.ID, UpdatePaymentRequest{
			IsPaid: &notPaid,
		})
		require.NoError(t, err)
		assert.True(t, got.IsPaid)
	})
}
