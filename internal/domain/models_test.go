package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBDTAmount(t *testing.T) {
	tests := []struct {
		name         string
		totalPrice   float64
		exchangeRate float64
		want         int64
	}{
		{"whole amount", 100, 85, 8500},
		{"rounds half up", 1.5, 1, 2},
		{"rounds down", 10.004, 100, 1000},
		{"never below one", 0.001, 1, 1},
		{"zero price floors to one", 0, 85, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BDTAmount(tt.totalPrice, tt.exchangeRate))
		})
	}
}

func TestRecomputeBDTAmount(t *testing.T) {
	c := &Checkout{TotalPrice: 12.34, ExchangeRate: 85}
	c.RecomputeBDTAmount()
	assert.Equal(t, int64(1049), c.AmountInBDT)

	c.TotalPrice = 20
	c.RecomputeBDTAmount()
	assert.Equal(t, int64(1700), c.AmountInBDT)
}

func TestIsPaymentSuccessful(t *testing.T) {
	c := &Checkout{
		IsPaid:           true,
		PaymentStatus:    PaymentStatusCompleted,
		SSLTransactionID: "TXN-AB12CD34-1",
	}
	assert.True(t, c.IsPaymentSuccessful())

	c.PaymentStatus = PaymentStatusProcessing
	assert.True(t, c.IsPaymentSuccessful())

	c.SSLTransactionID = ""
	assert.False(t, c.IsPaymentSuccessful())

	c.SSLTransactionID = "TXN-AB12CD34-1"
	c.IsPaid = false
	assert.False(t, c.IsPaymentSuccessful())

	c.IsPaid = true
	c.PaymentStatus = PaymentStatusFailed
	assert.False(t, c.IsPaymentSuccessful())
}

func TestCustomerName(t *testing.T) {
	c := &Checkout{ShippingAddress: ShippingAddress{FirstName: "Rahim", LastName: "Uddin"}}
	assert.Equal(t, "Rahim Uddin", c.CustomerName())
}
