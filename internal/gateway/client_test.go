package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClientWithBaseURL(server.URL, config.GatewayConfig{
		StoreID:       "teststore",
		StorePassword: "testpass",
	}, zap.NewNop())
}

func TestInitiate(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/gwprocess/v4/api.php", r.URL.Path)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "teststore", r.PostForm.Get("store_id"))
		assert.Equal(t, "testpass", r.PostForm.Get("store_passwd"))
		assert.Equal(t, "8500", r.PostForm.Get("total_amount"))
		assert.Equal(t, "BDT", r.PostForm.Get("currency"))
		assert.Equal(t, "TXN-TEST-1", r.PostForm.Get("tran_id"))
		assert.Equal(t, "https://api.example.com/success", r.PostForm.Get("success_url"))
		assert.Equal(t, "01711111111", r.PostForm.Get("cus_phone"))
		// Blank optional fields fall back to gateway-safe defaults
		assert.Equal(t, "Dhaka", r.PostForm.Get("cus_city"))
		assert.Equal(t, "N/A", r.PostForm.Get("cus_add1"))
		assert.Equal(t, "ck-123", r.PostForm.Get("value_a"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"SUCCESS","sessionkey":"sess-1","GatewayPageURL":"https://pay.example.com/sess-1"}`))
	})

	resp, err := client.Initiate(context.Background(), InitiateRequest{
		TotalAmount:   8500,
		Currency:      "BDT",
		TransactionID: "TXN-TEST-1",
		SuccessURL:    "https://api.example.com/success",
		CustomerName:  "Rahim Uddin",
		CustomerEmail: "rahim@example.com",
		CustomerPhone: "01711111111",
		ValueA:        "ck-123",
	})
	require.NoError(t, err)

	assert.Equal(t, "SUCCESS", resp.Status)
	assert.Equal(t, "sess-1", resp.SessionKey)
	assert.Equal(t, "https://pay.example.com/sess-1", resp.GatewayPageURL)
}

func TestInitiateFailedStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"FAILED","failedreason":"Invalid credentials"}`))
	})

	resp, err := client.Initiate(context.Background(), InitiateRequest{TransactionID: "TXN-X"})
	require.NoError(t, err)
	assert.Equal(t, "FAILED", resp.Status)
	assert.Equal(t, "Invalid credentials", resp.FailedReason)
}

func TestInitiateHTTPError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Initiate(context.Background(), InitiateRequest{TransactionID: "TXN-X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestValidate(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/validator/api/validationserverAPI.php", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "VAL-1", q.Get("val_id"))
		assert.Equal(t, "teststore", q.Get("store_id"))
		assert.Equal(t, "json", q.Get("format"))

		w.Write([]byte(`{"status":"VALID","tran_id":"TXN-1","val_id":"VAL-1","amount":"8500.00","currency":"BDT","bank_tran_id":"BANK-1","store_amount":"8287.50","card_type":"VISA"}`))
	})

	resp, err := client.Validate(context.Background(), "VAL-1")
	require.NoError(t, err)

	assert.True(t, resp.IsValid())
	assert.Equal(t, "TXN-1", resp.TransactionID)
	assert.Equal(t, "BANK-1", resp.BankTransactionID)
	assert.Equal(t, 8500.0, resp.AmountFloat())
	assert.Equal(t, 8287.5, resp.StoreAmountFloat())
	assert.NotEmpty(t, resp.Raw)
}

func TestValidateRejected(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"INVALID_TRANSACTION","val_id":"VAL-BAD"}`))
	})

	resp, err := client.Validate(context.Background(), "VAL-BAD")
	require.NoError(t, err)
	assert.False(t, resp.IsValid())
}

func TestValidatedStatusAccepted(t *testing.T) {
	v := &ValidationResponse{Status: "VALIDATED"}
	assert.True(t, v.IsValid())
}

func TestInitiateRefund(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/validator/api/merchantTransIDvalidationAPI.php", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "BANK-1", q.Get("bank_tran_id"))
		assert.Equal(t, "100.00", q.Get("refund_amount"))
		assert.Equal(t, "Customer requested cancellation", q.Get("refund_remarks"))
		assert.Equal(t, "REFUND_abc_1", q.Get("refe_id"))
		assert.Equal(t, "teststore", q.Get("store_id"))

		w.Write([]byte(`{"APIConnect":"DONE","status":"success","refund_ref_id":"REF-GW-1"}`))
	})

	resp, err := client.InitiateRefund(context.Background(), "BANK-1", 100, "Customer requested cancellation", "REFUND_abc_1")
	require.NoError(t, err)

	assert.Equal(t, "DONE", resp.APIConnect)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "REF-GW-1", resp.RefundRefID)
}

func TestInitiateRefundFailure(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"APIConnect":"DONE","status":"failed","errorReason":"refund window closed"}`))
	})

	resp, err := client.InitiateRefund(context.Background(), "BANK-1", 100, "", "REFUND_abc_2")
	require.NoError(t, err)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "refund window closed", resp.ErrorReason)
}
