package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/config"
)

const (
	sandboxBaseURL = "https://sandbox.sslcommerz.com"
	liveBaseURL    = "https://securepay.sslcommerz.com"
)

// Client talks to the SSLCommerz gateway: session initiation, payment
// validation and refund initiation.
type Client struct {
	baseURL       string
	storeID       string
	storePassword string
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewClient creates a new gateway client
func NewClient(cfg config.GatewayConfig, logger *zap.Logger) *Client {
	baseURL := sandboxBaseURL
	if cfg.IsLive {
		baseURL = liveBaseURL
	}

	return &Client{
		baseURL:       baseURL,
		storeID:       cfg.StoreID,
		storePassword: cfg.StorePassword,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// NewClientWithBaseURL creates a client against an explicit endpoint.
// Used by tests to point at a stub server.
func NewClientWithBaseURL(baseURL string, cfg config.GatewayConfig, logger *zap.Logger) *Client {
	c := NewClient(cfg, logger)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// InitiateRequest carries the fields the gateway's session API requires
type InitiateRequest struct {
	TotalAmount     int64
	Currency        string
	TransactionID   string
	SuccessURL      string
	FailURL         string
	CancelURL       string
	IPNURL          string
	ProductName     string
	ProductCategory string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	CustomerCity    string
	CustomerPost    string
	CustomerCountry string
	ValueA          string // checkout id passthrough
	ValueB          string // user id passthrough
	ValueC          string // source identifier
	ValueD          string // timestamp
}

// InitiateResponse is the gateway's answer to a session initiation
type InitiateResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// ValidationResponse is the gateway's answer to a val_id re-query
type ValidationResponse struct {
	Status            string `json:"status"`
	TransactionID     string `json:"tran_id"`
	ValidationID      string `json:"val_id"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	CardType          string `json:"card_type"`
	CardNo            string `json:"card_no"`
	BankTransactionID string `json:"bank_tran_id"`
	StoreAmount       string `json:"store_amount"`
	TransactionDate   string `json:"tran_date"`
	Raw               json.RawMessage `json:"-"`
}

// IsValid reports whether the validator confirmed the payment
func (v *ValidationResponse) IsValid() bool {
	return v.Status == "VALID" || v.Status == "VALIDATED"
}

// AmountFloat parses the validator's string amount
func (v *ValidationResponse) AmountFloat() float64 {
	amount, _ := strconv.ParseFloat(v.Amount, 64)
	return amount
}

// StoreAmountFloat parses the validator's string store amount
func (v *ValidationResponse) StoreAmountFloat() float64 {
	amount, _ := strconv.ParseFloat(v.StoreAmount, 64)
	return amount
}

// RefundResponse is the gateway's answer to a refund initiation
type RefundResponse struct {
	APIConnect  string `json:"APIConnect"`
	Status      string `json:"status"`
	RefundRefID string `json:"refund_ref_id"`
	ErrorReason string `json:"errorReason"`
}

// Initiate creates a payment session. Exactly one outbound call; the caller
// decides whether to re-initiate on failure.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	form := url.Values{}
	form.Set("store_id", c.storeID)
	form.Set("store_passwd", c.storePassword)
	form.Set("total_amount", strconv.FormatInt(req.TotalAmount, 10))
	form.Set("currency", req.Currency)
	form.Set("tran_id", req.TransactionID)
	form.Set("success_url", req.SuccessURL)
	form.Set("fail_url", req.FailURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("ipn_url", req.IPNURL)
	form.Set("shipping_method", "Courier")
	form.Set("product_name", req.ProductName)
	form.Set("product_category", req.ProductCategory)
	form.Set("product_profile", "general")
	form.Set("cus_name", truncate(req.CustomerName, 50))
	form.Set("cus_email", req.CustomerEmail)
	form.Set("cus_add1", defaultString(req.CustomerAddress, "N/A"))
	form.Set("cus_city", defaultString(req.CustomerCity, "Dhaka"))
	form.Set("cus_postcode", defaultString(req.CustomerPost, "1000"))
	form.Set("cus_country", defaultString(req.CustomerCountry, "Bangladesh"))
	form.Set("cus_phone", req.CustomerPhone)
	form.Set("ship_name", truncate(req.CustomerName, 50))
	form.Set("ship_add1", defaultString(req.CustomerAddress, "N/A"))
	form.Set("ship_city", defaultString(req.CustomerCity, "Dhaka"))
	form.Set("ship_postcode", defaultString(req.CustomerPost, "1000"))
	form.Set("ship_country", defaultString(req.CustomerCountry, "Bangladesh"))
	form.Set("emi_option", "0")
	form.Set("multi_card_name", "mastercard,visacard,amexcard")
	form.Set("value_a", req.ValueA)
	form.Set("value_b", req.ValueB)
	form.Set("value_c", req.ValueC)
	form.Set("value_d", req.ValueD)

	endpoint := c.baseURL + "/gwprocess/v4/api.php"
	body, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}

	var resp InitiateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal initiate response: %w", err)
	}

	return &resp, nil
}

// Validate re-queries the gateway for a val_id. The IPN payload alone is
// never trusted; only this answer confirms a payment.
func (c *Client) Validate(ctx context.Context, valID string) (*ValidationResponse, error) {
	query := url.Values{}
	query.Set("val_id", valID)
	query.Set("store_id", c.storeID)
	query.Set("store_passwd", c.storePassword)
	query.Set("format", "json")

	endpoint := c.baseURL + "/validator/api/validationserverAPI.php?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp ValidationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal validation response: %w", err)
	}
	resp.Raw = body

	return &resp, nil
}

// InitiateRefund asks the gateway to refund against a bank transaction id.
// refundRefID must be fresh per attempt so a retry never collides with a
// prior one.
func (c *Client) InitiateRefund(ctx context.Context, bankTranID string, amount float64, remarks, refundRefID string) (*RefundResponse, error) {
	query := url.Values{}
	query.Set("bank_tran_id", bankTranID)
	query.Set("refund_amount", strconv.FormatFloat(amount, 'f', 2, 64))
	query.Set("refund_remarks", remarks)
	query.Set("refe_id", refundRefID)
	query.Set("store_id", c.storeID)
	query.Set("store_passwd", c.storePassword)
	query.Set("format", "json")

	endpoint := c.baseURL + "/validator/api/merchantTransIDvalidationAPI.php?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp RefundResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal refund response: %w", err)
	}

	return &resp, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
