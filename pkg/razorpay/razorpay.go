package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultBaseURL is the production Razorpay API endpoint.
const DefaultBaseURL = "https://api.razorpay.com"

// Client talks to the Razorpay Orders API using HTTP basic auth with the
// key id/secret pair. The secret never appears in anything the client
// returns to callers.
type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

// Config holds Razorpay credentials and an optional base URL override
// (used by tests to point at a local server).
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

// NewClient creates a new Razorpay API client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// KeyID returns the public key identifier that the checkout widget needs.
func (c *Client) KeyID() string {
	return c.keyID
}

// Order is the subset of the gateway's order object this system consumes.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder creates a gateway order for the given amount in paise. On a
// non-2xx response the gateway's error description is returned, or a generic
// message if the body carries none.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	payload, err := json.Marshal(orderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error.Description != "" {
			return nil, fmt.Errorf("%s", errResp.Error.Description)
		}
		return nil, fmt.Errorf("Failed to create order")
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	return &order, nil
}

// SignPayment computes the signature Razorpay attaches to a successful
// payment: HMAC-SHA256 of "orderID|paymentID" keyed with the secret.
// Exposed so tests can forge valid callbacks.
func (c *Client) SignPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks a success callback's signature against the
// key secret. Comparison is constant time.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	expected := c.SignPayment(orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
