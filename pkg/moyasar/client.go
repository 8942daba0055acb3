// Package moyasar is a minimal client for the Moyasar payments API: charge
// creation, lookup, refund, capture and void, plus webhook verification.
// Amounts are halalas end to end, matching the provider's wire format.
package moyasar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lamsahq/lamsa-backend/pkg/config"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
)

const defaultBaseURL = "https://api.moyasar.com/v1"

var (
	errSecretKeyRequired     = errors.New("moyasar secret key is required")
	errWebhookSecretRequired = errors.New("moyasar webhook secret is required")
)

// Client talks to the Moyasar REST API using basic auth with the secret key.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
	callbackURL   string
}

// NewClient builds a Moyasar client from configuration.
func NewClient(ctx context.Context, cfg config.MoyasarConfig, logg *logger.Logger) (*Client, error) {
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errWebhookSecretRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if logg != nil {
		logg.Info(ctx, "moyasar client initialized")
	}

	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		secretKey:     secretKey,
		webhookSecret: cfg.WebhookSecret,
		callbackURL:   strings.TrimSpace(cfg.CallbackURL),
	}, nil
}

// Payment is Moyasar's payment resource. Amount, Refunded and Captured are
// halalas.
type Payment struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Amount      int64             `json:"amount"`
	Fee         int64             `json:"fee"`
	Currency    string            `json:"currency"`
	Refunded    int64             `json:"refunded"`
	Captured    int64             `json:"captured"`
	Description string            `json:"description"`
	CallbackURL string            `json:"callback_url"`
	Source      json.RawMessage   `json:"source"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   string            `json:"created_at"`
}

// CreatePaymentParams is the charge creation request.
type CreatePaymentParams struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Source      json.RawMessage   `json:"source"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// APIError is Moyasar's error envelope.
type APIError struct {
	HTTPStatus int
	Type       string          `json:"type"`
	Message    string          `json:"message"`
	Errors     json.RawMessage `json:"errors"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("moyasar: %s (%s, http %d)", e.Message, e.Type, e.HTTPStatus)
}

// CreatePayment creates a charge. The configured callback URL is used unless
// the params carry their own.
func (c *Client) CreatePayment(ctx context.Context, params CreatePaymentParams) (*Payment, error) {
	if params.CallbackURL == "" {
		params.CallbackURL = c.callbackURL
	}
	return c.do(ctx, http.MethodPost, "/payments", params)
}

// FetchPayment returns the current charge state.
func (c *Client) FetchPayment(ctx context.Context, id string) (*Payment, error) {
	return c.do(ctx, http.MethodGet, "/payments/"+id, nil)
}

// RefundPayment refunds the given halala amount; zero refunds the full amount.
func (c *Client) RefundPayment(ctx context.Context, id string, amount int64) (*Payment, error) {
	body := map[string]int64{}
	if amount > 0 {
		body["amount"] = amount
	}
	return c.do(ctx, http.MethodPost, "/payments/"+id+"/refund", body)
}

// CapturePayment captures a previously authorized charge.
func (c *Client) CapturePayment(ctx context.Context, id string, amount int64) (*Payment, error) {
	body := map[string]int64{}
	if amount > 0 {
		body["amount"] = amount
	}
	return c.do(ctx, http.MethodPost, "/payments/"+id+"/capture", body)
}

// VoidPayment voids a charge before capture.
func (c *Client) VoidPayment(ctx context.Context, id string) (*Payment, error) {
	return c.do(ctx, http.MethodPost, "/payments/"+id+"/void", nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*Payment, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.SetBasicAuth(c.secretKey, "")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling moyasar: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading moyasar response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		if err := json.Unmarshal(payload, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(payload))
		}
		return nil, apiErr
	}

	var payment Payment
	if err := json.Unmarshal(payload, &payment); err != nil {
		return nil, fmt.Errorf("decoding moyasar response: %w", err)
	}
	return &payment, nil
}
