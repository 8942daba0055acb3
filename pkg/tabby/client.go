// Package tabby is a minimal client for the Tabby BNPL API: checkout session
// creation, payment lookup, capture, refund and close, plus webhook
// verification. Tabby's wire format carries amounts as decimal strings; this
// package converts from halalas at the boundary.
package tabby

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

	"github.com/shopspring/decimal"

	"github.com/lamsahq/lamsa-backend/pkg/config"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
)

const defaultBaseURL = "https://api.tabby.ai/api/v2"

var (
	errSecretKeyRequired     = errors.New("tabby secret key is required")
	errWebhookSecretRequired = errors.New("tabby webhook secret is required")
	errMerchantCodeRequired  = errors.New("tabby merchant code is required")
)

// Client talks to the Tabby REST API using bearer auth with the secret key.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
	merchantCode  string
}

// NewClient builds a Tabby client from configuration.
func NewClient(ctx context.Context, cfg config.TabbyConfig, logg *logger.Logger) (*Client, error) {
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errWebhookSecretRequired
	}
	merchantCode := strings.TrimSpace(cfg.MerchantCode)
	if merchantCode == "" {
		return nil, errMerchantCodeRequired
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
		logg.Info(ctx, "tabby client initialized")
	}

	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		secretKey:     secretKey,
		webhookSecret: cfg.WebhookSecret,
		merchantCode:  merchantCode,
	}, nil
}

// Transaction is one capture or refund attached to a payment.
type Transaction struct {
	ID        string `json:"id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Payment is Tabby's payment resource. Amounts are decimal strings.
type Payment struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Amount      string          `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Captures    []Transaction   `json:"captures"`
	Refunds     []Transaction   `json:"refunds"`
	Order       json.RawMessage `json:"order,omitempty"`
	CreatedAt   string          `json:"created_at"`
	ClosedAt    string          `json:"closed_at,omitempty"`
}

// CheckoutSession is the response to session creation; the hosted payment
// page URL lives under the installments product.
type CheckoutSession struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	Payment       Payment `json:"payment"`
	Configuration struct {
		AvailableProducts struct {
			Installments []struct {
				WebURL string `json:"web_url"`
			} `json:"installments"`
		} `json:"available_products"`
	} `json:"configuration"`
}

// CreateSessionParams describes a new checkout session.
type CreateSessionParams struct {
	Amount      int64
	Currency    string
	Description string
	ReferenceID string
	Buyer       json.RawMessage
}

// APIError is Tabby's error envelope.
type APIError struct {
	HTTPStatus int
	ErrorType  string `json:"errorType"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tabby: %s (%s, http %d)", e.Message, e.ErrorType, e.HTTPStatus)
}

// CreateSession opens a checkout session for the given halala amount.
func (c *Client) CreateSession(ctx context.Context, params CreateSessionParams) (*CheckoutSession, error) {
	payment := map[string]any{
		"amount":      MinorToAmount(params.Amount),
		"currency":    params.Currency,
		"description": params.Description,
		"order": map[string]string{
			"reference_id": params.ReferenceID,
		},
	}
	if params.Buyer != nil {
		payment["buyer"] = params.Buyer
	}
	body := map[string]any{
		"payment":       payment,
		"merchant_code": c.merchantCode,
		"lang":          "ar",
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// FetchPayment returns the current payment state.
func (c *Client) FetchPayment(ctx context.Context, id string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+id, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CapturePayment captures an authorized payment.
func (c *Client) CapturePayment(ctx context.Context, id string, amount int64) (*Payment, error) {
	body := map[string]string{"amount": MinorToAmount(amount)}
	var payment Payment
	if err := c.do(ctx, http.MethodPost, "/payments/"+id+"/captures", body, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// RefundPayment refunds part or all of a captured payment.
func (c *Client) RefundPayment(ctx context.Context, id string, amount int64, reason string) (*Payment, error) {
	body := map[string]string{"amount": MinorToAmount(amount)}
	if reason != "" {
		body["reason"] = reason
	}
	var payment Payment
	if err := c.do(ctx, http.MethodPost, "/payments/"+id+"/refunds", body, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ClosePayment closes an authorized payment without capture.
func (c *Client) ClosePayment(ctx context.Context, id string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodPost, "/payments/"+id+"/close", nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling tabby: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading tabby response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		if err := json.Unmarshal(payload, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(payload))
		}
		return apiErr
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding tabby response: %w", err)
	}
	return nil
}

var minorFactor = decimal.NewFromInt(100)

// MinorToAmount renders halalas as Tabby's decimal-string amount.
func MinorToAmount(minor int64) string {
	return decimal.NewFromInt(minor).Div(minorFactor).StringFixed(2)
}

// AmountToMinor parses a decimal-string amount back into halalas.
func AmountToMinor(amount string) (int64, error) {
	if strings.TrimSpace(amount) == "" {
		return 0, nil
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("parsing tabby amount %q: %w", amount, err)
	}
	return parsed.Mul(minorFactor).Round(0).IntPart(), nil
}

// RefundedMinor sums the refund transactions attached to a payment.
func (p *Payment) RefundedMinor() int64 {
	var total int64
	for _, refund := range p.Refunds {
		minor, err := AmountToMinor(refund.Amount)
		if err != nil {
			continue
		}
		total += minor
	}
	return total
}
