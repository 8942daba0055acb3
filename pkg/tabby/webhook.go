package tabby

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Tabby-Signature"

// WebhookPayload is Tabby's webhook body: the payment resource itself. Tabby
// does not assign a native event id.
type WebhookPayload struct {
	Payment
}

// VerifySignature checks the webhook HMAC over the raw body. Fails closed
// when the secret is unconfigured.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	if c.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// ParseWebhook decodes a verified webhook body.
func ParseWebhook(payload []byte) (*WebhookPayload, error) {
	var event WebhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decoding tabby webhook: %w", err)
	}
	if event.ID == "" {
		return nil, errors.New("tabby webhook missing payment id")
	}
	return &event, nil
}

// EventID derives a stable dedup key from the payment id plus the receipt
// timestamp, since the provider ships no native event id.
func (w *WebhookPayload) EventID() string {
	stamp := w.ClosedAt
	if stamp == "" {
		stamp = w.CreatedAt
	}
	if stamp == "" {
		return w.Payment.ID + ":" + w.Status
	}
	return w.Payment.ID + ":" + stamp
}
