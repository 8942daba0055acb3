package moyasar

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
const SignatureHeader = "X-Moyasar-Signature"

// WebhookPayload is Moyasar's webhook envelope: a native event id, an event
// type and the embedded payment resource.
type WebhookPayload struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	CreatedAt string  `json:"created_at"`
	Data      Payment `json:"data"`
}

// VerifySignature checks the webhook HMAC over the raw body. Fails closed
// when the secret is unconfigured.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	return verifySignature(c.webhookSecret, payload, signature)
}

func verifySignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// ParseWebhook decodes a verified webhook body. The envelope id is the
// dedup event id; Moyasar always provides one.
func ParseWebhook(payload []byte) (*WebhookPayload, error) {
	var event WebhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decoding moyasar webhook: %w", err)
	}
	if event.ID == "" {
		return nil, errors.New("moyasar webhook missing event id")
	}
	if event.Data.ID == "" {
		return nil, errors.New("moyasar webhook missing payment id")
	}
	return &event, nil
}
