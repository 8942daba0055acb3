package tabby

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/lamsahq/lamsa-backend/pkg/enums"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"pay_01"}`)
	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	client := &Client{webhookSecret: "whsec_test"}
	if !client.VerifySignature(payload, signature) {
		t.Fatal("valid signature rejected")
	}
	if client.VerifySignature(payload, "deadbeef") {
		t.Fatal("invalid signature accepted")
	}
	if client.VerifySignature([]byte(`{"id":"pay_02"}`), signature) {
		t.Fatal("tampered payload accepted")
	}

	unconfigured := &Client{}
	if unconfigured.VerifySignature(payload, signature) {
		t.Fatal("unconfigured secret must fail closed")
	}
}

func TestParseWebhook(t *testing.T) {
	payload := []byte(`{
		"id": "pay_01",
		"status": "CLOSED",
		"amount": "80.00",
		"currency": "SAR",
		"created_at": "2026-01-15T10:00:00Z",
		"closed_at": "2026-01-15T10:05:00Z"
	}`)

	event, err := ParseWebhook(payload)
	if err != nil {
		t.Fatalf("ParseWebhook error: %v", err)
	}
	if event.Payment.ID != "pay_01" || event.Status != "CLOSED" {
		t.Fatalf("payment = %+v", event.Payment)
	}
}

func TestParseWebhookRejectsMissingPaymentID(t *testing.T) {
	if _, err := ParseWebhook([]byte(`{"status":"CLOSED"}`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWebhookEventID(t *testing.T) {
	tests := []struct {
		name    string
		payload WebhookPayload
		want    string
	}{
		{
			name: "closed payment uses closed_at",
			payload: WebhookPayload{Payment: Payment{
				ID:        "pay_01",
				Status:    "CLOSED",
				CreatedAt: "2026-01-15T10:00:00Z",
				ClosedAt:  "2026-01-15T10:05:00Z",
			}},
			want: "pay_01:2026-01-15T10:05:00Z",
		},
		{
			name: "open payment uses created_at",
			payload: WebhookPayload{Payment: Payment{
				ID:        "pay_01",
				Status:    "AUTHORIZED",
				CreatedAt: "2026-01-15T10:00:00Z",
			}},
			want: "pay_01:2026-01-15T10:00:00Z",
		},
		{
			name: "no timestamps falls back to status",
			payload: WebhookPayload{Payment: Payment{
				ID:     "pay_01",
				Status: "REJECTED",
			}},
			want: "pay_01:REJECTED",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.payload.EventID(); got != tc.want {
				t.Fatalf("EventID() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		status string
		want   enums.PaymentStatus
	}{
		{"CREATED", enums.PaymentStatusPending},
		{"AUTHORIZED", enums.PaymentStatusAuthorized},
		{"CLOSED", enums.PaymentStatusPaid},
		{"REJECTED", enums.PaymentStatusFailed},
		{"EXPIRED", enums.PaymentStatusCancelled},
		{"SOMETHING_NEW", enums.PaymentStatusPending},
	}
	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			if got := MapStatus(tc.status); got != tc.want {
				t.Fatalf("MapStatus(%q) = %s, want %s", tc.status, got, tc.want)
			}
		})
	}
}

func TestMapPaymentStatusRefinesRefunds(t *testing.T) {
	tests := []struct {
		name    string
		payment Payment
		want    enums.PaymentStatus
	}{
		{
			name:    "closed without refunds is paid",
			payment: Payment{Status: "CLOSED", Amount: "100.00"},
			want:    enums.PaymentStatusPaid,
		},
		{
			name: "closed with partial refund",
			payment: Payment{
				Status:  "CLOSED",
				Amount:  "100.00",
				Refunds: []Transaction{{Amount: "40.00"}},
			},
			want: enums.PaymentStatusPartialRefund,
		},
		{
			name: "closed with full refund",
			payment: Payment{
				Status:  "CLOSED",
				Amount:  "100.00",
				Refunds: []Transaction{{Amount: "40.00"}, {Amount: "60.00"}},
			},
			want: enums.PaymentStatusRefunded,
		},
		{
			name:    "rejected stays failed",
			payment: Payment{Status: "REJECTED", Amount: "100.00"},
			want:    enums.PaymentStatusFailed,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapPaymentStatus(&tc.payment); got != tc.want {
				t.Fatalf("MapPaymentStatus = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAmountConversions(t *testing.T) {
	tests := []struct {
		amount string
		minor  int64
	}{
		{"80.00", 8000},
		{"0.50", 50},
		{"1234.56", 123456},
		{"0.00", 0},
	}
	for _, tc := range tests {
		t.Run(tc.amount, func(t *testing.T) {
			minor, err := AmountToMinor(tc.amount)
			if err != nil {
				t.Fatalf("AmountToMinor error: %v", err)
			}
			if minor != tc.minor {
				t.Fatalf("AmountToMinor(%q) = %d, want %d", tc.amount, minor, tc.minor)
			}
			if got := MinorToAmount(tc.minor); got != tc.amount {
				t.Fatalf("MinorToAmount(%d) = %q, want %q", tc.minor, got, tc.amount)
			}
		})
	}
}

func TestAmountToMinorRejectsGarbage(t *testing.T) {
	if _, err := AmountToMinor("not-a-number"); err == nil {
		t.Fatal("expected parse error")
	}
}
