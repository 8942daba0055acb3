package enums

import "fmt"

// WebhookEventStatus tracks processing of a received provider callback.
type WebhookEventStatus string

const (
	WebhookEventStatusPending    WebhookEventStatus = "pending"
	WebhookEventStatusProcessing WebhookEventStatus = "processing"
	WebhookEventStatusProcessed  WebhookEventStatus = "processed"
	WebhookEventStatusFailed     WebhookEventStatus = "failed"
)

var validWebhookEventStatuses = []WebhookEventStatus{
	WebhookEventStatusPending,
	WebhookEventStatusProcessing,
	WebhookEventStatusProcessed,
	WebhookEventStatusFailed,
}

// String implements fmt.Stringer.
func (w WebhookEventStatus) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WebhookEventStatus.
func (w WebhookEventStatus) IsValid() bool {
	for _, candidate := range validWebhookEventStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWebhookEventStatus converts raw input into a WebhookEventStatus.
func ParseWebhookEventStatus(value string) (WebhookEventStatus, error) {
	for _, candidate := range validWebhookEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook event status %q", value)
}
