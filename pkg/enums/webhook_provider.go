package enums

import "fmt"

// WebhookProvider names the external system that pushed a webhook.
type WebhookProvider string

const (
	WebhookProviderMoyasar WebhookProvider = "moyasar"
	WebhookProviderTabby   WebhookProvider = "tabby"
)

var validWebhookProviders = []WebhookProvider{
	WebhookProviderMoyasar,
	WebhookProviderTabby,
}

// String implements fmt.Stringer.
func (w WebhookProvider) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WebhookProvider.
func (w WebhookProvider) IsValid() bool {
	for _, candidate := range validWebhookProviders {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWebhookProvider converts raw input into a WebhookProvider.
func ParseWebhookProvider(value string) (WebhookProvider, error) {
	for _, candidate := range validWebhookProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook provider %q", value)
}
