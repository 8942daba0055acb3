package payments

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/lamsahq/lamsa-backend/pkg/enums"
	"github.com/lamsahq/lamsa-backend/pkg/errors"
)

// CreateChargeParams describes a charge request to an external gateway.
// Amounts are minor units (halalas); conversion from decimal happens at this
// boundary and nowhere else.
type CreateChargeParams struct {
	PaymentID   uuid.UUID
	AmountMinor int64
	Currency    enums.Currency
	Description string
	// Source is the provider-specific payment source payload (card token,
	// saved method reference) passed through untouched.
	Source      json.RawMessage
	CallbackURL string
	Metadata    map[string]string
}

// Charge is the provider-neutral view of a gateway charge. Status is already
// mapped into our vocabulary by the adapter; Raw keeps the original response
// body for the payment record.
type Charge struct {
	ID            string
	Status        enums.PaymentStatus
	AmountMinor   int64
	RefundedMinor int64
	Raw           json.RawMessage
}

// Gateway is the capability surface every payment provider adapter
// implements. Adapters translate between our types and the provider wire
// format; they do not touch the database.
type Gateway interface {
	Provider() enums.WebhookProvider
	CreateCharge(ctx context.Context, params CreateChargeParams) (*Charge, error)
	FetchCharge(ctx context.Context, chargeID string) (*Charge, error)
	Refund(ctx context.Context, chargeID string, amountMinor int64, reason string) (*Charge, error)
	Capture(ctx context.Context, chargeID string, amountMinor int64) (*Charge, error)
	Void(ctx context.Context, chargeID string) (*Charge, error)
}

// GatewayRegistry maps a payment method to its adapter. Wallet-only payments
// have no entry; ForMethod rejects them.
type GatewayRegistry map[enums.PaymentMethod]Gateway

func (r GatewayRegistry) ForMethod(method enums.PaymentMethod) (Gateway, error) {
	gw, ok := r[method]
	if !ok {
		return nil, errors.New(errors.CodeValidation, "no gateway configured for payment method "+method.String())
	}
	return gw, nil
}

// ForProvider resolves the adapter registered for a webhook provider.
func (r GatewayRegistry) ForProvider(provider enums.WebhookProvider) (Gateway, error) {
	for _, gw := range r {
		if gw.Provider() == provider {
			return gw, nil
		}
	}
	return nil, errors.New(errors.CodeValidation, "no gateway configured for provider "+provider.String())
}
