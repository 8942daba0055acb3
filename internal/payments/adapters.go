package payments

import (
	"context"
	"encoding/json"

	"github.com/lamsahq/lamsa-backend/pkg/enums"
	"github.com/lamsahq/lamsa-backend/pkg/metrics"
	"github.com/lamsahq/lamsa-backend/pkg/moyasar"
	"github.com/lamsahq/lamsa-backend/pkg/tabby"
)

// moyasarGateway adapts the Moyasar client to the Gateway capability set.
type moyasarGateway struct {
	client *moyasar.Client
}

// NewMoyasarGateway wraps a Moyasar client as a payment gateway.
func NewMoyasarGateway(client *moyasar.Client) Gateway {
	return &moyasarGateway{client: client}
}

func (g *moyasarGateway) Provider() enums.WebhookProvider {
	return enums.WebhookProviderMoyasar
}

func (g *moyasarGateway) CreateCharge(ctx context.Context, params CreateChargeParams) (*Charge, error) {
	payment, err := g.client.CreatePayment(ctx, moyasar.CreatePaymentParams{
		Amount:      params.AmountMinor,
		Currency:    params.Currency.String(),
		Description: params.Description,
		CallbackURL: params.CallbackURL,
		Source:      params.Source,
		Metadata:    params.Metadata,
	})
	return g.observe(ctx, "create_charge", payment, err)
}

func (g *moyasarGateway) FetchCharge(ctx context.Context, chargeID string) (*Charge, error) {
	payment, err := g.client.FetchPayment(ctx, chargeID)
	return g.observe(ctx, "fetch_charge", payment, err)
}

func (g *moyasarGateway) Refund(ctx context.Context, chargeID string, amountMinor int64, _ string) (*Charge, error) {
	payment, err := g.client.RefundPayment(ctx, chargeID, amountMinor)
	return g.observe(ctx, "refund", payment, err)
}

func (g *moyasarGateway) Capture(ctx context.Context, chargeID string, amountMinor int64) (*Charge, error) {
	payment, err := g.client.CapturePayment(ctx, chargeID, amountMinor)
	return g.observe(ctx, "capture", payment, err)
}

func (g *moyasarGateway) Void(ctx context.Context, chargeID string) (*Charge, error) {
	payment, err := g.client.VoidPayment(ctx, chargeID)
	return g.observe(ctx, "void", payment, err)
}

func (g *moyasarGateway) observe(_ context.Context, operation string, payment *moyasar.Payment, err error) (*Charge, error) {
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(g.Provider().String(), operation, "error").Inc()
		return nil, err
	}
	metrics.GatewayRequests.WithLabelValues(g.Provider().String(), operation, "ok").Inc()
	raw, _ := json.Marshal(payment)
	return &Charge{
		ID:            payment.ID,
		Status:        moyasar.MapStatus(payment.Status),
		AmountMinor:   payment.Amount,
		RefundedMinor: payment.Refunded,
		Raw:           raw,
	}, nil
}

// tabbyGateway adapts the Tabby client to the Gateway capability set.
// Charges open checkout sessions; capture, refund and close act on the
// session's payment.
type tabbyGateway struct {
	client *tabby.Client
}

// NewTabbyGateway wraps a Tabby client as a payment gateway.
func NewTabbyGateway(client *tabby.Client) Gateway {
	return &tabbyGateway{client: client}
}

func (g *tabbyGateway) Provider() enums.WebhookProvider {
	return enums.WebhookProviderTabby
}

func (g *tabbyGateway) CreateCharge(ctx context.Context, params CreateChargeParams) (*Charge, error) {
	session, err := g.client.CreateSession(ctx, tabby.CreateSessionParams{
		Amount:      params.AmountMinor,
		Currency:    params.Currency.String(),
		Description: params.Description,
		ReferenceID: params.PaymentID.String(),
		Buyer:       params.Source,
	})
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(g.Provider().String(), "create_charge", "error").Inc()
		return nil, err
	}
	metrics.GatewayRequests.WithLabelValues(g.Provider().String(), "create_charge", "ok").Inc()
	raw, _ := json.Marshal(session)
	return &Charge{
		ID:          session.Payment.ID,
		Status:      tabby.MapPaymentStatus(&session.Payment),
		AmountMinor: params.AmountMinor,
		Raw:         raw,
	}, nil
}

func (g *tabbyGateway) FetchCharge(ctx context.Context, chargeID string) (*Charge, error) {
	payment, err := g.client.FetchPayment(ctx, chargeID)
	return g.observe("fetch_charge", payment, err)
}

func (g *tabbyGateway) Refund(ctx context.Context, chargeID string, amountMinor int64, reason string) (*Charge, error) {
	payment, err := g.client.RefundPayment(ctx, chargeID, amountMinor, reason)
	return g.observe("refund", payment, err)
}

func (g *tabbyGateway) Capture(ctx context.Context, chargeID string, amountMinor int64) (*Charge, error) {
	payment, err := g.client.CapturePayment(ctx, chargeID, amountMinor)
	return g.observe("capture", payment, err)
}

func (g *tabbyGateway) Void(ctx context.Context, chargeID string) (*Charge, error) {
	payment, err := g.client.ClosePayment(ctx, chargeID)
	return g.observe("void", payment, err)
}

func (g *tabbyGateway) observe(operation string, payment *tabby.Payment, err error) (*Charge, error) {
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(g.Provider().String(), operation, "error").Inc()
		return nil, err
	}
	metrics.GatewayRequests.WithLabelValues(g.Provider().String(), operation, "ok").Inc()
	raw, _ := json.Marshal(payment)
	amount, _ := tabby.AmountToMinor(payment.Amount)
	return &Charge{
		ID:            payment.ID,
		Status:        tabby.MapPaymentStatus(payment),
		AmountMinor:   amount,
		RefundedMinor: payment.RefundedMinor(),
		Raw:           raw,
	}, nil
}
