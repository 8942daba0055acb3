// Package notifications pushes payment status transitions to the
// notification collaborator over Pub/Sub. Delivery beyond the publish call is
// not this service's concern.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/lamsahq/lamsa-backend/internal/payments"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
)

const publishTimeout = 15 * time.Second

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) *gcppubsub.PublishResult
}

// Publisher implements the payment status notifier on top of a Pub/Sub topic.
type Publisher struct {
	topic publisher
	log   *logger.Logger
}

// paymentStatusMessage is the wire shape consumed by the notification worker.
type paymentStatusMessage struct {
	UserID    string `json:"user_id"`
	PaymentID string `json:"payment_id"`
	BookingID string `json:"booking_id"`
	NewStatus string `json:"new_status"`
	Amount    string `json:"amount"`
}

// NewPublisher builds a notification publisher. A nil topic is allowed and
// yields a publisher that drops messages after logging, so environments
// without Pub/Sub (local, tests) still run.
func NewPublisher(topic *gcppubsub.Publisher, log *logger.Logger) (*Publisher, error) {
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	p := &Publisher{log: log}
	if topic != nil {
		p.topic = topic
	}
	return p, nil
}

// PaymentStatusChanged publishes one status transition event.
func (p *Publisher) PaymentStatusChanged(ctx context.Context, change payments.StatusChange) error {
	if p.topic == nil {
		p.log.Info(ctx, "notification topic not configured; dropping payment status event")
		return nil
	}

	data, err := json.Marshal(paymentStatusMessage{
		UserID:    change.UserID.String(),
		PaymentID: change.PaymentID.String(),
		BookingID: change.BookingID.String(),
		NewStatus: change.NewStatus.String(),
		Amount:    change.Amount.StringFixed(2),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal payment status event")
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := p.topic.Publish(publishCtx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": "payment.status_changed",
			"payment_id": change.PaymentID.String(),
		},
	})
	if _, err := result.Get(publishCtx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish payment status event")
	}
	return nil
}
