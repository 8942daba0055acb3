package webhooks

import (
	"io"
	"net/http"
	"time"

	"github.com/lamsahq/lamsa-backend/api/responses"
	"github.com/lamsahq/lamsa-backend/internal/webhooks"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
	"github.com/lamsahq/lamsa-backend/pkg/tabby"
)

type tabbyVerifier interface {
	VerifySignature(payload []byte, signature string) bool
}

// TabbyWebhook ingests Tabby payment callbacks. Tabby ships no native event
// id; the parsed payload derives one from the payment id plus receipt
// timestamp.
func TabbyWebhook(svc webhooks.Service, client tabbyVerifier, guard replayGuard, guardTTL time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(tabby.SignatureHeader)
		if !client.VerifySignature(payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		event, err := tabby.ParseWebhook(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload"))
			return
		}

		provider := enums.WebhookProviderTabby
		eventID := event.EventID()
		if skip := checkReplayGuard(ctx, guard, provider.String(), eventID, guardTTL, logg); skip {
			responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
			return
		}

		result, err := svc.Ingest(ctx, webhooks.Event{
			Provider:         provider,
			EventID:          eventID,
			EventType:        event.Status,
			GatewayPaymentID: event.Payment.ID,
			Status:           tabby.MapPaymentStatus(&event.Payment),
			RefundedMinor:    event.RefundedMinor(),
			Payload:          payload,
		})
		if err != nil {
			releaseReplayGuard(ctx, guard, provider.String(), eventID, logg)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		writeIngestResult(w, result)
	}
}
