// Package webhooks holds the provider callback endpoints. Both endpoints
// fail closed on signature verification and answer 200 once the event is
// durably recorded, duplicates included, so providers never retry-storm.
package webhooks

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/lamsahq/lamsa-backend/api/responses"
	"github.com/lamsahq/lamsa-backend/internal/webhooks"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
	"github.com/lamsahq/lamsa-backend/pkg/moyasar"
)

type replayGuard interface {
	MarkEventSeen(ctx context.Context, provider, eventID string, ttl time.Duration) (bool, error)
	UnmarkEvent(ctx context.Context, provider, eventID string) error
}

type moyasarVerifier interface {
	VerifySignature(payload []byte, signature string) bool
}

// MoyasarWebhook ingests Moyasar payment callbacks.
func MoyasarWebhook(svc webhooks.Service, client moyasarVerifier, guard replayGuard, guardTTL time.Duration, logg *logger.Logger) http.HandlerFunc {
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

		signature := r.Header.Get(moyasar.SignatureHeader)
		if !client.VerifySignature(payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		event, err := moyasar.ParseWebhook(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload"))
			return
		}

		provider := enums.WebhookProviderMoyasar
		if skip := checkReplayGuard(ctx, guard, provider.String(), event.ID, guardTTL, logg); skip {
			responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
			return
		}

		result, err := svc.Ingest(ctx, webhooks.Event{
			Provider:         provider,
			EventID:          event.ID,
			EventType:        event.Type,
			GatewayPaymentID: event.Data.ID,
			Status:           moyasar.MapStatus(event.Data.Status),
			RefundedMinor:    event.Data.Refunded,
			Payload:          payload,
		})
		if err != nil {
			releaseReplayGuard(ctx, guard, provider.String(), event.ID, logg)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		writeIngestResult(w, result)
	}
}

// checkReplayGuard consults the redis fast path. Guard failures never block
// ingestion; the durable dedup index is the source of truth.
func checkReplayGuard(ctx context.Context, guard replayGuard, provider, eventID string, ttl time.Duration, logg *logger.Logger) bool {
	if guard == nil {
		return false
	}
	first, err := guard.MarkEventSeen(ctx, provider, eventID, ttl)
	if err != nil {
		if logg != nil {
			logg.Warn(ctx, "webhook replay guard unavailable")
		}
		return false
	}
	return !first
}

// releaseReplayGuard drops the guard key for an event that was never durably
// recorded, so the provider's retry is ingested instead of answered as a
// duplicate.
func releaseReplayGuard(ctx context.Context, guard replayGuard, provider, eventID string, logg *logger.Logger) {
	if guard == nil {
		return
	}
	if err := guard.UnmarkEvent(ctx, provider, eventID); err != nil && logg != nil {
		logg.Warn(ctx, "webhook replay guard release failed")
	}
}

func writeIngestResult(w http.ResponseWriter, result *webhooks.IngestResult) {
	status := "processed"
	switch {
	case result.Duplicate:
		status = "duplicate"
	case result.Event != nil && result.Event.Status == enums.WebhookEventStatusFailed:
		status = "recorded"
	}
	responses.WriteSuccess(w, map[string]string{"status": status})
}
