package controllers

import (
	"net/http"
	"time"

	"github.com/lamsahq/lamsa-backend/api/responses"
	"github.com/lamsahq/lamsa-backend/api/validators"
	"github.com/lamsahq/lamsa-backend/internal/webhooks"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
)

type webhookEventResponse struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type,omitempty"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FailedWebhookEvents lists events that processing could not apply, for
// operator reconciliation.
func FailedWebhookEvents(svc webhooks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.ListFailed(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]webhookEventResponse, 0, len(items))
		for i := range items {
			event := &items[i]
			out = append(out, webhookEventResponse{
				ID:        event.ID.String(),
				Provider:  event.Provider.String(),
				EventID:   event.EventID,
				EventType: event.EventType,
				Status:    event.Status.String(),
				Attempts:  event.Attempts,
				Error:     event.Error,
				CreatedAt: event.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}
