package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lamsahq/lamsa-backend/api/responses"
	"github.com/lamsahq/lamsa-backend/internal/audit"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
)

type auditEntryResponse struct {
	ID           string          `json:"id"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	OldStatus    string          `json:"old_status,omitempty"`
	NewStatus    string          `json:"new_status,omitempty"`
	Amount       string          `json:"amount"`
	Details      json.RawMessage `json:"details,omitempty"`
	UserID       *string         `json:"user_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// AuditTrail lists the audit entries recorded against one resource, newest
// first. Operator surface for settlement disputes.
func AuditTrail(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		resourceType := chi.URLParam(r, "resourceType")
		if resourceType == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "resource type required"))
			return
		}
		resourceID, err := parseUUIDParam(r, "resourceId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.ListByResource(ctx, resourceType, resourceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]auditEntryResponse, 0, len(items))
		for i := range items {
			entry := &items[i]
			resp := auditEntryResponse{
				ID:           entry.ID.String(),
				Action:       entry.Action,
				ResourceType: entry.ResourceType,
				ResourceID:   entry.ResourceID.String(),
				OldStatus:    entry.OldStatus,
				NewStatus:    entry.NewStatus,
				Amount:       entry.Amount.StringFixed(2),
				Details:      entry.Details,
				CreatedAt:    entry.CreatedAt,
			}
			if entry.UserID != nil {
				userID := entry.UserID.String()
				resp.UserID = &userID
			}
			out = append(out, resp)
		}
		responses.WriteSuccess(w, out)
	}
}
