package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/internal/audit"
	"github.com/lamsahq/lamsa-backend/pkg/db/models"
)

type fakeAuditService struct {
	calls []struct {
		resourceType string
		resourceID   uuid.UUID
	}
	result []models.AuditLog
}

func (f *fakeAuditService) WithTx(tx *gorm.DB) audit.Service { return f }

func (f *fakeAuditService) Record(ctx context.Context, input audit.RecordInput) (*models.AuditLog, error) {
	return nil, nil
}

func (f *fakeAuditService) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]models.AuditLog, error) {
	f.calls = append(f.calls, struct {
		resourceType string
		resourceID   uuid.UUID
	}{resourceType, resourceID})
	return f.result, nil
}

func auditRouter(svc audit.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/audit/{resourceType}/{resourceId}", AuditTrail(svc, testLogger()))
	return r
}

func TestAuditTrail(t *testing.T) {
	paymentID := uuid.New()
	svc := &fakeAuditService{
		result: []models.AuditLog{
			{
				ID:           uuid.New(),
				Action:       "payment.refund",
				ResourceType: audit.ResourcePayment,
				ResourceID:   paymentID,
				OldStatus:    "paid",
				NewStatus:    "partial_refund",
				Amount:       decimal.NewFromInt(40),
			},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/audit/payment/"+paymentID.String(), nil)
	rec := httptest.NewRecorder()

	auditRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if len(svc.calls) != 1 {
		t.Fatalf("list calls = %d, want 1", len(svc.calls))
	}
	if call := svc.calls[0]; call.resourceType != "payment" || call.resourceID != paymentID {
		t.Fatalf("call = %+v", call)
	}

	var payload struct {
		Data []auditEntryResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Data) != 1 {
		t.Fatalf("entries = %d, want 1", len(payload.Data))
	}
	entry := payload.Data[0]
	if entry.Action != "payment.refund" || entry.Amount != "40.00" || entry.NewStatus != "partial_refund" {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestAuditTrailRejectsBadResourceID(t *testing.T) {
	svc := &fakeAuditService{}

	req := httptest.NewRequest(http.MethodGet, "/audit/payment/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	auditRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(svc.calls) != 0 {
		t.Fatal("service must not be called with an invalid id")
	}
}
