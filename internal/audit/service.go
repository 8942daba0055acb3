package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/pkg/db/models"
)

// Resource types recorded by the settlement core.
const (
	ResourcePayment      = "payment"
	ResourceWallet       = "wallet"
	ResourceCredit       = "credit"
	ResourceWebhookEvent = "webhook_event"
	ResourceReferral     = "referral"
)

// Service defines operations that record audit entries.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, input RecordInput) (*models.AuditLog, error)
	ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]models.AuditLog, error)
}

type service struct {
	repo Repository
}

// RecordInput captures the immutable data an audit entry requires.
type RecordInput struct {
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   uuid.UUID       `json:"resource_id"`
	OldStatus    string          `json:"old_status"`
	NewStatus    string          `json:"new_status"`
	Amount       decimal.Decimal `json:"amount"`
	Details      json.RawMessage `json:"details"`
	UserID       *uuid.UUID      `json:"user_id"`
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.AuditLog, error) {
	if input.Action == "" {
		return nil, fmt.Errorf("audit action is required")
	}
	if input.ResourceType == "" {
		return nil, fmt.Errorf("audit resource type is required")
	}
	if input.ResourceID == uuid.Nil {
		return nil, fmt.Errorf("audit resource id is required")
	}

	entry := &models.AuditLog{
		Action:       input.Action,
		ResourceType: input.ResourceType,
		ResourceID:   input.ResourceID,
		OldStatus:    input.OldStatus,
		NewStatus:    input.NewStatus,
		Amount:       input.Amount,
		Details:      input.Details,
		UserID:       input.UserID,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]models.AuditLog, error) {
	if resourceID == uuid.Nil {
		return nil, fmt.Errorf("audit resource id is required")
	}
	return s.repo.ListByResource(ctx, resourceType, resourceID)
}
