package webhooks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
)

// Repository persists received webhook events. Insert races on the
// (provider, event_id) unique index are the dedup mechanism; callers inspect
// the insert error rather than pre-checking.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Insert writes the event row. A unique violation on
	// (provider, event_id) means the event was already recorded.
	Insert(ctx context.Context, event *models.WebhookEvent) error
	FindByProviderEvent(ctx context.Context, provider enums.WebhookProvider, eventID string) (*models.WebhookEvent, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	ListFailed(ctx context.Context, limit int) ([]models.WebhookEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a webhook event repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, event *models.WebhookEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindByProviderEvent(ctx context.Context, provider enums.WebhookProvider, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Update("status", enums.WebhookEventStatusProcessing).Error
}

func (r *repository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":   enums.WebhookEventStatusProcessed,
			"attempts": gorm.Expr("attempts + 1"),
			"error":    nil,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":   enums.WebhookEventStatusFailed,
			"attempts": gorm.Expr("attempts + 1"),
			"error":    reason,
		}).Error
}

func (r *repository) ListFailed(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.WebhookEventStatusFailed).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var events []models.WebhookEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
