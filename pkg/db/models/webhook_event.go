package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lamsahq/lamsa-backend/pkg/enums"
)

// WebhookEvent is one received provider callback. The (provider, event_id)
// unique index is the idempotency key for at-least-once delivery; the row is
// inserted with status=processing before any side effect runs.
type WebhookEvent struct {
	ID        uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Provider  enums.WebhookProvider    `gorm:"column:provider;not null;uniqueIndex:idx_webhook_events_provider_event_id"`
	EventID   string                   `gorm:"column:event_id;not null;uniqueIndex:idx_webhook_events_provider_event_id"`
	EventType string                   `gorm:"column:event_type"`
	Payload   json.RawMessage          `gorm:"column:payload;type:jsonb"`
	Status    enums.WebhookEventStatus `gorm:"column:status;not null;default:'pending'"`
	Attempts  int                      `gorm:"column:attempts;not null;default:0"`
	Error     *string                  `gorm:"column:error"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
