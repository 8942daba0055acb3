package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuditLog records every payment state transition and webhook outcome,
// append-only.
type AuditLog struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Action       string          `gorm:"column:action;not null;index"`
	ResourceType string          `gorm:"column:resource_type;not null"`
	ResourceID   uuid.UUID       `gorm:"column:resource_id;type:uuid;not null;index"`
	OldStatus    string          `gorm:"column:old_status"`
	NewStatus    string          `gorm:"column:new_status"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(12,2)"`
	Details      json.RawMessage `gorm:"column:details;type:jsonb"`
	UserID       *uuid.UUID      `gorm:"column:user_id;type:uuid;index"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
