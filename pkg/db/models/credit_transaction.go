package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamsahq/lamsa-backend/pkg/enums"
)

// CreditTransaction is an immutable entry in the expiring marketing-credit
// pool. Amount is signed: positive grants, negative deductions. Available
// balance is derived by summing non-expired entries, not stored on a parent
// row. IsExpired is flipped by an external sweep job.
type CreditTransaction struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Type          enums.CreditTransactionType `gorm:"column:type;not null"`
	Amount        decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	Balance       decimal.Decimal             `gorm:"column:balance;type:numeric(12,2);not null"`
	ReferenceType enums.ReferenceType         `gorm:"column:reference_type"`
	ReferenceID   *uuid.UUID                  `gorm:"column:reference_id;type:uuid;index"`
	DescriptionEN string                      `gorm:"column:description_en"`
	DescriptionAR string                      `gorm:"column:description_ar"`
	ExpiresAt     *time.Time                  `gorm:"column:expires_at"`
	IsExpired     bool                        `gorm:"column:is_expired;not null;default:false"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
