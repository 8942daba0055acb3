package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamsahq/lamsa-backend/pkg/enums"
)

// WalletTransaction is an immutable ledger entry with balance snapshots.
// balance_after must equal balance_before plus amount for credits and minus
// amount for debits; rows are never updated or deleted.
type WalletTransaction struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID      uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index"`
	UserID        uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Type          enums.WalletTransactionType `gorm:"column:type;not null"`
	Amount        decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceBefore decimal.Decimal             `gorm:"column:balance_before;type:numeric(12,2);not null"`
	BalanceAfter  decimal.Decimal             `gorm:"column:balance_after;type:numeric(12,2);not null"`
	ReferenceType enums.ReferenceType         `gorm:"column:reference_type"`
	ReferenceID   *uuid.UUID                  `gorm:"column:reference_id;type:uuid;index"`
	DescriptionEN string                      `gorm:"column:description_en"`
	DescriptionAR string                      `gorm:"column:description_ar"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
