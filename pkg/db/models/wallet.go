package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is the cash-equivalent stored-value balance, one row per user.
// Balance only moves through WalletTransaction rows created in the same
// locked transaction; it never goes negative.
type Wallet struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Balance     decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	TotalEarned decimal.Decimal `gorm:"column:total_earned;type:numeric(12,2);not null;default:0"`
	TotalSpent  decimal.Decimal `gorm:"column:total_spent;type:numeric(12,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
