package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoyaltySettings is the versioned credit policy. Exactly one row is active
// at a time; callers load it explicitly per request rather than reading
// ambient state.
type LoyaltySettings struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MaxCreditPercentage decimal.Decimal `gorm:"column:max_credit_percentage;type:numeric(5,2);not null"`
	MinBookingForCredit decimal.Decimal `gorm:"column:min_booking_for_credit;type:numeric(12,2);not null"`
	CreditExpiryDays    int             `gorm:"column:credit_expiry_days;not null;default:90"`
	Active              bool            `gorm:"column:active;not null;default:false"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
