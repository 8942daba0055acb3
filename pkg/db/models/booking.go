package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamsahq/lamsa-backend/pkg/enums"
)

// Booking is the scheduling aggregate owned by the booking workflow. The
// settlement core only reads ownership and total, and marks payment status.
type Booking struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	TotalAmount   decimal.Decimal            `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentStatus enums.BookingPaymentStatus `gorm:"column:payment_status;not null;default:'unpaid'"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
