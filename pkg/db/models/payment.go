package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamsahq/lamsa-backend/pkg/enums"
)

// Payment is one funding attempt against a booking. Amount is the charged
// total after credits; wallet_amount + gateway_amount == amount at all times.
// GatewayPaymentID is the webhook correlation key. Rows are never deleted;
// refunds are status transitions plus cumulative refund_amount.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID        uuid.UUID           `gorm:"column:booking_id;type:uuid;not null;index"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Method           enums.PaymentMethod `gorm:"column:method;not null"`
	Currency         enums.Currency      `gorm:"column:currency;not null;default:'SAR'"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	CreditsAmount    decimal.Decimal     `gorm:"column:credits_amount;type:numeric(12,2);not null;default:0"`
	WalletAmount     decimal.Decimal     `gorm:"column:wallet_amount;type:numeric(12,2);not null;default:0"`
	GatewayAmount    decimal.Decimal     `gorm:"column:gateway_amount;type:numeric(12,2);not null;default:0"`
	Status           enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	GatewayPaymentID string              `gorm:"column:gateway_payment_id;index"`
	GatewayResponse  json.RawMessage     `gorm:"column:gateway_response;type:jsonb"`
	RefundAmount     decimal.Decimal     `gorm:"column:refund_amount;type:numeric(12,2);not null;default:0"`
	RefundReason     *string             `gorm:"column:refund_reason"`
	FailureReason    *string             `gorm:"column:failure_reason"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
