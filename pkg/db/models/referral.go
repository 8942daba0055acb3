package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamsahq/lamsa-backend/pkg/enums"
)

// Referral links an inviter to an optional invitee and booking. InviterReward
// is fixed at creation; status moves pending -> rewarded exactly once, gated
// by a successful booking payment.
type Referral struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InviterUserID uuid.UUID            `gorm:"column:inviter_user_id;type:uuid;not null;index"`
	InviteeUserID *uuid.UUID           `gorm:"column:invitee_user_id;type:uuid;index"`
	BookingID     *uuid.UUID           `gorm:"column:booking_id;type:uuid;index"`
	Code          string               `gorm:"column:code;not null"`
	Status        enums.ReferralStatus `gorm:"column:status;not null;default:'pending'"`
	InviterReward decimal.Decimal      `gorm:"column:inviter_reward;type:numeric(12,2);not null"`
	RewardedAt    *time.Time           `gorm:"column:rewarded_at"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
