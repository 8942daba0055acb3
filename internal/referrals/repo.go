package referrals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
)

// Repository manages persistence for referrals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, referral *models.Referral) error
	FindPendingByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Referral, error)
	// MarkRewarded flips a referral from pending to rewarded and reports
	// whether this call performed the transition. The conditional update is
	// the single-transition gate.
	MarkRewarded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a referrals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, referral *models.Referral) error {
	if referral.ID == uuid.Nil {
		referral.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *repository) FindPendingByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Referral, error) {
	var referral models.Referral
	if err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, enums.ReferralStatusPending).
		First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

func (r *repository) MarkRewarded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("id = ? AND status = ?", id, enums.ReferralStatusPending).
		Updates(map[string]any{
			"status":      enums.ReferralStatusRewarded,
			"rewarded_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
