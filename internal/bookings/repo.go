package bookings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
)

// Repository is the narrow surface the settlement core needs from the booking
// workflow: ownership lookup plus payment-status marks. Booking creation and
// scheduling live elsewhere.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	MarkPaymentStatus(ctx context.Context, id uuid.UUID, status enums.BookingPaymentStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bookings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) MarkPaymentStatus(ctx context.Context, id uuid.UUID, status enums.BookingPaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("payment_status", status).Error
}
