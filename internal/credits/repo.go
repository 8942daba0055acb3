package credits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/pkg/db/models"
)

// Repository manages persistence for credit transactions and the loyalty policy.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// AvailableBalance sums non-expired entries for the user. The read is
	// deliberately unlocked; deductions are clamped against it afterwards.
	AvailableBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	CreateTransaction(ctx context.Context, tx *models.CreditTransaction) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error)
	ActivePolicy(ctx context.Context) (*models.LoyaltySettings, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a credits repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) AvailableBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var raw *string
	err := r.db.WithContext(ctx).
		Model(&models.CreditTransaction{}).
		Select("CAST(SUM(amount) AS TEXT)").
		Where("user_id = ? AND is_expired = ?", userID, false).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil || *raw == "" {
		return decimal.Zero, nil
	}
	sum, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.Zero, err
	}
	if sum.IsNegative() {
		return decimal.Zero, nil
	}
	return sum, nil
}

func (r *repository) CreateTransaction(ctx context.Context, tx *models.CreditTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txs []models.CreditTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *repository) ActivePolicy(ctx context.Context) (*models.LoyaltySettings, error) {
	var policy models.LoyaltySettings
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("updated_at DESC").
		First(&policy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &policy, nil
}
