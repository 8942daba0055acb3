package credits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
	"github.com/lamsahq/lamsa-backend/pkg/types"
)

var oneHundred = decimal.NewFromInt(100)

// Service is the marketing-credit ledger.
type Service interface {
	WithTx(tx *gorm.DB) Service
	// ApplyDeduction spends credits against a booking under the active
	// loyalty policy. The returned CreditsUsed is always
	// min(requested, policy max, available, booking amount) and never
	// negative; a non-positive request is a no-op, not an error.
	ApplyDeduction(ctx context.Context, input DeductionInput) (*DeductionResult, error)
	Grant(ctx context.Context, input GrantInput) (*models.CreditTransaction, error)
	AvailableBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error)
}

// DeductionInput describes a requested credit spend.
type DeductionInput struct {
	UserID        uuid.UUID
	BookingID     uuid.UUID
	BookingAmount decimal.Decimal
	Requested     decimal.Decimal
}

// DeductionResult reports how much credit was actually spent.
type DeductionResult struct {
	CreditsUsed decimal.Decimal
	Transaction *models.CreditTransaction
}

// GrantInput describes a credit grant (welcome bonus, referral reward,
// loyalty cashback, admin credit).
type GrantInput struct {
	UserID        uuid.UUID
	Type          enums.CreditTransactionType
	Amount        decimal.Decimal
	ReferenceType enums.ReferenceType
	ReferenceID   *uuid.UUID
	DescriptionEN string
	DescriptionAR string
	ExpiresAt     *time.Time
}

type service struct {
	repo Repository
}

// NewService builds the credit ledger service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credits repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) ApplyDeduction(ctx context.Context, input DeductionInput) (*DeductionResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	requested := types.NormalizeAmount(input.Requested)
	if !requested.IsPositive() {
		return &DeductionResult{CreditsUsed: decimal.Zero}, nil
	}

	bookingAmount := types.NormalizeAmount(input.BookingAmount)
	if !bookingAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking amount must be positive")
	}

	policy, err := s.repo.ActivePolicy(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty policy")
	}
	if policy == nil {
		return nil, pkgerrors.New(pkgerrors.CodePolicyViolation, "no active loyalty policy")
	}

	if bookingAmount.LessThan(policy.MinBookingForCredit) {
		return nil, pkgerrors.New(pkgerrors.CodePolicyViolation, "booking amount below credit minimum").
			WithDetails(map[string]any{
				"min_booking_amount": policy.MinBookingForCredit.StringFixed(2),
				"booking_amount":     bookingAmount.StringFixed(2),
			})
	}

	maxAllowed := bookingAmount.Mul(policy.MaxCreditPercentage).Div(oneHundred).Round(2)

	available, err := s.repo.AvailableBalance(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit balance")
	}

	used := decimal.Min(requested, maxAllowed, available, bookingAmount)
	if !used.IsPositive() {
		return &DeductionResult{CreditsUsed: decimal.Zero}, nil
	}

	bookingID := input.BookingID
	record := &models.CreditTransaction{
		UserID:        input.UserID,
		Type:          enums.CreditTransactionTypeBookingDeduction,
		Amount:        used.Neg(),
		Balance:       available.Sub(used),
		ReferenceType: enums.ReferenceTypeBooking,
		ReferenceID:   &bookingID,
		DescriptionEN: "Credits applied to booking",
		DescriptionAR: "تم خصم الرصيد من الحجز",
	}
	if err := s.repo.CreateTransaction(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record credit deduction")
	}

	return &DeductionResult{CreditsUsed: used, Transaction: record}, nil
}

func (s *service) Grant(ctx context.Context, input GrantInput) (*models.CreditTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Type.IsGrant() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit type is not a grant")
	}
	amount := types.NormalizeAmount(input.Amount)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	available, err := s.repo.AvailableBalance(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load credit balance")
	}

	record := &models.CreditTransaction{
		UserID:        input.UserID,
		Type:          input.Type,
		Amount:        amount,
		Balance:       available.Add(amount),
		ReferenceType: input.ReferenceType,
		ReferenceID:   input.ReferenceID,
		DescriptionEN: input.DescriptionEN,
		DescriptionAR: input.DescriptionAR,
		ExpiresAt:     input.ExpiresAt,
	}
	if err := s.repo.CreateTransaction(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record credit grant")
	}
	return record, nil
}

func (s *service) AvailableBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.AvailableBalance(ctx, userID)
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
