package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
	"github.com/lamsahq/lamsa-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the wallet ledger. Debit and Credit lock the wallet row, check
// and mutate the balance, and write the snapshot transaction inside one store
// transaction. Idempotency is the caller's responsibility: the payment
// orchestrator gates on Payment row state.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Debit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	Credit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error)
}

// MutationInput describes one balance movement.
type MutationInput struct {
	UserID        uuid.UUID
	Amount        decimal.Decimal
	ReferenceType enums.ReferenceType
	ReferenceID   *uuid.UUID
	DescriptionEN string
	DescriptionAR string
}

type service struct {
	repo  Repository
	tx    txRunner
	bound *gorm.DB
}

// ServiceParams wires the wallet service.
type ServiceParams struct {
	Repo              Repository
	TransactionRunner txRunner
}

// NewService builds the wallet ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: params.Repo, tx: params.TransactionRunner}, nil
}

// WithTx returns a service that executes inside the given open transaction
// instead of starting its own. Used when a caller needs a balance mutation as
// part of a larger atomic unit (e.g. referral reward release).
func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo, tx: s.tx, bound: tx}
}

func (s *service) Debit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	return s.mutate(ctx, enums.WalletTransactionTypeDebit, input)
}

func (s *service) Credit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	return s.mutate(ctx, enums.WalletTransactionTypeCredit, input)
}

func (s *service) mutate(ctx context.Context, kind enums.WalletTransactionType, input MutationInput) (*models.WalletTransaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	amount := types.NormalizeAmount(input.Amount)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var created *models.WalletTransaction
	err := s.run(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		wallet, err := repo.FindByUserForUpdate(ctx, input.UserID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
			}
			wallet = &models.Wallet{
				UserID:      input.UserID,
				Balance:     decimal.Zero,
				TotalEarned: decimal.Zero,
				TotalSpent:  decimal.Zero,
			}
			if err := repo.Create(ctx, wallet); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
			}
		}

		before := wallet.Balance
		var after decimal.Decimal
		switch kind {
		case enums.WalletTransactionTypeDebit:
			if wallet.Balance.LessThan(amount) {
				return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance too low").
					WithDetails(map[string]any{
						"required":  amount.StringFixed(2),
						"available": wallet.Balance.StringFixed(2),
						"shortfall": amount.Sub(wallet.Balance).StringFixed(2),
					})
			}
			after = before.Sub(amount)
			wallet.TotalSpent = wallet.TotalSpent.Add(amount)
		case enums.WalletTransactionTypeCredit:
			after = before.Add(amount)
			wallet.TotalEarned = wallet.TotalEarned.Add(amount)
		default:
			return pkgerrors.New(pkgerrors.CodeInternal, "unknown wallet transaction type")
		}

		wallet.Balance = after
		if err := repo.Save(ctx, wallet); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wallet")
		}

		record := &models.WalletTransaction{
			WalletID:      wallet.ID,
			UserID:        input.UserID,
			Type:          kind,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			ReferenceType: input.ReferenceType,
			ReferenceID:   input.ReferenceID,
			DescriptionEN: input.DescriptionEN,
			DescriptionAR: input.DescriptionAR,
		}
		if err := repo.CreateTransaction(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet transaction")
		}
		created = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.bound != nil {
		return fn(s.bound)
	}
	return s.tx.WithTx(ctx, fn)
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	wallet, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Wallet{
				UserID:      userID,
				Balance:     decimal.Zero,
				TotalEarned: decimal.Zero,
				TotalSpent:  decimal.Zero,
			}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

func (s *service) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListTransactionsByUser(ctx, userID, limit)
}
