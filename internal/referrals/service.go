package referrals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/internal/wallet"
	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
)

// Service releases referral rewards once their booking is paid.
type Service interface {
	// ReleaseReward credits the inviter's wallet for the pending referral
	// tied to bookingID, if any. It must run inside the caller's transaction
	// so the reward and the payment transition commit together. Returns the
	// referral when a reward was released, nil when there was nothing to do.
	ReleaseReward(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) (*models.Referral, error)
}

type service struct {
	repo   Repository
	wallet wallet.Service
}

// ServiceParams wires the referrals service.
type ServiceParams struct {
	Repo   Repository
	Wallet wallet.Service
}

// NewService builds the referrals service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "referrals repository required")
	}
	if params.Wallet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet service required")
	}
	return &service{repo: params.Repo, wallet: params.Wallet}, nil
}

func (s *service) ReleaseReward(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) (*models.Referral, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}

	repo := s.repo.WithTx(tx)
	referral, err := repo.FindPendingByBooking(ctx, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral")
	}
	if referral == nil {
		return nil, nil
	}
	if !referral.InviterReward.IsPositive() {
		return nil, nil
	}

	transitioned, err := repo.MarkRewarded(ctx, referral.ID, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark referral rewarded")
	}
	// Lost the race against a concurrent release; the reward was already paid.
	if !transitioned {
		return nil, nil
	}

	referralID := referral.ID
	if _, err := s.wallet.WithTx(tx).Credit(ctx, wallet.MutationInput{
		UserID:        referral.InviterUserID,
		Amount:        referral.InviterReward,
		ReferenceType: enums.ReferenceTypeReferral,
		ReferenceID:   &referralID,
		DescriptionEN: "Referral reward",
		DescriptionAR: "مكافأة الإحالة",
	}); err != nil {
		return nil, err
	}

	referral.Status = enums.ReferralStatusRewarded
	return referral, nil
}
