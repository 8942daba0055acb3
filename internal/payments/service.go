package payments

import (
	"context"
	"encoding/json"
	stdErrors "errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/internal/audit"
	"github.com/lamsahq/lamsa-backend/internal/bookings"
	"github.com/lamsahq/lamsa-backend/internal/credits"
	"github.com/lamsahq/lamsa-backend/internal/referrals"
	"github.com/lamsahq/lamsa-backend/internal/wallet"
	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
	"github.com/lamsahq/lamsa-backend/pkg/metrics"
	"github.com/lamsahq/lamsa-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StatusChange is pushed to the notification collaborator on every payment
// status transition. Delivery past this struct is not this package's concern.
type StatusChange struct {
	UserID    uuid.UUID
	PaymentID uuid.UUID
	BookingID uuid.UUID
	NewStatus enums.PaymentStatus
	Amount    decimal.Decimal
}

// Notifier receives payment status transitions. Implementations must be safe
// to call after the transition committed; failures are logged, never
// propagated back into the payment flow.
type Notifier interface {
	PaymentStatusChanged(ctx context.Context, change StatusChange) error
}

// Service is the payment orchestrator. It computes the funding split across
// credits, wallet and gateway, executes the internal legs inside one store
// transaction, and drives the gateway leg outside it.
type Service interface {
	ChargeBooking(ctx context.Context, input ChargeInput) (*models.Payment, error)
	Refund(ctx context.Context, input RefundInput) (*models.Payment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Payment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Payment, error)
}

// ChargeInput is the funding request for one booking charge. WalletAmount and
// GatewayAmount describe the split of TotalAmount before credits; credits
// reduce the wallet leg first and spill into the gateway leg.
type ChargeInput struct {
	BookingID     uuid.UUID
	UserID        uuid.UUID
	Method        enums.PaymentMethod
	TotalAmount   decimal.Decimal
	UseCredits    bool
	CreditsAmount decimal.Decimal
	WalletAmount  decimal.Decimal
	GatewayAmount decimal.Decimal
	// Source is the provider payment source (card token, saved method)
	// forwarded to the gateway adapter untouched.
	Source      json.RawMessage
	Description string
}

// RefundInput describes a refund request. A nil Amount refunds the full
// remaining balance.
type RefundInput struct {
	PaymentID uuid.UUID
	Amount    *decimal.Decimal
	Reason    string
}

type service struct {
	repo      Repository
	bookings  bookings.Repository
	wallet    wallet.Service
	credits   credits.Service
	referrals referrals.Service
	audit     audit.Service
	gateways  GatewayRegistry
	tx        txRunner
	notifier  Notifier
	log       *logger.Logger
}

// ServiceParams wires the payment orchestrator.
type ServiceParams struct {
	Repo              Repository
	Bookings          bookings.Repository
	Wallet            wallet.Service
	Credits           credits.Service
	Referrals         referrals.Service
	Audit             audit.Service
	Gateways          GatewayRegistry
	TransactionRunner txRunner
	Notifier          Notifier
	Logger            *logger.Logger
}

// NewService builds the payment orchestrator.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repository required")
	case params.Bookings == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bookings repository required")
	case params.Wallet == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet service required")
	case params.Credits == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credits service required")
	case params.Referrals == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "referrals service required")
	case params.Audit == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit service required")
	case params.TransactionRunner == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		repo:      params.Repo,
		bookings:  params.Bookings,
		wallet:    params.Wallet,
		credits:   params.Credits,
		referrals: params.Referrals,
		audit:     params.Audit,
		gateways:  params.Gateways,
		tx:        params.TransactionRunner,
		notifier:  params.Notifier,
		log:       params.Logger,
	}, nil
}

func (s *service) ChargeBooking(ctx context.Context, input ChargeInput) (*models.Payment, error) {
	if err := validateChargeInput(&input); err != nil {
		return nil, err
	}

	booking, err := s.bookings.FindByID(ctx, input.BookingID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to user")
	}

	var gw Gateway
	if input.GatewayAmount.IsPositive() {
		if gw, err = s.gateways.ForMethod(input.Method); err != nil {
			return nil, err
		}
	}

	// Internal legs run inside one store transaction: credit deduction,
	// wallet debit and the pending payment row commit or roll back together.
	// The gateway call happens strictly after commit; no row lock is ever
	// held across a network round-trip.
	var payment *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		creditsUsed := decimal.Zero
		if input.UseCredits {
			result, err := s.credits.WithTx(tx).ApplyDeduction(ctx, credits.DeductionInput{
				UserID:        input.UserID,
				BookingID:     input.BookingID,
				BookingAmount: input.TotalAmount,
				Requested:     input.CreditsAmount,
			})
			if err != nil {
				return err
			}
			creditsUsed = result.CreditsUsed
		}

		// Credits reduce the wallet leg first; any excess spills into the
		// gateway leg.
		walletLeg := input.WalletAmount.Sub(creditsUsed)
		gatewayLeg := input.GatewayAmount
		if walletLeg.IsNegative() {
			gatewayLeg = gatewayLeg.Add(walletLeg)
			walletLeg = decimal.Zero
		}
		if gatewayLeg.IsNegative() {
			gatewayLeg = decimal.Zero
		}

		if walletLeg.IsPositive() {
			bookingID := input.BookingID
			if _, err := s.wallet.WithTx(tx).Debit(ctx, wallet.MutationInput{
				UserID:        input.UserID,
				Amount:        walletLeg,
				ReferenceType: enums.ReferenceTypeBooking,
				ReferenceID:   &bookingID,
				DescriptionEN: "Booking payment",
				DescriptionAR: "دفع الحجز",
			}); err != nil {
				return err
			}
		}

		status := enums.PaymentStatusPending
		if !gatewayLeg.IsPositive() {
			status = enums.PaymentStatusPaid
		}

		payment = &models.Payment{
			BookingID:     input.BookingID,
			UserID:        input.UserID,
			Method:        input.Method,
			Currency:      enums.CurrencySAR,
			Amount:        walletLeg.Add(gatewayLeg),
			CreditsAmount: creditsUsed,
			WalletAmount:  walletLeg,
			GatewayAmount: gatewayLeg,
			Status:        status,
		}
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		details, _ := json.Marshal(map[string]string{
			"credits_amount": creditsUsed.StringFixed(2),
			"wallet_amount":  walletLeg.StringFixed(2),
			"gateway_amount": gatewayLeg.StringFixed(2),
		})
		userID := input.UserID
		if _, err := s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			Action:       "payment.charge",
			ResourceType: audit.ResourcePayment,
			ResourceID:   payment.ID,
			NewStatus:    payment.Status.String(),
			Amount:       payment.Amount,
			Details:      details,
			UserID:       &userID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audit entry")
		}

		// Fully funded internally: the booking is settled now, no webhook
		// will ever arrive for this payment.
		if status == enums.PaymentStatusPaid {
			return s.settleBooking(ctx, tx, payment)
		}
		return nil
	})
	if err != nil {
		metrics.PaymentCharges.WithLabelValues(input.Method.String(), "rejected").Inc()
		return nil, err
	}

	s.notify(ctx, payment)

	if payment.GatewayAmount.IsPositive() {
		if err := s.executeGatewayLeg(ctx, gw, payment, input); err != nil {
			metrics.PaymentCharges.WithLabelValues(input.Method.String(), enums.PaymentStatusFailed.String()).Inc()
			return nil, err
		}
	}

	metrics.PaymentCharges.WithLabelValues(input.Method.String(), payment.Status.String()).Inc()
	return payment, nil
}

func validateChargeInput(input *ChargeInput) error {
	if input.BookingID == uuid.Nil || input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking id and user id required")
	}
	if !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	input.TotalAmount = types.NormalizeAmount(input.TotalAmount)
	input.CreditsAmount = types.NormalizeAmount(input.CreditsAmount)
	input.WalletAmount = types.NormalizeAmount(input.WalletAmount)
	input.GatewayAmount = types.NormalizeAmount(input.GatewayAmount)

	if !input.TotalAmount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "total amount must be positive")
	}
	if input.WalletAmount.IsNegative() || input.GatewayAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "split amounts must not be negative")
	}
	if !input.WalletAmount.Add(input.GatewayAmount).Equal(input.TotalAmount) {
		return pkgerrors.New(pkgerrors.CodeValidation, "split amounts do not sum to total").
			WithDetails(map[string]string{
				"total_amount":   input.TotalAmount.StringFixed(2),
				"wallet_amount":  input.WalletAmount.StringFixed(2),
				"gateway_amount": input.GatewayAmount.StringFixed(2),
			})
	}
	if input.GatewayAmount.IsPositive() && !input.Method.IsGateway() {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway amount requires a gateway payment method")
	}
	return nil
}

// executeGatewayLeg drives the external charge after the internal legs
// committed. Adapter failure flips the payment to failed so the committed
// wallet/credit deductions always trace back to an attempt record.
func (s *service) executeGatewayLeg(ctx context.Context, gw Gateway, payment *models.Payment, input ChargeInput) error {
	ctx = s.log.WithPaymentID(ctx, payment.ID.String())

	charge, err := gw.CreateCharge(ctx, CreateChargeParams{
		PaymentID:   payment.ID,
		AmountMinor: types.ToMinorUnits(payment.GatewayAmount),
		Currency:    payment.Currency,
		Description: input.Description,
		Source:      input.Source,
		Metadata: map[string]string{
			"payment_id": payment.ID.String(),
			"booking_id": payment.BookingID.String(),
		},
	})
	if err != nil {
		s.log.Error(ctx, "gateway charge failed", err)
		reason := err.Error()
		payment.Status = enums.PaymentStatusFailed
		payment.FailureReason = &reason
		if saveErr := s.failPayment(ctx, payment); saveErr != nil {
			s.log.Error(ctx, "persist failed payment", saveErr)
		}
		s.notify(ctx, payment)
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "gateway charge failed").
			WithDetails(map[string]string{"provider": gw.Provider().String()})
	}

	payment.GatewayPaymentID = charge.ID
	payment.GatewayResponse = charge.Raw
	if charge.Status == enums.PaymentStatusAuthorized {
		payment.Status = enums.PaymentStatusAuthorized
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, payment); err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]string{
			"gateway_payment_id": charge.ID,
			"provider":           gw.Provider().String(),
		})
		userID := payment.UserID
		_, err := s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			Action:       "payment.gateway_charge",
			ResourceType: audit.ResourcePayment,
			ResourceID:   payment.ID,
			OldStatus:    enums.PaymentStatusPending.String(),
			NewStatus:    payment.Status.String(),
			Amount:       payment.GatewayAmount,
			Details:      details,
			UserID:       &userID,
		})
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
	}
	if payment.Status == enums.PaymentStatusAuthorized {
		s.notify(ctx, payment)
	}
	return nil
}

func (s *service) failPayment(ctx context.Context, payment *models.Payment) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, payment); err != nil {
			return err
		}
		userID := payment.UserID
		_, err := s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			Action:       "payment.gateway_failure",
			ResourceType: audit.ResourcePayment,
			ResourceID:   payment.ID,
			OldStatus:    enums.PaymentStatusPending.String(),
			NewStatus:    payment.Status.String(),
			Amount:       payment.GatewayAmount,
			UserID:       &userID,
		})
		return err
	})
}

// settleBooking runs the side effects of a transition into paid: booking
// payment-status mark plus referral reward release, inside the caller's
// transaction.
func (s *service) settleBooking(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	if err := s.bookings.WithTx(tx).MarkPaymentStatus(ctx, payment.BookingID, enums.BookingPaymentStatusPaid); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark booking paid")
	}
	if _, err := s.referrals.ReleaseReward(ctx, tx, payment.BookingID); err != nil {
		return err
	}
	return nil
}

func (s *service) Refund(ctx context.Context, input RefundInput) (*models.Payment, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	payment, err := s.Get(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusPaid && payment.Status != enums.PaymentStatusPartialRefund {
		metrics.PaymentRefunds.WithLabelValues("rejected").Inc()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not refundable").
			WithDetails(map[string]string{"status": payment.Status.String()})
	}

	remaining := payment.Amount.Sub(payment.RefundAmount)
	amount := remaining
	if input.Amount != nil {
		amount = types.NormalizeAmount(*input.Amount)
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if amount.GreaterThan(remaining) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds remaining balance").
			WithDetails(map[string]string{
				"requested": amount.StringFixed(2),
				"remaining": remaining.StringFixed(2),
			})
	}

	// Refunds are allocated wallet-first over the cumulative refund
	// interval: the wallet leg occupies [0, walletAmount) of the payment
	// amount, the gateway leg the rest. Each refund consumes the interval
	// [refundAmount, refundAmount+amount).
	prior := payment.RefundAmount
	walletPortion := decimal.Min(prior.Add(amount), payment.WalletAmount).
		Sub(decimal.Min(prior, payment.WalletAmount))
	if walletPortion.IsNegative() {
		walletPortion = decimal.Zero
	}
	gatewayPortion := amount.Sub(walletPortion)

	// Gateway refund first, outside any transaction: if the provider
	// rejects it nothing local has changed.
	var gatewayRaw json.RawMessage
	if gatewayPortion.IsPositive() {
		gw, err := s.gateways.ForMethod(payment.Method)
		if err != nil {
			return nil, err
		}
		charge, err := gw.Refund(ctx, payment.GatewayPaymentID, types.ToMinorUnits(gatewayPortion), input.Reason)
		if err != nil {
			metrics.PaymentRefunds.WithLabelValues("gateway_error").Inc()
			return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "gateway refund failed").
				WithDetails(map[string]string{"provider": gw.Provider().String()})
		}
		gatewayRaw = charge.Raw
	}

	oldStatus := payment.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if walletPortion.IsPositive() {
			paymentID := payment.ID
			if _, err := s.wallet.WithTx(tx).Credit(ctx, wallet.MutationInput{
				UserID:        payment.UserID,
				Amount:        walletPortion,
				ReferenceType: enums.ReferenceTypeRefund,
				ReferenceID:   &paymentID,
				DescriptionEN: "Booking refund",
				DescriptionAR: "استرداد مبلغ الحجز",
			}); err != nil {
				return err
			}
		}

		payment.RefundAmount = payment.RefundAmount.Add(amount)
		if payment.RefundAmount.GreaterThanOrEqual(payment.Amount) {
			payment.Status = enums.PaymentStatusRefunded
		} else {
			payment.Status = enums.PaymentStatusPartialRefund
		}
		if input.Reason != "" {
			reason := input.Reason
			payment.RefundReason = &reason
		}
		if gatewayRaw != nil {
			payment.GatewayResponse = gatewayRaw
		}
		if err := s.repo.WithTx(tx).Save(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment")
		}

		if payment.Status == enums.PaymentStatusRefunded {
			if err := s.bookings.WithTx(tx).MarkPaymentStatus(ctx, payment.BookingID, enums.BookingPaymentStatusRefunded); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark booking refunded")
			}
		}

		details, _ := json.Marshal(map[string]string{
			"refund_amount":   amount.StringFixed(2),
			"wallet_portion":  walletPortion.StringFixed(2),
			"gateway_portion": gatewayPortion.StringFixed(2),
			"reason":          input.Reason,
		})
		userID := payment.UserID
		_, err := s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			Action:       "payment.refund",
			ResourceType: audit.ResourcePayment,
			ResourceID:   payment.ID,
			OldStatus:    oldStatus.String(),
			NewStatus:    payment.Status.String(),
			Amount:       amount,
			Details:      details,
			UserID:       &userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentRefunds.WithLabelValues(payment.Status.String()).Inc()
	s.notify(ctx, payment)
	return payment, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (s *service) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Payment, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	return s.repo.ListByBooking(ctx, bookingID)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Payment, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *service) notify(ctx context.Context, payment *models.Payment) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PaymentStatusChanged(ctx, StatusChange{
		UserID:    payment.UserID,
		PaymentID: payment.ID,
		BookingID: payment.BookingID,
		NewStatus: payment.Status,
		Amount:    payment.Amount,
	}); err != nil {
		s.log.Error(ctx, "notify payment status change", err)
	}
}
