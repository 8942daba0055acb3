package webhooks

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/internal/audit"
	"github.com/lamsahq/lamsa-backend/internal/bookings"
	"github.com/lamsahq/lamsa-backend/internal/payments"
	"github.com/lamsahq/lamsa-backend/internal/referrals"
	"github.com/lamsahq/lamsa-backend/pkg/db"
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

// Event is a provider callback already verified and translated by the
// gateway adapter: stable event id, the provider's payment reference, and
// the status mapped into our vocabulary. Raw provider strings never reach
// this layer.
type Event struct {
	Provider         enums.WebhookProvider
	EventID          string
	EventType        string
	GatewayPaymentID string
	Status           enums.PaymentStatus
	// RefundedMinor is the provider's cumulative refunded amount in minor
	// units, used to distinguish partial from full refunds.
	RefundedMinor int64
	Payload       json.RawMessage
}

// IngestResult reports what ingestion did with an event.
type IngestResult struct {
	Event     *models.WebhookEvent
	Duplicate bool
	Applied   bool
}

// Service is the webhook reconciler. Ingestion is idempotent on
// (provider, eventId) and never returns processing failures to the caller;
// outcomes are recorded on the WebhookEvent row.
type Service interface {
	Ingest(ctx context.Context, event Event) (*IngestResult, error)
	// Verify pulls the charge state from the gateway and applies it through
	// the same transition rules webhooks use. Manual reconciliation surface.
	Verify(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	ListFailed(ctx context.Context, limit int) ([]models.WebhookEvent, error)
}

type service struct {
	repo      Repository
	payments  payments.Repository
	gateways  payments.GatewayRegistry
	bookings  bookings.Repository
	referrals referrals.Service
	audit     audit.Service
	tx        txRunner
	notifier  payments.Notifier
	log       *logger.Logger
}

// ServiceParams wires the webhook reconciler.
type ServiceParams struct {
	Repo              Repository
	Payments          payments.Repository
	Gateways          payments.GatewayRegistry
	Bookings          bookings.Repository
	Referrals         referrals.Service
	Audit             audit.Service
	TransactionRunner txRunner
	Notifier          payments.Notifier
	Logger            *logger.Logger
}

// NewService builds the webhook reconciler.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook repository required")
	case params.Payments == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repository required")
	case params.Bookings == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bookings repository required")
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
		payments:  params.Payments,
		gateways:  params.Gateways,
		bookings:  params.Bookings,
		referrals: params.Referrals,
		audit:     params.Audit,
		tx:        params.TransactionRunner,
		notifier:  params.Notifier,
		log:       params.Logger,
	}, nil
}

func (s *service) Ingest(ctx context.Context, event Event) (*IngestResult, error) {
	if !event.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown webhook provider")
	}
	if event.EventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	ctx = s.log.WithProvider(ctx, event.Provider.String())

	// The durable processing marker goes in before any side effect. A
	// unique violation on (provider, event_id) is the duplicate signal;
	// the insert race doubles as the per-event mutex.
	record := &models.WebhookEvent{
		Provider:  event.Provider,
		EventID:   event.EventID,
		EventType: event.EventType,
		Payload:   event.Payload,
		Status:    enums.WebhookEventStatusProcessing,
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		if !db.IsUniqueViolation(err, "idx_webhook_events_provider_event_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record webhook event")
		}
		existing, findErr := s.repo.FindByProviderEvent(ctx, event.Provider, event.EventID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load webhook event")
		}
		if existing.Status != enums.WebhookEventStatusFailed {
			metrics.WebhookEvents.WithLabelValues(event.Provider.String(), "duplicate").Inc()
			s.log.Info(ctx, "duplicate webhook event ignored")
			return &IngestResult{Event: existing, Duplicate: true}, nil
		}
		// Failed events are retried with the original row.
		if err := s.repo.MarkProcessing(ctx, existing.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen webhook event")
		}
		record = existing
		record.Status = enums.WebhookEventStatusProcessing
	}

	applied, err := s.process(ctx, record, event)
	if err != nil {
		// Processing failures stay internal: record them on the event row
		// and report success to the provider to avoid retry storms.
		s.log.Error(ctx, "webhook processing failed", err)
		metrics.WebhookEvents.WithLabelValues(event.Provider.String(), "failed").Inc()
		if markErr := s.repo.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			s.log.Error(ctx, "mark webhook event failed", multierr.Append(err, markErr))
		}
		record.Status = enums.WebhookEventStatusFailed
		return &IngestResult{Event: record}, nil
	}

	if err := s.repo.MarkProcessed(ctx, record.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark webhook event processed")
	}
	record.Status = enums.WebhookEventStatusProcessed
	metrics.WebhookEvents.WithLabelValues(event.Provider.String(), "processed").Inc()
	return &IngestResult{Event: record, Applied: applied}, nil
}

func (s *service) process(ctx context.Context, record *models.WebhookEvent, event Event) (bool, error) {
	payment, err := s.payments.FindByGatewayPaymentID(ctx, event.GatewayPaymentID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("no payment for gateway reference %s", event.GatewayPaymentID)
		}
		return false, err
	}
	ctx = s.log.WithPaymentID(ctx, payment.ID.String())

	target := s.resolveTarget(payment, event.Status, event.RefundedMinor)
	if target == payment.Status {
		s.log.Info(ctx, "webhook status already applied")
		return false, nil
	}

	if !payments.CanTransition(payment.Status, target) {
		// Providers do not resend with a corrected payload; drop with an
		// audit trail instead of failing the event.
		s.log.Warn(ctx, fmt.Sprintf("illegal payment transition %s -> %s rejected", payment.Status, target))
		metrics.WebhookEvents.WithLabelValues(event.Provider.String(), "rejected_transition").Inc()
		details, _ := json.Marshal(map[string]string{
			"event_id":        event.EventID,
			"current_status":  payment.Status.String(),
			"rejected_status": target.String(),
		})
		_, auditErr := s.audit.Record(ctx, audit.RecordInput{
			Action:       "payment.transition_rejected",
			ResourceType: audit.ResourcePayment,
			ResourceID:   payment.ID,
			OldStatus:    payment.Status.String(),
			NewStatus:    target.String(),
			Details:      details,
		})
		return false, auditErr
	}

	if err := s.applyTransition(ctx, payment, target, event.RefundedMinor, "webhook:"+event.EventID); err != nil {
		return false, err
	}
	return true, nil
}

// resolveTarget refines provider refund statuses against the local amount:
// a cumulative refund below the payment total is a partial refund.
func (s *service) resolveTarget(payment *models.Payment, mapped enums.PaymentStatus, refundedMinor int64) enums.PaymentStatus {
	if mapped != enums.PaymentStatusRefunded && mapped != enums.PaymentStatusPartialRefund {
		return mapped
	}
	refunded := types.FromMinorUnits(refundedMinor)
	if refunded.IsPositive() && refunded.LessThan(payment.Amount) {
		return enums.PaymentStatusPartialRefund
	}
	return enums.PaymentStatusRefunded
}

func (s *service) applyTransition(ctx context.Context, payment *models.Payment, target enums.PaymentStatus, refundedMinor int64, trigger string) error {
	oldStatus := payment.Status
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment.Status = target
		if refundedMinor > 0 && (target == enums.PaymentStatusRefunded || target == enums.PaymentStatusPartialRefund) {
			payment.RefundAmount = types.FromMinorUnits(refundedMinor)
		}
		if err := s.payments.WithTx(tx).Save(ctx, payment); err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]string{"trigger": trigger})
		userID := payment.UserID
		if _, err := s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			Action:       "payment.status_change",
			ResourceType: audit.ResourcePayment,
			ResourceID:   payment.ID,
			OldStatus:    oldStatus.String(),
			NewStatus:    target.String(),
			Amount:       payment.Amount,
			Details:      details,
			UserID:       &userID,
		}); err != nil {
			return err
		}

		// Side effects fire only on the transition into paid: the booking
		// settles and any pending referral reward is released. Both are
		// gated by their own single-transition invariants, so a replayed
		// event cannot double-apply them.
		if target == enums.PaymentStatusPaid {
			if err := s.bookings.WithTx(tx).MarkPaymentStatus(ctx, payment.BookingID, enums.BookingPaymentStatusPaid); err != nil {
				return err
			}
			if _, err := s.referrals.ReleaseReward(ctx, tx, payment.BookingID); err != nil {
				return err
			}
		}
		if target == enums.PaymentStatusRefunded {
			if err := s.bookings.WithTx(tx).MarkPaymentStatus(ctx, payment.BookingID, enums.BookingPaymentStatusRefunded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.notifier != nil {
		if err := s.notifier.PaymentStatusChanged(ctx, payments.StatusChange{
			UserID:    payment.UserID,
			PaymentID: payment.ID,
			BookingID: payment.BookingID,
			NewStatus: payment.Status,
			Amount:    payment.Amount,
		}); err != nil {
			s.log.Error(ctx, "notify payment status change", err)
		}
	}
	return nil
}

func (s *service) Verify(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.GatewayPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has no gateway reference")
	}

	gw, err := s.gateways.ForMethod(payment.Method)
	if err != nil {
		return nil, err
	}
	charge, err := gw.FetchCharge(ctx, payment.GatewayPaymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "fetch gateway charge").
			WithDetails(map[string]string{"provider": gw.Provider().String()})
	}

	target := s.resolveTarget(payment, charge.Status, charge.RefundedMinor)
	if target == payment.Status {
		return payment, nil
	}
	if !payments.CanTransition(payment.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "gateway state is not reachable from current status").
			WithDetails(map[string]string{
				"current_status": payment.Status.String(),
				"gateway_status": target.String(),
			})
	}
	if err := s.applyTransition(ctx, payment, target, charge.RefundedMinor, "verify"); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply verified status")
	}
	return payment, nil
}

func (s *service) ListFailed(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	return s.repo.ListFailed(ctx, limit)
}
