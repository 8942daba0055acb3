package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamsahq/lamsa-backend/api/responses"
	"github.com/lamsahq/lamsa-backend/api/validators"
	"github.com/lamsahq/lamsa-backend/internal/payments"
	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
)

type chargeRequest struct {
	BookingID     string          `json:"booking_id" validate:"required,uuid"`
	UserID        string          `json:"user_id" validate:"required,uuid"`
	Method        string          `json:"method" validate:"required,oneof=wallet moyasar tabby"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	UseCredits    bool            `json:"use_credits"`
	CreditsAmount decimal.Decimal `json:"credits_amount"`
	WalletAmount  decimal.Decimal `json:"wallet_amount"`
	GatewayAmount decimal.Decimal `json:"gateway_amount"`
	Source        json.RawMessage `json:"source"`
	Description   string          `json:"description"`
}

type refundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason"`
}

type paymentResponse struct {
	ID               string    `json:"id"`
	BookingID        string    `json:"booking_id"`
	UserID           string    `json:"user_id"`
	Method           string    `json:"method"`
	Currency         string    `json:"currency"`
	Amount           string    `json:"amount"`
	CreditsAmount    string    `json:"credits_amount"`
	WalletAmount     string    `json:"wallet_amount"`
	GatewayAmount    string    `json:"gateway_amount"`
	Status           string    `json:"status"`
	GatewayPaymentID string    `json:"gateway_payment_id,omitempty"`
	RefundAmount     string    `json:"refund_amount"`
	RefundReason     *string   `json:"refund_reason,omitempty"`
	FailureReason    *string   `json:"failure_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func toPaymentResponse(payment *models.Payment) paymentResponse {
	return paymentResponse{
		ID:               payment.ID.String(),
		BookingID:        payment.BookingID.String(),
		UserID:           payment.UserID.String(),
		Method:           payment.Method.String(),
		Currency:         payment.Currency.String(),
		Amount:           payment.Amount.StringFixed(2),
		CreditsAmount:    payment.CreditsAmount.StringFixed(2),
		WalletAmount:     payment.WalletAmount.StringFixed(2),
		GatewayAmount:    payment.GatewayAmount.StringFixed(2),
		Status:           payment.Status.String(),
		GatewayPaymentID: payment.GatewayPaymentID,
		RefundAmount:     payment.RefundAmount.StringFixed(2),
		RefundReason:     payment.RefundReason,
		FailureReason:    payment.FailureReason,
		CreatedAt:        payment.CreatedAt,
	}
}

func toPaymentResponses(items []models.Payment) []paymentResponse {
	out := make([]paymentResponse, 0, len(items))
	for i := range items {
		out = append(out, toPaymentResponse(&items[i]))
	}
	return out
}

// PaymentCharge funds a booking from the credits/wallet/gateway split.
func PaymentCharge(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req chargeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		bookingID, _ := uuid.Parse(req.BookingID)
		userID, _ := uuid.Parse(req.UserID)
		method, err := enums.ParsePaymentMethod(req.Method)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		payment, err := svc.ChargeBooking(ctx, payments.ChargeInput{
			BookingID:     bookingID,
			UserID:        userID,
			Method:        method,
			TotalAmount:   req.TotalAmount,
			UseCredits:    req.UseCredits,
			CreditsAmount: req.CreditsAmount,
			WalletAmount:  req.WalletAmount,
			GatewayAmount: req.GatewayAmount,
			Source:        req.Source,
			Description:   req.Description,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toPaymentResponse(payment))
	}
}

// PaymentRefund refunds part or all of a settled payment.
func PaymentRefund(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		paymentID, err := parseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payment, err := svc.Refund(ctx, payments.RefundInput{
			PaymentID: paymentID,
			Amount:    req.Amount,
			Reason:    req.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentResponse(payment))
	}
}

// PaymentVerifier is the manual reconciliation surface backing the verify
// endpoint.
type PaymentVerifier interface {
	Verify(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
}

// PaymentVerify pulls the charge state from the gateway and reconciles the
// local payment. Operator tool for lost webhooks.
func PaymentVerify(svc PaymentVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		paymentID, err := parseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payment, err := svc.Verify(ctx, paymentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentResponse(payment))
	}
}

// PaymentDetail returns one payment by id.
func PaymentDetail(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		paymentID, err := parseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payment, err := svc.Get(ctx, paymentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentResponse(payment))
	}
}

// UserPayments lists a user's payment history, newest first.
func UserPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := parseUserIDQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.ListByUser(ctx, userID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentResponses(items))
	}
}

// BookingPayments lists all payment attempts for a booking.
func BookingPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		bookingID, err := parseUUIDParam(r, "bookingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.ListByBooking(ctx, bookingID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPaymentResponses(items))
	}
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name).
			WithDetails(map[string]string{name: raw})
	}
	return parsed, nil
}
