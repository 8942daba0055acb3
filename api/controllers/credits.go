package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lamsahq/lamsa-backend/api/responses"
	"github.com/lamsahq/lamsa-backend/api/validators"
	"github.com/lamsahq/lamsa-backend/internal/credits"
	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
)

type creditGrantRequest struct {
	UserID        string          `json:"user_id" validate:"required,uuid"`
	Type          string          `json:"type" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	DescriptionEN string          `json:"description_en"`
	DescriptionAR string          `json:"description_ar"`
	ExpiresAt     *time.Time      `json:"expires_at"`
}

type creditTransactionResponse struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Amount        string     `json:"amount"`
	Balance       string     `json:"balance"`
	DescriptionEN string     `json:"description_en,omitempty"`
	DescriptionAR string     `json:"description_ar,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toCreditTransactionResponse(txn *models.CreditTransaction) creditTransactionResponse {
	return creditTransactionResponse{
		ID:            txn.ID.String(),
		Type:          txn.Type.String(),
		Amount:        txn.Amount.StringFixed(2),
		Balance:       txn.Balance.StringFixed(2),
		DescriptionEN: txn.DescriptionEN,
		DescriptionAR: txn.DescriptionAR,
		ExpiresAt:     txn.ExpiresAt,
		CreatedAt:     txn.CreatedAt,
	}
}

// CreditGrant records an admin-issued credit grant.
func CreditGrant(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req creditGrantRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		userID, _ := uuid.Parse(req.UserID)
		grantType, err := enums.ParseCreditTransactionType(req.Type)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid credit type"))
			return
		}

		record, err := svc.Grant(ctx, credits.GrantInput{
			UserID:        userID,
			Type:          grantType,
			Amount:        req.Amount,
			DescriptionEN: req.DescriptionEN,
			DescriptionAR: req.DescriptionAR,
			ExpiresAt:     req.ExpiresAt,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toCreditTransactionResponse(record))
	}
}

// CreditBalance returns the usable (non-expired) credit balance for a user.
func CreditBalance(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := parseUserIDQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.AvailableBalance(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"user_id": userID.String(),
			"balance": balance.StringFixed(2),
		})
	}
}

// CreditHistory lists recent credit ledger entries for a user.
func CreditHistory(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
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

		items, err := svc.History(ctx, userID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]creditTransactionResponse, 0, len(items))
		for i := range items {
			out = append(out, toCreditTransactionResponse(&items[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
