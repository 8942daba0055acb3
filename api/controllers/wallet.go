package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lamsahq/lamsa-backend/api/responses"
	"github.com/lamsahq/lamsa-backend/api/validators"
	"github.com/lamsahq/lamsa-backend/internal/wallet"
	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	pkgerrors "github.com/lamsahq/lamsa-backend/pkg/errors"
	"github.com/lamsahq/lamsa-backend/pkg/logger"
)

type walletResponse struct {
	UserID      string `json:"user_id"`
	Balance     string `json:"balance"`
	TotalEarned string `json:"total_earned"`
	TotalSpent  string `json:"total_spent"`
}

type walletTransactionResponse struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	BalanceBefore string    `json:"balance_before"`
	BalanceAfter  string    `json:"balance_after"`
	ReferenceType string    `json:"reference_type,omitempty"`
	ReferenceID   *string   `json:"reference_id,omitempty"`
	DescriptionEN string    `json:"description_en,omitempty"`
	DescriptionAR string    `json:"description_ar,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toWalletTransactionResponse(txn *models.WalletTransaction) walletTransactionResponse {
	resp := walletTransactionResponse{
		ID:            txn.ID.String(),
		Type:          txn.Type.String(),
		Amount:        txn.Amount.StringFixed(2),
		BalanceBefore: txn.BalanceBefore.StringFixed(2),
		BalanceAfter:  txn.BalanceAfter.StringFixed(2),
		ReferenceType: txn.ReferenceType.String(),
		DescriptionEN: txn.DescriptionEN,
		DescriptionAR: txn.DescriptionAR,
		CreatedAt:     txn.CreatedAt,
	}
	if txn.ReferenceID != nil {
		ref := txn.ReferenceID.String()
		resp.ReferenceID = &ref
	}
	return resp
}

// WalletBalance returns the wallet snapshot for a user.
func WalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := parseUserIDQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		snapshot, err := svc.Balance(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, walletResponse{
			UserID:      snapshot.UserID.String(),
			Balance:     snapshot.Balance.StringFixed(2),
			TotalEarned: snapshot.TotalEarned.StringFixed(2),
			TotalSpent:  snapshot.TotalSpent.StringFixed(2),
		})
	}
}

// WalletTransactions lists the most recent ledger entries for a user.
func WalletTransactions(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
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

		items, err := svc.Transactions(ctx, userID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]walletTransactionResponse, 0, len(items))
		for i := range items {
			out = append(out, toWalletTransactionResponse(&items[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func parseUserIDQuery(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("user_id")
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid user_id").
			WithDetails(map[string]string{"user_id": raw})
	}
	return parsed, nil
}
