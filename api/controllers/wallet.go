package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/localkart/localkart-backend/api/responses"
	"github.com/localkart/localkart-backend/api/validators"
	"github.com/localkart/localkart-backend/internal/wallet"
	"github.com/localkart/localkart-backend/pkg/enums"
	pkgerrors "github.com/localkart/localkart-backend/pkg/errors"
	"github.com/localkart/localkart-backend/pkg/logger"
)

// WalletBalance serves the caller's balance for the given wallet side.
func WalletBalance(service *wallet.Service, role enums.WalletRole, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := service.GetBalance(r.Context(), a.UserID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, walletResponse{Role: role.String(), Balance: balance})
	}
}

func WalletTransactions(service *wallet.Service, role enums.WalletRole, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := service.ListTransactions(r.Context(), a.UserID, role, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toWalletTxnResponses(txns))
	}
}

type walletRechargeRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

func WalletRecharge(service *wallet.Service, role enums.WalletRole, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req walletRechargeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !req.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive"))
			return
		}

		updated, err := service.Recharge(r.Context(), a.UserID, role, req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, walletResponse{Role: role.String(), Balance: updated.Balance})
	}
}

type walletWithdrawRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// WalletWithdraw debits the vendor wallet toward the configured payout bank.
func WalletWithdraw(service *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req walletWithdrawRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !req.Amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive"))
			return
		}

		updated, err := service.Withdraw(r.Context(), a.UserID, req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, walletResponse{Role: enums.WalletRoleVendor.String(), Balance: updated.Balance})
	}
}

type payoutBankRequest struct {
	AccountName   string `json:"account_name" validate:"required,max=120"`
	AccountNumber string `json:"account_number" validate:"required,max=34"`
	IFSC          string `json:"ifsc" validate:"required,max=16"`
}

type payoutBankResponse struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
}

func PayoutBankSave(service *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req payoutBankRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bank, err := service.SavePayoutBank(r.Context(), a.UserID, req.AccountName, req.AccountNumber, req.IFSC)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payoutBankResponse{
			AccountName:   bank.AccountName,
			AccountNumber: bank.AccountNumber,
			IFSC:          bank.IFSC,
		})
	}
}

func PayoutBankGet(service *wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bank, err := service.GetPayoutBank(r.Context(), a.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if bank == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "payout bank not configured"))
			return
		}

		responses.WriteSuccess(w, payoutBankResponse{
			AccountName:   bank.AccountName,
			AccountNumber: bank.AccountNumber,
			IFSC:          bank.IFSC,
		})
	}
}
