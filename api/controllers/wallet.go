package controllers

import (
	"net/http"

	"github.com/brandcart/brandcart-backend/api/middleware"
	"github.com/brandcart/brandcart-backend/api/responses"
	"github.com/brandcart/brandcart-backend/api/validators"
	"github.com/brandcart/brandcart-backend/internal/wallet"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/payouts"
)

// WalletSummary returns the seller's balance, held reserve and pending
// payouts.
func WalletSummary(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity required"))
			return
		}
		summary, err := svc.Summary(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// WalletEntries returns the seller's full ledger history.
func WalletEntries(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity required"))
			return
		}
		entries, err := svc.Entries(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// WalletPayouts lists the seller's payout requests.
func WalletPayouts(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity required"))
			return
		}
		requests, err := svc.ListPayouts(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests)
	}
}

type emergencyPayoutRequest struct {
	AmountPaise int64  `json:"amount_paise" validate:"required,gt=0"`
	AccountName string `json:"account_name" validate:"required"`
	IFSC        string `json:"ifsc" validate:"required"`
	Account     string `json:"account_number" validate:"required"`
}

// EmergencyPayout transfers available balance to the seller's bank ahead of
// the regular schedule.
func EmergencyPayout(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity required"))
			return
		}

		var body emergencyPayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.EmergencyPayout(r.Context(), wallet.EmergencyPayoutInput{
			SellerID:    sellerID,
			AmountPaise: body.AmountPaise,
			Bank: payouts.BankAccount{
				Name:          body.AccountName,
				IFSC:          body.IFSC,
				AccountNumber: body.Account,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, request)
	}
}
