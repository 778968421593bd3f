package controllers

import (
	"net/http"

	"github.com/brandcart/brandcart-backend/api/middleware"
	"github.com/brandcart/brandcart-backend/api/responses"
	"github.com/brandcart/brandcart-backend/api/validators"
	internalorders "github.com/brandcart/brandcart-backend/internal/orders"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
)

type requestReturnRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RequestReturn opens a return on the buyer's delivered order.
func RequestReturn(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body requestReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RequestReturn(r.Context(), internalorders.RequestReturnInput{
			OrderID: orderID,
			BuyerID: buyerID,
			Reason:  body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type returnDecisionRequest struct {
	Accept       bool   `json:"accept"`
	RejectReason string `json:"reject_reason"`
}

// ReturnDecision records the seller's accept/reject call on a requested
// return.
func ReturnDecision(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity required"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body returnDecisionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SellerReturnAction(r.Context(), internalorders.SellerReturnActionInput{
			OrderID:      orderID,
			SellerID:     sellerID,
			Accept:       body.Accept,
			RejectReason: body.RejectReason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// SchedulePickup books the reverse pickup for an approved return.
func SchedulePickup(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SchedulePickup(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"pickup_status": "scheduled"})
	}
}

// CompletePickup marks the returned goods as collected.
func CompletePickup(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.CompletePickup(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"pickup_status": "picked_up"})
	}
}
