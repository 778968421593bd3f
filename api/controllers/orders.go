package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/api/middleware"
	"github.com/brandcart/brandcart-backend/api/responses"
	"github.com/brandcart/brandcart-backend/api/validators"
	internalorders "github.com/brandcart/brandcart-backend/internal/orders"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
)

const idempotencyKeyHeader = "Idempotency-Key"

type createOrderRequest struct {
	ProductID     uuid.UUID  `json:"product_id" validate:"required"`
	OfferID       *uuid.UUID `json:"offer_id,omitempty"`
	Qty           int        `json:"qty" validate:"required,gt=0"`
	PaymentMethod string     `json:"payment_method" validate:"required"`
	AddressID     string     `json:"address_id" validate:"required"`
}

// CreateOrder places an order for the authenticated buyer. The Idempotency-Key
// header makes retries safe.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required"))
			return
		}

		key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header is required"))
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.Create(r.Context(), internalorders.CreateOrderInput{
			IdempotencyKey: key,
			BuyerID:        buyerID,
			ProductID:      body.ProductID,
			OfferID:        body.OfferID,
			Qty:            body.Qty,
			PaymentMethod:  method,
			AddressID:      body.AddressID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

type shipOrderRequest struct {
	TrackingID  string `json:"tracking_id" validate:"required"`
	CourierName string `json:"courier_name"`
}

// ShipOrder records the courier handoff for the seller's own order.
func ShipOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body shipOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkShipped(r.Context(), internalorders.MarkShippedInput{
			OrderID:     orderID,
			SellerID:    sellerID,
			TrackingID:  body.TrackingID,
			CourierName: body.CourierName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// GenerateDeliveryOTP issues the one-time delivery code. In production the
// code goes to the buyer over SMS; the response carries it so couriers
// without SMS integration can relay it.
func GenerateDeliveryOTP(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.GenerateDeliveryOTP(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"otp": code})
	}
}

type confirmDeliveryRequest struct {
	OTP string `json:"otp" validate:"required,len=6"`
}

// ConfirmDelivery closes the delivery leg with the buyer's OTP.
func ConfirmDelivery(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body confirmDeliveryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmDelivery(r.Context(), internalorders.ConfirmDeliveryInput{
			OrderID: orderID,
			BuyerID: buyerID,
			OTP:     body.OTP,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type rtoRequest struct {
	Reason string `json:"reason"`
}

// MarkRTO records a COD return-to-origin. Admin only; the courier webhook is
// the usual driver.
func MarkRTO(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rtoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CODReturnToOrigin(r.Context(), internalorders.RTOInput{
			OrderID: orderID,
			Reason:  body.Reason,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "rto"})
	}
}

// OrderDetail returns an order to its buyer, its seller, or an admin.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeOrderAccess(r, order.BuyerID, order.SellerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderTimeline returns the append-only event history for an order.
func OrderTimeline(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorizeOrderAccess(r, order.BuyerID, order.SellerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := svc.Timeline(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

func authorizeOrderAccess(r *http.Request, buyerID, sellerID uuid.UUID) error {
	actorID, ok := middleware.ActorIDFromContext(r.Context())
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity required")
	}
	role, _ := middleware.RoleFromContext(r.Context())
	switch role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleBuyer:
		if actorID == buyerID {
			return nil
		}
	case enums.ActorRoleSeller:
		if actorID == sellerID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another account")
}
