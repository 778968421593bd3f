package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/api/responses"
	"github.com/brandcart/brandcart-backend/internal/idempotency"
	internalorders "github.com/brandcart/brandcart-backend/internal/orders"
	"github.com/brandcart/brandcart-backend/pkg/config"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
)

const (
	courierSignatureHeader = "X-Delivery-Signature"
	scopeCourierWebhook    = "courier_webhook"
)

type courierEvent struct {
	Waybill string `json:"waybill"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// CourierWebhook ingests delivery-partner status pushes. Couriers retry
// aggressively, so each (waybill, status) pair runs at most once via the
// idempotency store.
func CourierWebhook(svc internalorders.Service, idem idempotency.Service, cfg config.CourierConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading webhook body"))
			return
		}
		if !verifyCourierSignature(rawBody, r.Header.Get(courierSignatureHeader), cfg.WebhookSecret) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "webhook signature verification failed"))
			return
		}

		var event courierEvent
		if err := json.Unmarshal(rawBody, &event); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}
		if event.Waybill == "" || event.Status == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "waybill and status are required"))
			return
		}
		orderID, err := uuid.Parse(event.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		key := event.Waybill + ":" + event.Status
		reservation, err := idem.Reserve(r.Context(), key, scopeCourierWebhook)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		switch reservation.Outcome {
		case idempotency.OutcomeCompleted:
			responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
			return
		case idempotency.OutcomeInFlight:
			responses.WriteSuccess(w, map[string]string{"status": "processing"})
			return
		}

		if err := applyCourierStatus(r, svc, orderID, event); err != nil {
			if clearErr := idem.Clear(r.Context(), key, scopeCourierWebhook); clearErr != nil && logg != nil {
				logg.Error(r.Context(), "clearing courier webhook reservation failed", clearErr)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := idem.Complete(r.Context(), key, scopeCourierWebhook, json.RawMessage(`{"status":"processed"}`)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}

func applyCourierStatus(r *http.Request, svc internalorders.Service, orderID uuid.UUID, event courierEvent) error {
	switch event.Status {
	case "out_for_delivery":
		return svc.MarkOutForDelivery(r.Context(), orderID)
	case "otp_required":
		// The generated code reaches the buyer out of band; the courier
		// only learns that the gate is armed.
		_, err := svc.GenerateDeliveryOTP(r.Context(), orderID)
		return err
	case "rto":
		return svc.CODReturnToOrigin(r.Context(), internalorders.RTOInput{
			OrderID: orderID,
			Reason:  event.Reason,
		})
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported courier status")
	}
}

func verifyCourierSignature(rawBody []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
