package webhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/brandcart/brandcart-backend/api/responses"
	internalorders "github.com/brandcart/brandcart-backend/internal/orders"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
)

const paymentSignatureHeader = "X-Razorpay-Signature"

// WebhookVerifier checks a provider HMAC over the raw request body.
type WebhookVerifier interface {
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

type paymentEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// PaymentWebhook folds gateway payment events into order state. Only
// payment.captured moves anything; everything else is acknowledged so the
// provider stops retrying.
func PaymentWebhook(svc internalorders.Service, verifier WebhookVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if verifier == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured"))
			return
		}

		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading webhook body"))
			return
		}
		if !verifier.VerifyWebhookSignature(rawBody, r.Header.Get(paymentSignatureHeader)) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "webhook signature verification failed"))
			return
		}

		var event paymentEvent
		if err := json.Unmarshal(rawBody, &event); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		if event.Event != "payment.captured" {
			responses.WriteSuccess(w, map[string]string{"status": "ignored"})
			return
		}

		entity := event.Payload.Payment.Entity
		if entity.OrderID == "" || entity.ID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment entity incomplete"))
			return
		}

		if err := svc.MarkPaidFromWebhook(r.Context(), entity.OrderID, entity.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
