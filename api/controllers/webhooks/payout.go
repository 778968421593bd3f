package webhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/brandcart/brandcart-backend/api/responses"
	"github.com/brandcart/brandcart-backend/internal/wallet"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
)

const payoutSignatureHeader = "X-Payout-Signature"

type payoutEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payout struct {
			Entity struct {
				ID            string `json:"id"`
				Status        string `json:"status"`
				FailureReason string `json:"failure_reason"`
			} `json:"entity"`
		} `json:"payout"`
	} `json:"payload"`
}

// PayoutWebhook folds bank-transfer status pushes into payout requests.
func PayoutWebhook(svc wallet.Service, verifier WebhookVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if verifier == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "payout provider not configured"))
			return
		}

		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading webhook body"))
			return
		}
		if !verifier.VerifyWebhookSignature(rawBody, r.Header.Get(payoutSignatureHeader)) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "webhook signature verification failed"))
			return
		}

		var event payoutEvent
		if err := json.Unmarshal(rawBody, &event); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		entity := event.Payload.Payout.Entity
		if entity.ID == "" || entity.Status == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payout entity incomplete"))
			return
		}

		if err := svc.ApplyPayoutStatus(r.Context(), entity.ID, entity.Status, entity.FailureReason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
