package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyCheckoutSignature checks the HMAC the gateway hands back after a
// successful checkout. The signed payload is "order_id|payment_id".
func (c *Client) VerifyCheckoutSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return verifyHMAC([]byte(gatewayOrderID+"|"+gatewayPaymentID), signature, c.keySecret)
}

// VerifyWebhookSignature checks the HMAC over the raw webhook body.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return verifyHMAC(rawBody, signature, c.webhookSecret)
}

func verifyHMAC(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
