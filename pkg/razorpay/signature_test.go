package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyCheckoutSignature(t *testing.T) {
	client := &Client{keySecret: "checkout-secret", webhookSecret: "hook-secret"}

	sig := signPayload("checkout-secret", []byte("order_abc|pay_xyz"))
	if !client.VerifyCheckoutSignature("order_abc", "pay_xyz", sig) {
		t.Fatalf("expected valid checkout signature to verify")
	}
	if client.VerifyCheckoutSignature("order_abc", "pay_other", sig) {
		t.Fatalf("signature verified for wrong payment id")
	}
	if client.VerifyCheckoutSignature("order_abc", "pay_xyz", "") {
		t.Fatalf("empty signature accepted")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := &Client{keySecret: "checkout-secret", webhookSecret: "hook-secret"}
	body := []byte(`{"event":"payment.captured"}`)

	if !client.VerifyWebhookSignature(body, signPayload("hook-secret", body)) {
		t.Fatalf("expected valid webhook signature to verify")
	}
	if client.VerifyWebhookSignature(body, signPayload("checkout-secret", body)) {
		t.Fatalf("webhook verified with wrong secret")
	}
	if client.VerifyWebhookSignature([]byte("tampered"), signPayload("hook-secret", body)) {
		t.Fatalf("webhook verified for tampered body")
	}
}
