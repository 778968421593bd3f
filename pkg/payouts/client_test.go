package payouts

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
)

func newTestClient(baseURL string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		baseURL:       baseURL,
		keyID:         "key_test",
		keySecret:     "secret",
		accountNumber: "2323230000000000",
		webhookSecret: "hook",
		logger:        logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard}),
	}
}

func TestCreatePayoutFillsDefaultsAndDecodes(t *testing.T) {
	var got PayoutParams
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payouts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Payout{ID: "pout_1", Status: "processing", AmountPaise: got.AmountPaise, ReferenceID: got.ReferenceID})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	payout, err := client.CreatePayout(context.Background(), PayoutParams{
		FundAccountID: "fa_1",
		AmountPaise:   91000,
		ReferenceID:   "payout-req-1",
	})
	if err != nil {
		t.Fatalf("create payout: %v", err)
	}
	if got.AccountNumber != "2323230000000000" || got.Currency != "INR" || got.Mode != "IMPS" {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if payout.ID != "pout_1" || payout.Status != "processing" {
		t.Fatalf("unexpected payout %+v", payout)
	}
}

func TestCreatePayoutValidation(t *testing.T) {
	client := newTestClient("http://localhost:0")

	if _, err := client.CreatePayout(context.Background(), PayoutParams{AmountPaise: 100}); err == nil {
		t.Fatalf("expected error without fund account")
	}
	_, err := client.CreatePayout(context.Background(), PayoutParams{FundAccountID: "fa_1"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestContactThenFundAccountFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contacts":
			json.NewEncoder(w).Encode(Contact{ID: "cont_1"})
		case "/fund_accounts":
			json.NewEncoder(w).Encode(FundAccount{ID: "fa_1"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	contact, err := client.CreateContact(context.Background(), ContactParams{Name: "Seller One", ReferenceID: "seller-1"})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	account, err := client.CreateFundAccount(context.Background(), FundAccountParams{
		ContactID:   contact.ID,
		BankAccount: BankAccount{Name: "Seller One", IFSC: "HDFC0000001", AccountNumber: "50100000000001"},
	})
	if err != nil {
		t.Fatalf("create fund account: %v", err)
	}
	if account.ID != "fa_1" {
		t.Fatalf("unexpected fund account %+v", account)
	}
}

func TestProviderFailureMapsToDependencyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.FetchPayout(context.Background(), "pout_1")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := newTestClient("http://localhost:0")
	body := []byte(`{"event":"payout.processed"}`)

	mac := hmac.New(sha256.New, []byte("hook"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifyWebhookSignature(body, sig) {
		t.Fatalf("expected valid signature to verify")
	}
	if client.VerifyWebhookSignature([]byte("tampered"), sig) {
		t.Fatalf("tampered body verified")
	}
	if client.VerifyWebhookSignature(body, "") {
		t.Fatalf("empty signature accepted")
	}
}
