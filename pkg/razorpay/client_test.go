package razorpay

import (
	"context"
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

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func newTestClient(baseURL string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		baseURL:       baseURL,
		keyID:         "key_test",
		keySecret:     "secret",
		webhookSecret: "hook",
		logger:        testLogger(),
	}
}

func TestCreateOrderSendsBasicAuthAndDecodesResponse(t *testing.T) {
	var gotAuthUser, gotAuthPass string
	var gotBody OrderParams

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Order{
			ID:          "order_test123",
			AmountPaise: gotBody.AmountPaise,
			Currency:    gotBody.Currency,
			Receipt:     gotBody.Receipt,
			Status:      "created",
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	order, err := client.CreateOrder(context.Background(), OrderParams{
		AmountPaise: 100000,
		Receipt:     "BC-1001",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if gotAuthUser != "key_test" || gotAuthPass != "secret" {
		t.Fatalf("unexpected basic auth %s/%s", gotAuthUser, gotAuthPass)
	}
	if gotBody.Currency != "INR" {
		t.Fatalf("expected INR default currency, got %q", gotBody.Currency)
	}
	if order.ID != "order_test123" || order.AmountPaise != 100000 {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	client := newTestClient("http://localhost:0")
	_, err := client.CreateOrder(context.Background(), OrderParams{AmountPaise: 0})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrderMapsGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.CreateOrder(context.Background(), OrderParams{AmountPaise: 5000})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
