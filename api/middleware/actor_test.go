package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "middleware-test", Level: zerolog.Disabled, Output: io.Discard})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestActorRejectsMissingHeaders(t *testing.T) {
	handler := Actor(testLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeUnauthorized) {
		t.Fatalf("code = %s", body.Error.Code)
	}
}

func TestActorRejectsUnknownRole(t *testing.T) {
	handler := Actor(testLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", uuid.NewString())
	req.Header.Set("X-Actor-Role", "courier")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestActorStowsIdentityInContext(t *testing.T) {
	actorID := uuid.New()
	var gotID uuid.UUID
	var gotRole enums.ActorRole

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = ActorIDFromContext(r.Context())
		gotRole, _ = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Actor(testLogger())(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", actorID.String())
	req.Header.Set("X-Actor-Role", "seller")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if gotID != actorID || gotRole != enums.ActorRoleSeller {
		t.Fatalf("context identity = %s/%s", gotID, gotRole)
	}
}

func TestRequireRoleBlocksOtherRoles(t *testing.T) {
	handler := Actor(testLogger())(RequireRole(enums.ActorRoleAdmin, testLogger())(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Actor-Id", uuid.NewString())
	req.Header.Set("X-Actor-Role", "buyer")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

type stubLimiter struct {
	allowed bool
	calls   int
	scopes  []string
}

func (l *stubLimiter) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	l.calls++
	l.scopes = append(l.scopes, scope)
	return l.allowed, int64(l.calls), nil
}

func TestRateLimitBlocksWhenExhausted(t *testing.T) {
	limiter := &stubLimiter{allowed: false}
	policy := RateLimitPolicy{Scope: "api", Limit: 1, Window: time.Minute}
	handler := RateLimit(policy, limiter, testLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4431"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if len(limiter.scopes) != 1 || limiter.scopes[0] != "api:203.0.113.9" {
		t.Fatalf("unexpected scopes %v", limiter.scopes)
	}
}

func TestRateLimitPassesWithinBudget(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	policy := RateLimitPolicy{Scope: "api", Limit: 10, Window: time.Minute}
	handler := RateLimit(policy, limiter, testLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4431"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
}
