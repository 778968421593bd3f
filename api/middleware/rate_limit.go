package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/brandcart/brandcart-backend/api/responses"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
)

// FixedWindowLimiter is the slice of the redis client the limiter needs.
type FixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy names a scope and its per-window budget.
type RateLimitPolicy struct {
	Scope  string
	Limit  int64
	Window time.Duration
}

// RateLimit applies a fixed-window limit keyed by actor id when present,
// falling back to the client IP. Redis outages fail open: throttling is
// protection, not correctness.
func RateLimit(policy RateLimitPolicy, limiter FixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := clientKey(r)
			scope := fmt.Sprintf("%s:%s", policy.Scope, key)

			allowed, count, err := limiter.FixedWindowAllow(r.Context(), scope, policy.Limit, policy.Window)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "rate limit check failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{"scope": policy.Scope, "count": count})
				}
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if actorID, ok := ActorIDFromContext(r.Context()); ok {
		return actorID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
