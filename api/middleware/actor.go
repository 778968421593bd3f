package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/brandcart/brandcart-backend/api/responses"
	"github.com/brandcart/brandcart-backend/pkg/enums"
	pkgerrors "github.com/brandcart/brandcart-backend/pkg/errors"
	"github.com/brandcart/brandcart-backend/pkg/logger"
)

// Actor identity arrives from the edge proxy, which has already
// authenticated the caller. The gateway strips these headers from external
// traffic, so their presence is trusted here.
const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

type actorIDKey struct{}
type actorRoleKey struct{}

// Actor requires both identity headers and stows them in the request context.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := strings.TrimSpace(r.Header.Get(actorIDHeader))
			rawRole := strings.TrimSpace(r.Header.Get(actorRoleHeader))
			if rawID == "" || rawRole == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity required"))
				return
			}

			actorID, err := uuid.Parse(rawID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor id"))
				return
			}

			role := enums.ActorRole(rawRole)
			switch role {
			case enums.ActorRoleBuyer, enums.ActorRoleSeller, enums.ActorRoleAdmin:
			default:
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "unsupported actor role"))
				return
			}

			ctx := context.WithValue(r.Context(), actorIDKey{}, actorID)
			ctx = context.WithValue(ctx, actorRoleKey{}, role)
			if logg != nil {
				ctx = logg.WithActorRole(ctx, rawRole)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a subtree to one actor role.
func RequireRole(role enums.ActorRole, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got, ok := RoleFromContext(r.Context()); !ok || got != role {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, string(role)+" role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorIDFromContext returns the authenticated caller's id.
func ActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorIDKey{}).(uuid.UUID)
	return id, ok
}

// RoleFromContext returns the authenticated caller's role.
func RoleFromContext(ctx context.Context) (enums.ActorRole, bool) {
	role, ok := ctx.Value(actorRoleKey{}).(enums.ActorRole)
	return role, ok
}
