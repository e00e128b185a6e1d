package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/platform/go/authz"
	"github.com/zenGate-Global/worklane/platform/go/httpx"
	"github.com/zenGate-Global/worklane/platform/go/logging"
)

type ctxKey string

const (
	ctxActor ctxKey = "WORKLANE_ACTOR"
)

// WithActor stores the authenticated actor on the context.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the actor set by Authenticate.
func ActorFromContext(ctx context.Context) (authz.Actor, bool) {
	actor, ok := ctx.Value(ctxActor).(authz.Actor)
	return actor, ok
}

// TokenVerifier recovers the actor from a bearer token.
type TokenVerifier interface {
	Verify(token string) (authz.Actor, error)
}

// Authenticate requires a valid bearer token. The recovered actor is put on
// the context and the request logger gains user_id, tenant_id and role.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	if verifier == nil {
		panic("auth.Authenticate: verifier must not be nil")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, found := ExtractJWTToken(r)
			if !found || token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				httpx.Fail(w, http.StatusUnauthorized, "Authentication required", nil)
				return
			}

			actor, err := verifier.Verify(token)
			if err != nil {
				logging.Ctx(r.Context(), nil).Info("token rejected", zap.Error(err))
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				httpx.Fail(w, http.StatusUnauthorized, "Invalid or expired token", nil)
				return
			}

			fields := []zap.Field{
				zap.Stringer("user_id", actor.UserID),
				zap.String("role", string(actor.Role)),
			}
			if actor.TenantID != nil {
				fields = append(fields, zap.Stringer("tenant_id", *actor.TenantID))
			}

			ctx := WithActor(r.Context(), actor)
			ctx = logging.Enrich(ctx, fields...)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActor returns the request's actor, or writes a 401 envelope and
// reports false when the route was reached without authentication.
func RequireActor(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Authentication required", nil)
	}
	return actor, ok
}
