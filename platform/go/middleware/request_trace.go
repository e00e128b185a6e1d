package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	platformlogging "github.com/zenGate-Global/worklane/platform/go/logging"
	"github.com/zenGate-Global/worklane/platform/go/requesttrace"
)

// RequestTrace populates the context with request-scoped AuditInfo so services can stamp audit records.
// It should run after authentication middleware so the actor is available when present.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())

		audit := requesttrace.Anonymous(requestID)
		if actor, ok := platformauth.ActorFromContext(r.Context()); ok {
			audit = requesttrace.FromActor(actor, requestID)
		}

		ctx := requesttrace.IntoContext(r.Context(), audit)
		ctx = platformlogging.Enrich(ctx, zap.String("actor_kind", string(audit.ActorKind)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
