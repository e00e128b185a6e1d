package requesttrace

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/worklane/platform/go/authz"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "WORKLANE_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata needed for traceability and auditing.
// UserID is set only when ActorKind is user. TenantID is nil for super admins,
// anonymous callers and system jobs.
type AuditInfo struct {
	ActorKind ActorKind
	UserID    *uuid.UUID
	TenantID  *uuid.UUID
	Role      authz.Role
	RequestID string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	audit, ok := ctx.Value(ctxAuditInfo).(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// FromActor builds an AuditInfo for an authenticated actor.
func FromActor(actor authz.Actor, requestID string) AuditInfo {
	userID := actor.UserID
	info := AuditInfo{
		ActorKind: ActorKindUser,
		UserID:    &userID,
		Role:      actor.Role,
		RequestID: requestID,
	}
	if actor.TenantID != nil {
		tenantID := *actor.TenantID
		info.TenantID = &tenantID
	}
	return info
}

// Anonymous builds an AuditInfo for unauthenticated requests (e.g., registration) where no user ID exists yet.
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for operator commands and background jobs.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
