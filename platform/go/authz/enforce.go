package authz

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/logging"
	"github.com/zenGate-Global/worklane/platform/go/metrics"
)

// Enforce runs Decide and converts a denial into the error taxonomy. The
// reason is logged and counted but only surfaces to callers as NotFound
// (cross tenant), QuotaExceeded, or Forbidden.
func Enforce(ctx context.Context, actor Actor, action Action, target Target) error {
	result := Decide(actor, action, target)
	if result.Allowed() {
		return nil
	}

	metrics.RecordDenial(action.String(), result.Reason.String())
	logging.Ctx(ctx, nil).Info("authorization denied",
		zap.String("action", action.String()),
		zap.String("reason", result.Reason.String()),
		zap.Stringer("actor_id", actor.UserID),
		zap.Stringer("target_tenant_id", target.TenantID),
	)

	return Err(action, result)
}

// Err maps a denied Result onto the error taxonomy. It returns nil for Allow.
func Err(action Action, result Result) error {
	if result.Allowed() {
		return nil
	}

	var kind error
	switch result.Reason {
	case ReasonCrossTenant:
		kind = apperr.ErrNotFound
	case ReasonQuotaExceeded:
		kind = apperr.ErrQuotaExceeded
	default:
		kind = apperr.ErrForbidden
	}
	return fmt.Errorf("%s denied (%s): %w", action, result.Reason, kind)
}
