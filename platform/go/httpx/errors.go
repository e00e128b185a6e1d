package httpx

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/logging"
)

const internalMessage = "Internal server error"

// Classify maps an error onto an HTTP status and a caller-safe message.
// Unknown errors are storage failures: 500 with a generic message.
func Classify(err error) (int, string, apperr.FieldErrors) {
	var validationErr *apperr.ValidationError
	if errors.As(err, &validationErr) {
		msg, ok := apperr.Message(err)
		if !ok {
			msg = "Validation failed"
		}
		return http.StatusBadRequest, msg, validationErr.Fields
	}

	status, fallback := statusFor(err)
	if status == http.StatusInternalServerError {
		return status, internalMessage, nil
	}
	if msg, ok := apperr.Message(err); ok {
		return status, msg, nil
	}
	return status, fallback, nil
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrBadCredential):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, apperr.ErrQuotaExceeded):
		return http.StatusForbidden, "Subscription limit reached"
	case errors.Is(err, apperr.ErrAccountInactive):
		return http.StatusForbidden, "Account is inactive"
	case errors.Is(err, apperr.ErrTenantInactive):
		return http.StatusForbidden, "Tenant is inactive"
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "Conflict"
	default:
		return http.StatusInternalServerError, internalMessage
	}
}

// Error classifies err, logs it on the request logger and writes the failure
// envelope. 5xx logs at Error, 404 at Info, other 4xx at Warn.
func Error(w http.ResponseWriter, r *http.Request, fallback *zap.Logger, operation string, err error) {
	status, message, fields := Classify(err)

	logger := logging.Ctx(r.Context(), fallback)
	logFields := []zap.Field{
		zap.String("operation", operation),
		zap.Int("status", status),
		zap.Error(err),
	}
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("operation failed", logFields...)
	case status == http.StatusNotFound:
		logger.Info("resource not found", logFields...)
	default:
		logger.Warn("request rejected", logFields...)
	}

	Fail(w, status, message, fields)
}
