package logging

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type ctxKey struct{}

// WithLogger stores the provided logger on the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the logger from context, if present.
func FromContext(ctx context.Context) (*zap.Logger, bool) {
	logger, ok := ctx.Value(ctxKey{}).(*zap.Logger)
	return logger, ok && logger != nil
}

// Ctx returns the request-scoped logger, or fallback, or a no-op logger.
func Ctx(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if logger, ok := FromContext(ctx); ok {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

// Enrich adds fields to the request-scoped logger and returns the new context.
func Enrich(ctx context.Context, fields ...zap.Field) context.Context {
	logger, ok := FromContext(ctx)
	if !ok {
		return ctx
	}
	return WithLogger(ctx, logger.With(fields...))
}

// RequestLogger attaches a request-scoped logger (request id, method, path) to
// the context and writes one completion entry per request.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			logger := base.With(
				zap.String("http_method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			if requestID := middleware.GetReqID(r.Context()); requestID != "" {
				logger = logger.With(zap.String("request_id", requestID))
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(WithLogger(r.Context(), logger)))

			logger.Info("request completed",
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
