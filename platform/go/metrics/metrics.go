package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worklane_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worklane_login_attempts_total",
			Help: "Login attempts by path (global or tenant) and outcome",
		},
		[]string{"path", "outcome"},
	)
	registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worklane_tenant_registrations_total",
			Help: "Tenant registration attempts by outcome",
		},
		[]string{"outcome"},
	)
	authzDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worklane_authz_denials_total",
			Help: "Authorization denials by action and reason",
		},
		[]string{"action", "reason"},
	)
	auditFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worklane_audit_write_failures_total",
			Help: "Audit records that could not be written",
		},
		[]string{"action"},
	)
)

// Instrument records request duration labelled by the matched chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		httpRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordLogin(path, outcome string) {
	loginAttempts.WithLabelValues(path, outcome).Inc()
}

func RecordRegistration(outcome string) {
	registrations.WithLabelValues(outcome).Inc()
}

func RecordDenial(action, reason string) {
	authzDenials.WithLabelValues(action, reason).Inc()
}

func RecordAuditFailure(action string) {
	auditFailures.WithLabelValues(action).Inc()
}
