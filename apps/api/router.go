package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	authhandler "github.com/zenGate-Global/worklane/domains/auth/be/handler"
	authrepo "github.com/zenGate-Global/worklane/domains/auth/be/repo"
	authservice "github.com/zenGate-Global/worklane/domains/auth/be/service"
	projectshandler "github.com/zenGate-Global/worklane/domains/projects/be/handler"
	projectsrepo "github.com/zenGate-Global/worklane/domains/projects/be/repo"
	projectsservice "github.com/zenGate-Global/worklane/domains/projects/be/service"
	taskshandler "github.com/zenGate-Global/worklane/domains/tasks/be/handler"
	tasksrepo "github.com/zenGate-Global/worklane/domains/tasks/be/repo"
	tasksservice "github.com/zenGate-Global/worklane/domains/tasks/be/service"
	tenantshandler "github.com/zenGate-Global/worklane/domains/tenants/be/handler"
	tenantsrepo "github.com/zenGate-Global/worklane/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/worklane/domains/tenants/be/service"
	usershandler "github.com/zenGate-Global/worklane/domains/users/be/handler"
	usersrepo "github.com/zenGate-Global/worklane/domains/users/be/repo"
	usersservice "github.com/zenGate-Global/worklane/domains/users/be/service"
	"github.com/zenGate-Global/worklane/platform/go/audit"
	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	"github.com/zenGate-Global/worklane/platform/go/cache"
	"github.com/zenGate-Global/worklane/platform/go/httpx"
	platformlogging "github.com/zenGate-Global/worklane/platform/go/logging"
	"github.com/zenGate-Global/worklane/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/worklane/platform/go/middleware"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// dependencies are the process-wide collaborators the router is built from.
type dependencies struct {
	cfg    config
	logger *zap.Logger
	store  persistence.Store
	cache  cache.TenantCache
	codec  *platformauth.JWTCodec
	hasher *platformauth.BcryptVerifier
}

func newRouter(deps dependencies) (http.Handler, error) {
	logger := deps.logger
	recorder := audit.NewRecorder(deps.store, logger)

	authHTTPHandler := authhandler.New(authservice.New(
		authrepo.New(deps.store),
		deps.hasher,
		deps.codec,
		deps.cache,
		recorder,
		authservice.Config{
			DefaultPlan:        deps.cfg.DefaultPlan,
			DefaultMaxUsers:    deps.cfg.DefaultMaxUsers,
			DefaultMaxProjects: deps.cfg.DefaultMaxProjects,
			TokenTTL:           deps.cfg.TokenTTL,
		},
	), logger)
	tenantHTTPHandler := tenantshandler.New(tenantsservice.New(tenantsrepo.New(deps.store), recorder, deps.cache), logger)
	userHTTPHandler := usershandler.New(usersservice.New(usersrepo.New(deps.store), deps.hasher, recorder), logger)
	projectHTTPHandler := projectshandler.New(projectsservice.New(projectsrepo.New(deps.store), recorder), logger)
	taskHTTPHandler := taskshandler.New(tasksservice.New(tasksrepo.New(deps.store), recorder), logger)

	loginLimiter, err := platformmiddleware.NewIPRateLimiter(deps.cfg.LoginRateLimit)
	if err != nil {
		return nil, err
	}

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		platformlogging.RequestLogger(logger),
		chimw.Recoverer,
		chimw.Timeout(deps.cfg.RequestTimeout),
		platformmiddleware.NewSecure(platformmiddleware.SecureOptions(deps.cfg.DevMode)),
		platformmiddleware.CORS(deps.cfg.CORSAllowedOrigins),
		metrics.Instrument,
	)
	rootRouter.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "Route not found", nil)
	})

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.store.Client().Ping(r.Context()); err != nil {
			platformlogging.Ctx(r.Context(), logger).Warn("readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Handle("/metrics", metrics.Handler())

	rootRouter.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := deps.store.Client().Ping(r.Context()); err != nil {
				platformlogging.Ctx(r.Context(), logger).Error("health check failed", zap.Error(err))
				httpx.Fail(w, http.StatusServiceUnavailable, "Database unavailable", nil)
				return
			}
			httpx.OKMessage(w, http.StatusOK, "API is healthy", map[string]any{
				"timestamp": time.Now().UTC(),
				"database":  "connected",
			})
		})

		api.Group(func(r chi.Router) {
			r.Use(platformmiddleware.RequestTrace)
			r.Use(loginLimiter)
			authHTTPHandler.RegisterPublic(r)
		})

		api.Group(func(r chi.Router) {
			r.Use(platformauth.Authenticate(deps.codec))
			r.Use(platformmiddleware.RequestTrace)
			authHTTPHandler.RegisterProtected(r)
			tenantHTTPHandler.Register(r)
			userHTTPHandler.Register(r)
			projectHTTPHandler.Register(r)
			taskHTTPHandler.Register(r)
		})
	})

	return rootRouter, nil
}
