package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	platformlogging "github.com/zenGate-Global/worklane/platform/go/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	tenantCache, closeCache := buildTenantCache(ctx, cfg, logger)
	defer closeCache()

	codec, err := platformauth.NewJWTCodec(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		logger.Fatal("init jwt codec", zap.Error(err))
	}
	hasher, err := platformauth.NewBcryptVerifier(cfg.BcryptCost)
	if err != nil {
		logger.Fatal("init credential verifier", zap.Error(err))
	}

	handler, err := newRouter(dependencies{
		cfg:    cfg,
		logger: logger,
		store:  store,
		cache:  tenantCache,
		codec:  codec,
		hasher: hasher,
	})
	if err != nil {
		logger.Fatal("build router", zap.Error(err))
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("api server stopped")
}
