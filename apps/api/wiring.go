package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/platform/go/cache"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
	"github.com/zenGate-Global/worklane/platform/go/persistence/memstore"
)

// buildStore opens the configured backend. The returned func releases it.
func buildStore(ctx context.Context, cfg config, logger *zap.Logger) (persistence.Store, func(), error) {
	if strings.ToLower(cfg.StoreBackend) == backendMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		store, err := memstore.New()
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString:      cfg.DatabaseURL,
		ApplicationName: "worklane-api",
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init postgres pool: %w", err)
	}
	if cfg.BootstrapSchema {
		if err := persistence.BootstrapSchema(ctx, pool); err != nil {
			persistence.ClosePool(pool)
			return nil, nil, fmt.Errorf("bootstrap schema: %w", err)
		}
		logger.Info("schema bootstrapped")
	}

	store := persistence.NewPgStore(pool, persistence.WithLockTimeout(cfg.LockTimeout))
	return store, func() { persistence.ClosePool(pool) }, nil
}

// buildTenantCache connects to Redis when REDIS_URL is set. Without it, or
// when Redis is unreachable, tenant lookups go straight to the store.
func buildTenantCache(ctx context.Context, cfg config, logger *zap.Logger) (cache.TenantCache, func()) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return cache.Noop{}, func() {}
	}

	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("tenant cache disabled", zap.Error(err))
		return cache.Noop{}, func() {}
	}
	logger.Info("tenant cache enabled", zap.Duration("ttl", cfg.TenantCacheTTL))
	return cache.NewRedisTenantCache(client, cfg.TenantCacheTTL), func() { _ = client.Close() }
}
