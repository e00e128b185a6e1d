// Package cache resolves tenants by subdomain without a store round trip.
// Entries are invalidated whenever a tenant's status or quotas change.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// TenantCache stores tenant rows keyed by subdomain.
type TenantCache interface {
	// Get returns the cached tenant; found is false on a miss.
	Get(ctx context.Context, subdomain string) (tenant persistence.Tenant, found bool, err error)
	Set(ctx context.Context, tenant persistence.Tenant) error
	Invalidate(ctx context.Context, subdomain string) error
}

// Noop never caches.
type Noop struct{}

func (Noop) Get(context.Context, string) (persistence.Tenant, bool, error) {
	return persistence.Tenant{}, false, nil
}
func (Noop) Set(context.Context, persistence.Tenant) error { return nil }
func (Noop) Invalidate(context.Context, string) error      { return nil }

// redisCmdable is the subset of *redis.Client used here.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisTenantCache keeps JSON-encoded tenants in Redis with a TTL.
type RedisTenantCache struct {
	client redisCmdable
	ttl    time.Duration
}

// NewRedisTenantCache wraps an open client.
func NewRedisTenantCache(client redisCmdable, ttl time.Duration) *RedisTenantCache {
	if client == nil {
		panic("redis client is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisTenantCache{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

type cachedTenant struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Subdomain        string    `json:"subdomain"`
	Status           string    `json:"status"`
	SubscriptionPlan string    `json:"subscriptionPlan"`
	MaxUsers         int       `json:"maxUsers"`
	MaxProjects      int       `json:"maxProjects"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func tenantKey(subdomain string) string {
	return fmt.Sprintf("tenant:subdomain:%s", strings.ToLower(strings.TrimSpace(subdomain)))
}

func (c *RedisTenantCache) Get(ctx context.Context, subdomain string) (persistence.Tenant, bool, error) {
	raw, err := c.client.Get(ctx, tenantKey(subdomain)).Bytes()
	if errors.Is(err, redis.Nil) {
		return persistence.Tenant{}, false, nil
	}
	if err != nil {
		return persistence.Tenant{}, false, fmt.Errorf("redis get tenant: %w", err)
	}

	var ct cachedTenant
	if err := json.Unmarshal(raw, &ct); err != nil {
		return persistence.Tenant{}, false, fmt.Errorf("decode cached tenant: %w", err)
	}
	return persistence.Tenant(ct), true, nil
}

func (c *RedisTenantCache) Set(ctx context.Context, tenant persistence.Tenant) error {
	raw, err := json.Marshal(cachedTenant(tenant))
	if err != nil {
		return fmt.Errorf("encode tenant: %w", err)
	}
	if err := c.client.Set(ctx, tenantKey(tenant.Subdomain), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set tenant: %w", err)
	}
	return nil
}

func (c *RedisTenantCache) Invalidate(ctx context.Context, subdomain string) error {
	if err := c.client.Del(ctx, tenantKey(subdomain)).Err(); err != nil {
		return fmt.Errorf("redis del tenant: %w", err)
	}
	return nil
}
