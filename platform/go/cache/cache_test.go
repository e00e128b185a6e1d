package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// fakeRedis is an in-memory stand-in for the three commands the cache uses.
type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisTenantCacheRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := newFakeRedis()
	c := NewRedisTenantCache(fake, time.Minute)

	_, found, err := c.Get(ctx, "acme")
	require.NoError(t, err)
	require.False(t, found)

	tenant := persistence.Tenant{
		ID: uuid.New(), Name: "Acme", Subdomain: "acme", Status: persistence.TenantActive,
		SubscriptionPlan: "free", MaxUsers: 5, MaxProjects: 3,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, c.Set(ctx, tenant))
	require.Equal(t, time.Minute, fake.ttls["tenant:subdomain:acme"])

	got, found, err := c.Get(ctx, "ACME")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, tenant, got)

	require.NoError(t, c.Invalidate(ctx, "acme"))
	_, found, err = c.Get(ctx, "acme")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisTenantCacheSurfacesErrors(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.failGet = errors.New("connection refused")
	c := NewRedisTenantCache(fake, 0)

	_, found, err := c.Get(context.Background(), "acme")
	require.Error(t, err)
	require.False(t, found)
	require.Equal(t, 5*time.Minute, c.ttl)
}

func TestRedisTenantCacheRejectsCorruptEntries(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.data["tenant:subdomain:acme"] = "{not json"
	c := NewRedisTenantCache(fake, time.Minute)

	_, found, err := c.Get(context.Background(), "acme")
	require.Error(t, err)
	require.False(t, found)
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var c TenantCache = Noop{}
	require.NoError(t, c.Set(context.Background(), persistence.Tenant{Subdomain: "acme"}))
	_, found, err := c.Get(context.Background(), "acme")
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, c.Invalidate(context.Background(), "acme"))
}
