package tenantcmd

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/apps/cli/cmd/clienv"
	"github.com/zenGate-Global/worklane/domains/tenants/be/repo"
	"github.com/zenGate-Global/worklane/domains/tenants/be/service"
	"github.com/zenGate-Global/worklane/platform/go/audit"
	"github.com/zenGate-Global/worklane/platform/go/cache"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
	"github.com/zenGate-Global/worklane/platform/go/requesttrace"
)

// Command groups operator actions on tenants.
func Command() *cobra.Command {
	defaults := clienv.MustLoad()

	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant operator actions (suspend, activate)",
	}

	cmd.AddCommand(statusCommand(defaults, "suspend", "suspended", "Suspend a tenant; its users can no longer log in"))
	cmd.AddCommand(statusCommand(defaults, "activate", "active", "Reactivate a suspended tenant"))
	return cmd
}

func statusCommand(defaults clienv.Env, use, status, short string) *cobra.Command {
	var (
		databaseURL string
		redisURL    string
		subdomain   string
	)

	c := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, store, closeFn, err := clienv.OpenStore(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer closeFn()

			tenantCache, closeCache, err := openCache(ctx, redisURL, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeCache()

			tenant, err := SetStatus(ctx, store, tenantCache, subdomain, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s (%s) is now %s.\n", tenant.Subdomain, tenant.ID, tenant.Status)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", defaults.DatabaseURL, "PostgreSQL connection string")
	c.Flags().StringVar(&redisURL, "redis-url", defaults.RedisURL, "Redis URL of the tenant cache to invalidate (optional)")
	c.Flags().StringVar(&subdomain, "subdomain", "", "tenant subdomain")
	_ = c.MarkFlagRequired("subdomain")

	return c
}

// openCache connects to the API's tenant cache. Without a URL nothing is
// invalidated and a warning is written to warn.
func openCache(ctx context.Context, redisURL string, warn io.Writer) (cache.TenantCache, func(), error) {
	if redisURL == "" {
		fmt.Fprintln(warn, "warning: no --redis-url or REDIS_URL; if the API caches tenants in Redis, "+
			"its subdomain entries stay until TENANT_CACHE_TTL (status is always read from the database)")
		return cache.Noop{}, func() {}, nil
	}
	client, err := cache.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return cache.NewRedisTenantCache(client, 0), func() { _ = client.Close() }, nil
}

// SetStatus changes a tenant's status as the system actor.
func SetStatus(ctx context.Context, store persistence.Store, tenantCache cache.TenantCache, subdomain, status string) (service.Tenant, error) {
	svc := service.New(repo.New(store), audit.NewRecorder(store, zap.NewNop()), tenantCache)
	ctx = requesttrace.IntoContext(ctx, requesttrace.System("cli-"+uuid.NewString()))
	return svc.SetStatus(ctx, subdomain, status)
}
