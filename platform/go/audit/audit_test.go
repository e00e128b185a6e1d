package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zenGate-Global/worklane/platform/go/authz"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
	"github.com/zenGate-Global/worklane/platform/go/persistence/memstore"
	"github.com/zenGate-Global/worklane/platform/go/requesttrace"
)

func newTenant(t *testing.T, store *memstore.Store) persistence.Tenant {
	t.Helper()
	tenant, err := store.Client().CreateTenant(context.Background(), persistence.CreateTenantParams{
		ID:               uuid.New(),
		Name:             "Acme",
		Subdomain:        "acme-" + uuid.NewString()[:8],
		Status:           persistence.TenantActive,
		SubscriptionPlan: "free",
		MaxUsers:         5,
		MaxProjects:      3,
	})
	require.NoError(t, err)
	return tenant
}

func TestFromContextUsesActor(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	actor := authz.Actor{UserID: uuid.New(), TenantID: &tenantID, Role: authz.RoleUser}
	ctx := requesttrace.IntoContext(context.Background(), requesttrace.FromActor(actor, "req-1"))

	entityID := uuid.New()
	entry := FromContext(ctx, &tenantID, CreateProject, EntityProject, entityID)

	require.Equal(t, tenantID, *entry.TenantID)
	require.Equal(t, actor.UserID, *entry.UserID)
	require.Equal(t, entityID, entry.EntityID)
}

func TestFromContextSystemHasNoUser(t *testing.T) {
	t.Parallel()

	ctx := requesttrace.IntoContext(context.Background(), requesttrace.System("cli"))
	tenantID := uuid.New()
	entry := FromContext(ctx, &tenantID, UpdateTenant, EntityTenant, uuid.New())
	require.Nil(t, entry.UserID)
	require.Equal(t, tenantID, *entry.TenantID)
}

func TestRecordTxRollsBackWithTransaction(t *testing.T) {
	t.Parallel()

	store, err := memstore.New()
	require.NoError(t, err)
	tenant := newTenant(t, store)
	rec := NewRecorder(store, zap.NewNop())
	ctx := context.Background()

	err = store.InTx(ctx, func(tx persistence.Tx) error {
		require.NoError(t, rec.RecordTx(ctx, tx, Entry{TenantID: &tenant.ID, Action: UpdateTenant, EntityType: EntityTenant, EntityID: tenant.ID}))
		return persistence.ErrConflict
	})
	require.ErrorIs(t, err, persistence.ErrConflict)

	list, err := store.Client().ListAudit(ctx, persistence.ListAuditParams{TenantID: tenant.ID, Page: persistence.Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	require.Zero(t, list.Total)
}

func TestRecordBestEffort(t *testing.T) {
	t.Parallel()

	store, err := memstore.New()
	require.NoError(t, err)
	tenant := newTenant(t, store)

	core, logs := observer.New(zapcore.ErrorLevel)
	rec := NewRecorder(store, zap.New(core))
	ctx := requesttrace.IntoContext(context.Background(), requesttrace.Anonymous("req-42"))

	rec.Record(ctx, Entry{TenantID: &tenant.ID, Action: CreateProject, EntityType: EntityProject, EntityID: uuid.New()})
	require.Zero(t, logs.Len())

	missing := uuid.New()
	rec.Record(ctx, Entry{TenantID: &missing, Action: DeleteProject, EntityType: EntityProject, EntityID: uuid.New()})
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "audit write failed", entry.Message)
	require.Equal(t, "req-42", entry.ContextMap()["request_id"])

	list, err := store.Client().ListAudit(context.Background(), persistence.ListAuditParams{TenantID: tenant.ID, Page: persistence.Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	require.Equal(t, CreateProject, list.Items[0].Action)
}
