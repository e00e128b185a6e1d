package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// Repository defines the persistence operations required by the tenants service.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (persistence.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (persistence.Tenant, error)
	List(ctx context.Context, params persistence.ListTenantsParams) (persistence.ListResult[persistence.Tenant], error)
	Update(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Tenant, error)
	Stats(ctx context.Context, id uuid.UUID) (persistence.TenantStats, error)
	ListAudit(ctx context.Context, params persistence.ListAuditParams) (persistence.ListResult[persistence.AuditEntry], error)
}

type storeRepository struct {
	client persistence.Client
}

// New constructs a repository backed by the shared store.
func New(store persistence.Store) Repository {
	if store == nil {
		panic("store is required")
	}
	return &storeRepository{client: store.Client()}
}

func (r *storeRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	return r.client.GetTenant(ctx, id)
}

func (r *storeRepository) GetBySubdomain(ctx context.Context, subdomain string) (persistence.Tenant, error) {
	return r.client.GetTenantBySubdomain(ctx, subdomain)
}

func (r *storeRepository) List(ctx context.Context, params persistence.ListTenantsParams) (persistence.ListResult[persistence.Tenant], error) {
	return r.client.ListTenants(ctx, params)
}

func (r *storeRepository) Update(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Tenant, error) {
	return r.client.UpdateTenant(ctx, id, mask)
}

func (r *storeRepository) Stats(ctx context.Context, id uuid.UUID) (persistence.TenantStats, error) {
	return r.client.TenantStats(ctx, id)
}

func (r *storeRepository) ListAudit(ctx context.Context, params persistence.ListAuditParams) (persistence.ListResult[persistence.AuditEntry], error) {
	return r.client.ListAudit(ctx, params)
}
