package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// ErrSubdomainTaken is returned by Register when the subdomain is already claimed.
var ErrSubdomainTaken = fmt.Errorf("subdomain taken: %w", persistence.ErrConflict)

// RecordFunc appends the registration audit record inside the transaction.
type RecordFunc func(ctx context.Context, q persistence.AuditQueries, tenant persistence.Tenant, admin persistence.User) error

// Repository defines the persistence operations required by the auth service.
type Repository interface {
	// Register creates the tenant, its first admin and the audit record in one
	// transaction. Nothing is written when any step fails.
	Register(ctx context.Context, tenant persistence.CreateTenantParams, admin persistence.CreateUserParams, record RecordFunc) (persistence.Tenant, persistence.User, error)
	TenantBySubdomain(ctx context.Context, subdomain string) (persistence.Tenant, error)
	GetTenant(ctx context.Context, id uuid.UUID) (persistence.Tenant, error)
	FindUser(ctx context.Context, tenantID *uuid.UUID, email string) (persistence.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (persistence.User, error)
}

type storeRepository struct {
	store persistence.Store
}

// New constructs a repository backed by the shared store.
func New(store persistence.Store) Repository {
	if store == nil {
		panic("store is required")
	}
	return &storeRepository{store: store}
}

func (r *storeRepository) Register(ctx context.Context, tenantParams persistence.CreateTenantParams, adminParams persistence.CreateUserParams, record RecordFunc) (persistence.Tenant, persistence.User, error) {
	var (
		tenant persistence.Tenant
		admin  persistence.User
	)
	err := r.store.InTx(ctx, func(tx persistence.Tx) error {
		// The lookup runs inside the transaction; the unique index still
		// decides a race between two registrations that both pass it.
		if _, err := tx.GetTenantBySubdomain(ctx, tenantParams.Subdomain); err == nil {
			return ErrSubdomainTaken
		} else if !errors.Is(err, persistence.ErrNotFound) {
			return err
		}

		var err error
		if tenant, err = tx.CreateTenant(ctx, tenantParams); err != nil {
			return err
		}
		adminParams.TenantID = &tenant.ID
		if admin, err = tx.CreateUser(ctx, adminParams); err != nil {
			return err
		}
		return record(ctx, tx, tenant, admin)
	})
	if err != nil {
		return persistence.Tenant{}, persistence.User{}, err
	}
	return tenant, admin, nil
}

func (r *storeRepository) TenantBySubdomain(ctx context.Context, subdomain string) (persistence.Tenant, error) {
	return r.store.Client().GetTenantBySubdomain(ctx, subdomain)
}

func (r *storeRepository) GetTenant(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	return r.store.Client().GetTenant(ctx, id)
}

func (r *storeRepository) FindUser(ctx context.Context, tenantID *uuid.UUID, email string) (persistence.User, error) {
	return r.store.Client().FindUserByEmail(ctx, tenantID, email)
}

func (r *storeRepository) GetUser(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	return r.store.Client().GetUser(ctx, id)
}
