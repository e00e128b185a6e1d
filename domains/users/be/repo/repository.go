package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// QuotaCheck runs under the tenant lock with the current member count and
// rejects the creation by returning an error.
type QuotaCheck func(tenant persistence.Tenant, used int) error

// Repository defines the persistence operations required by the users service.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateUserParams, check QuotaCheck) (persistence.User, error)
	List(ctx context.Context, params persistence.ListUsersParams) (persistence.ListResult[persistence.User], error)
	Get(ctx context.Context, id uuid.UUID) (persistence.User, error)
	Update(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
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

// Create locks the tenant, counts its users and inserts in one transaction,
// so concurrent creations cannot both take the last slot.
func (r *storeRepository) Create(ctx context.Context, params persistence.CreateUserParams, check QuotaCheck) (persistence.User, error) {
	var created persistence.User
	err := r.store.InTx(ctx, func(tx persistence.Tx) error {
		tenant, err := tx.LockTenant(ctx, *params.TenantID)
		if err != nil {
			return err
		}
		used, err := tx.CountUsers(ctx, tenant.ID)
		if err != nil {
			return err
		}
		if err := check(tenant, used); err != nil {
			return err
		}
		created, err = tx.CreateUser(ctx, params)
		return err
	})
	return created, err
}

func (r *storeRepository) List(ctx context.Context, params persistence.ListUsersParams) (persistence.ListResult[persistence.User], error) {
	return r.store.Client().ListUsers(ctx, params)
}

func (r *storeRepository) Get(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	return r.store.Client().GetUser(ctx, id)
}

func (r *storeRepository) Update(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.User, error) {
	return r.store.Client().UpdateUser(ctx, id, mask)
}

func (r *storeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.Client().DeleteUser(ctx, id)
}
