package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// ErrCreatorNotMember reports that the creating user no longer belongs to the
// tenant, e.g. a deleted user still holding a valid token.
var ErrCreatorNotMember = errors.New("creator is not a member of the tenant")

// QuotaCheck runs under the tenant lock with the current project count and
// rejects the creation by returning an error.
type QuotaCheck func(tenant persistence.Tenant, used int) error

// Repository defines the persistence operations required by the projects service.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateProjectParams, check QuotaCheck) (persistence.Project, error)
	List(ctx context.Context, params persistence.ListProjectsParams) (persistence.ListResult[persistence.ProjectView], error)
	Get(ctx context.Context, id uuid.UUID) (persistence.ProjectView, error)
	Update(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Project, error)
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

func (r *storeRepository) Create(ctx context.Context, params persistence.CreateProjectParams, check QuotaCheck) (persistence.Project, error) {
	var created persistence.Project
	err := r.store.InTx(ctx, func(tx persistence.Tx) error {
		tenant, err := tx.LockTenant(ctx, params.TenantID)
		if err != nil {
			return err
		}
		creator, err := tx.GetUser(ctx, params.CreatedBy)
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			return fmt.Errorf("user %s: %w", params.CreatedBy, ErrCreatorNotMember)
		case err != nil:
			return err
		case creator.TenantID == nil || *creator.TenantID != tenant.ID:
			return fmt.Errorf("user %s: %w", params.CreatedBy, ErrCreatorNotMember)
		}
		used, err := tx.CountProjects(ctx, tenant.ID)
		if err != nil {
			return err
		}
		if err := check(tenant, used); err != nil {
			return err
		}
		created, err = tx.CreateProject(ctx, params)
		return err
	})
	return created, err
}

func (r *storeRepository) List(ctx context.Context, params persistence.ListProjectsParams) (persistence.ListResult[persistence.ProjectView], error) {
	return r.store.Client().ListProjects(ctx, params)
}

func (r *storeRepository) Get(ctx context.Context, id uuid.UUID) (persistence.ProjectView, error) {
	return r.store.Client().GetProject(ctx, id)
}

func (r *storeRepository) Update(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Project, error) {
	return r.store.Client().UpdateProject(ctx, id, mask)
}

func (r *storeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.Client().DeleteProject(ctx, id)
}
