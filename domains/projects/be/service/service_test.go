package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/worklane/domains/projects/be/repo"
	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/audit"
	"github.com/zenGate-Global/worklane/platform/go/authz"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

type mockRepository struct {
	createFn func(ctx context.Context, params persistence.CreateProjectParams, check repo.QuotaCheck) (persistence.Project, error)
	listFn   func(ctx context.Context, params persistence.ListProjectsParams) (persistence.ListResult[persistence.ProjectView], error)
	getFn    func(ctx context.Context, id uuid.UUID) (persistence.ProjectView, error)
	updateFn func(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Project, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRepository) Create(ctx context.Context, params persistence.CreateProjectParams, check repo.QuotaCheck) (persistence.Project, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, params, check)
}

func (m *mockRepository) List(ctx context.Context, params persistence.ListProjectsParams) (persistence.ListResult[persistence.ProjectView], error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, params)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (persistence.ProjectView, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Project, error) {
	if m.updateFn == nil {
		panic("updateFn not configured")
	}
	return m.updateFn(ctx, id, mask)
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, id)
}

type recorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recorder) Record(_ context.Context, entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func actorIn(tenantID uuid.UUID, role authz.Role) authz.Actor {
	return authz.Actor{UserID: uuid.New(), TenantID: &tenantID, Role: role}
}

func TestServiceCreateDefaultsAndAudit(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	actor := actorIn(tenantID, authz.RoleUser)
	rec := &recorder{}
	repository := &mockRepository{
		createFn: func(ctx context.Context, params persistence.CreateProjectParams, check repo.QuotaCheck) (persistence.Project, error) {
			require.Equal(t, tenantID, params.TenantID)
			require.Equal(t, actor.UserID, params.CreatedBy)
			require.Equal(t, "Roadmap", params.Name)
			require.Equal(t, DefaultStatus, params.Status)
			require.NoError(t, check(persistence.Tenant{ID: tenantID, MaxProjects: 3}, 2))
			return persistence.Project{ID: params.ID, TenantID: params.TenantID, Name: params.Name, Status: params.Status, CreatedBy: params.CreatedBy}, nil
		},
	}

	project, err := New(repository, rec).Create(context.Background(), actor, CreateInput{Name: "  Roadmap "})
	require.NoError(t, err)
	require.Equal(t, "Roadmap", project.Name)
	require.Equal(t, []string{audit.CreateProject}, rec.actions())
}

func TestServiceCreateValidation(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	_, err := New(&mockRepository{}, &recorder{}).Create(context.Background(), actorIn(tenantID, authz.RoleUser), CreateInput{Name: "   "})

	var validationErr *apperr.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "name")
}

func TestServiceCreateQuota(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	repository := &mockRepository{
		createFn: func(ctx context.Context, params persistence.CreateProjectParams, check repo.QuotaCheck) (persistence.Project, error) {
			return persistence.Project{}, check(persistence.Tenant{ID: tenantID, MaxProjects: 3}, 3)
		},
	}

	_, err := New(repository, &recorder{}).Create(context.Background(), actorIn(tenantID, authz.RoleTenantAdmin), CreateInput{Name: "Fourth"})
	require.ErrorIs(t, err, apperr.ErrQuotaExceeded)
	msg, _ := apperr.Message(err)
	require.Equal(t, "Subscription project limit reached", msg)
}

func TestServiceCreateBySuperAdminIsForbidden(t *testing.T) {
	t.Parallel()

	superAdmin := authz.Actor{UserID: uuid.New(), Role: authz.RoleSuperAdmin}
	_, err := New(&mockRepository{}, &recorder{}).Create(context.Background(), superAdmin, CreateInput{Name: "Global"})
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestServiceGetCrossTenantIsNotFound(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	repository := &mockRepository{
		getFn: func(ctx context.Context, id uuid.UUID) (persistence.ProjectView, error) {
			return persistence.ProjectView{Project: persistence.Project{ID: id, TenantID: tenantID}}, nil
		},
	}
	svc := New(repository, &recorder{})

	_, err := svc.Get(context.Background(), actorIn(uuid.New(), authz.RoleTenantAdmin), uuid.New())
	require.ErrorIs(t, err, apperr.ErrNotFound)
	msg, _ := apperr.Message(err)
	require.Equal(t, "Project not found", msg)

	_, err = svc.Get(context.Background(), actorIn(tenantID, authz.RoleUser), uuid.New())
	require.NoError(t, err)
}

func TestServiceUpdateOwnerOrAdmin(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	owner := actorIn(tenantID, authz.RoleUser)
	view := persistence.ProjectView{Project: persistence.Project{ID: uuid.New(), TenantID: tenantID, Name: "Old", CreatedBy: owner.UserID}}
	updates := 0
	rec := &recorder{}

	repository := &mockRepository{
		getFn: func(ctx context.Context, id uuid.UUID) (persistence.ProjectView, error) { return view, nil },
		updateFn: func(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.Project, error) {
			updates++
			require.Equal(t, []string{"name"}, mask.Fields())
			return view.Project, nil
		},
	}
	svc := New(repository, rec)
	input := UpdateInput{Name: nullable.NewNullableWithValue("New")}

	_, err := svc.Update(context.Background(), actorIn(tenantID, authz.RoleUser), view.ID, input)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	require.Zero(t, updates)

	_, err = svc.Update(context.Background(), owner, view.ID, input)
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), actorIn(tenantID, authz.RoleTenantAdmin), view.ID, input)
	require.NoError(t, err)
	require.Equal(t, 2, updates)
	require.Equal(t, []string{audit.UpdateProject, audit.UpdateProject}, rec.actions())

	_, err = svc.Update(context.Background(), owner, view.ID, UpdateInput{Name: nullable.NewNullNullable[string]()})
	var validationErr *apperr.ValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestServiceDeleteMissing(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{
		getFn: func(ctx context.Context, id uuid.UUID) (persistence.ProjectView, error) {
			return persistence.ProjectView{}, persistence.ErrNotFound
		},
	}

	err := New(repository, &recorder{}).Delete(context.Background(), actorIn(uuid.New(), authz.RoleTenantAdmin), uuid.New())
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestServiceListUsesActorTenant(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	repository := &mockRepository{
		listFn: func(ctx context.Context, params persistence.ListProjectsParams) (persistence.ListResult[persistence.ProjectView], error) {
			require.Equal(t, tenantID, params.TenantID)
			require.Equal(t, "active", params.Status)
			return persistence.ListResult[persistence.ProjectView]{Items: []persistence.ProjectView{{TaskCount: 2}}, Total: 1}, nil
		},
	}

	result, err := New(repository, &recorder{}).List(context.Background(), actorIn(tenantID, authz.RoleUser), ListOptions{Status: "active"})
	require.NoError(t, err)
	require.Equal(t, 2, result.Projects[0].TaskCount)
}
