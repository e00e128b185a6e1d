package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/worklane/domains/users/be/repo"
	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/audit"
	"github.com/zenGate-Global/worklane/platform/go/authz"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

type mockRepository struct {
	createFn func(ctx context.Context, params persistence.CreateUserParams, check repo.QuotaCheck) (persistence.User, error)
	listFn   func(ctx context.Context, params persistence.ListUsersParams) (persistence.ListResult[persistence.User], error)
	getFn    func(ctx context.Context, id uuid.UUID) (persistence.User, error)
	updateFn func(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.User, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRepository) Create(ctx context.Context, params persistence.CreateUserParams, check repo.QuotaCheck) (persistence.User, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, params, check)
}

func (m *mockRepository) List(ctx context.Context, params persistence.ListUsersParams) (persistence.ListResult[persistence.User], error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, params)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.User, error) {
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

type plainHasher struct{}

func (plainHasher) Hash(secret string) (string, error) { return "hashed:" + secret, nil }

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

func tenantAdmin(tenantID uuid.UUID) authz.Actor {
	return authz.Actor{UserID: uuid.New(), TenantID: &tenantID, Role: authz.RoleTenantAdmin}
}

func member(tenantID uuid.UUID) authz.Actor {
	return authz.Actor{UserID: uuid.New(), TenantID: &tenantID, Role: authz.RoleUser}
}

func TestServiceCreateValidation(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{}, plainHasher{}, &recorder{})
	tenantID := uuid.New()

	_, err := svc.Create(context.Background(), tenantAdmin(tenantID), tenantID, CreateInput{Email: "nope", Password: "short", Role: "super_admin"})
	require.Error(t, err)

	var validationErr *apperr.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "email")
	require.Contains(t, validationErr.Fields, "password")
	require.Contains(t, validationErr.Fields, "fullName")
	require.Contains(t, validationErr.Fields, "role")
}

func TestServiceCreateSuccess(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	actor := tenantAdmin(tenantID)
	rec := &recorder{}
	repository := &mockRepository{}

	repository.createFn = func(ctx context.Context, params persistence.CreateUserParams, check repo.QuotaCheck) (persistence.User, error) {
		require.NotEqual(t, uuid.Nil, params.ID)
		require.Equal(t, "bob@acme.com", params.Email)
		require.Equal(t, "hashed:password1", params.PasswordHash)
		require.Equal(t, "user", params.Role)
		require.Equal(t, tenantID, *params.TenantID)
		require.True(t, params.IsActive)

		require.NoError(t, check(persistence.Tenant{ID: tenantID, MaxUsers: 5}, 4))

		return persistence.User{ID: params.ID, TenantID: params.TenantID, Email: params.Email, FullName: params.FullName, Role: params.Role, IsActive: true, CreatedAt: time.Now()}, nil
	}

	svc := New(repository, plainHasher{}, rec)
	user, err := svc.Create(context.Background(), actor, tenantID, CreateInput{Email: " Bob@Acme.com ", Password: "password1", FullName: "Bob"})
	require.NoError(t, err)
	require.Equal(t, authz.RoleUser, user.Role)
	require.Equal(t, []string{audit.CreateUser}, rec.actions())
}

func TestServiceCreateQuotaExceeded(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	repository := &mockRepository{
		createFn: func(ctx context.Context, params persistence.CreateUserParams, check repo.QuotaCheck) (persistence.User, error) {
			return persistence.User{}, check(persistence.Tenant{ID: tenantID, MaxUsers: 5}, 5)
		},
	}
	rec := &recorder{}

	_, err := New(repository, plainHasher{}, rec).Create(context.Background(), tenantAdmin(tenantID), tenantID, CreateInput{Email: "c@acme.com", Password: "password1", FullName: "C"})
	require.ErrorIs(t, err, apperr.ErrQuotaExceeded)
	msg, _ := apperr.Message(err)
	require.Equal(t, "Subscription user limit reached", msg)
	require.Empty(t, rec.actions())
}

func TestServiceCreateRejectsMemberAndForeignAdmin(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	repository := &mockRepository{
		createFn: func(ctx context.Context, params persistence.CreateUserParams, check repo.QuotaCheck) (persistence.User, error) {
			return persistence.User{}, check(persistence.Tenant{ID: tenantID, MaxUsers: 5}, 0)
		},
	}
	svc := New(repository, plainHasher{}, &recorder{})
	input := CreateInput{Email: "c@acme.com", Password: "password1", FullName: "C"}

	_, err := svc.Create(context.Background(), member(tenantID), tenantID, input)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Create(context.Background(), tenantAdmin(uuid.New()), tenantID, input)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestServiceCreateDuplicateEmail(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	repository := &mockRepository{
		createFn: func(ctx context.Context, params persistence.CreateUserParams, check repo.QuotaCheck) (persistence.User, error) {
			return persistence.User{}, persistence.ErrConflict
		},
	}

	_, err := New(repository, plainHasher{}, &recorder{}).Create(context.Background(), tenantAdmin(tenantID), tenantID, CreateInput{Email: "c@acme.com", Password: "password1", FullName: "C"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	msg, _ := apperr.Message(err)
	require.Equal(t, "Email already exists in this tenant", msg)
}

func TestServiceListScopesToTenant(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	repository := &mockRepository{
		listFn: func(ctx context.Context, params persistence.ListUsersParams) (persistence.ListResult[persistence.User], error) {
			require.Equal(t, tenantID, params.TenantID)
			require.Equal(t, "bob", params.Search)
			require.Equal(t, 2, params.Limit)
			return persistence.ListResult[persistence.User]{Items: []persistence.User{{ID: uuid.New(), Role: "user"}}, Total: 3}, nil
		},
	}
	svc := New(repository, plainHasher{}, &recorder{})

	result, err := svc.List(context.Background(), member(tenantID), tenantID, ListOptions{Page: persistence.Page{Page: 1, Limit: 2}, Search: " bob "})
	require.NoError(t, err)
	require.Len(t, result.Users, 1)
	require.Equal(t, 3, result.Total)

	_, err = svc.List(context.Background(), member(uuid.New()), tenantID, ListOptions{})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.List(context.Background(), member(tenantID), tenantID, ListOptions{Role: "owner"})
	var validationErr *apperr.ValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestServiceUpdateSelfLimitedToName(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	self := member(tenantID)
	target := persistence.User{ID: self.UserID, TenantID: &tenantID, Role: "user", IsActive: true}

	repository := &mockRepository{
		getFn: func(ctx context.Context, id uuid.UUID) (persistence.User, error) { return target, nil },
		updateFn: func(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (persistence.User, error) {
			require.Equal(t, []string{"fullName"}, mask.Fields())
			out := target
			out.FullName = "New Name"
			return out, nil
		},
	}
	rec := &recorder{}
	svc := New(repository, plainHasher{}, rec)

	updated, err := svc.Update(context.Background(), self, self.UserID, UpdateInput{FullName: nullable.NewNullableWithValue("New Name")})
	require.NoError(t, err)
	require.Equal(t, "New Name", updated.FullName)
	require.Equal(t, []string{audit.UpdateUser}, rec.actions())

	_, err = svc.Update(context.Background(), self, self.UserID, UpdateInput{Role: nullable.NewNullableWithValue("tenant_admin")})
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestServiceUpdateAdminCannotGrantSuperAdmin(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	target := persistence.User{ID: uuid.New(), TenantID: &tenantID, Role: "user", IsActive: true}
	repository := &mockRepository{
		getFn: func(ctx context.Context, id uuid.UUID) (persistence.User, error) { return target, nil },
	}
	svc := New(repository, plainHasher{}, &recorder{})

	_, err := svc.Update(context.Background(), tenantAdmin(tenantID), target.ID, UpdateInput{Role: nullable.NewNullableWithValue("super_admin")})
	var validationErr *apperr.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, []string{"role cannot be super_admin"}, validationErr.Fields["role"])

	_, err = svc.Update(context.Background(), tenantAdmin(tenantID), target.ID, UpdateInput{FullName: nullable.NewNullNullable[string]()})
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "fullName")
}

func TestServiceUpdateCrossTenantIsNotFound(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	target := persistence.User{ID: uuid.New(), TenantID: &tenantID, Role: "user"}
	repository := &mockRepository{
		getFn: func(ctx context.Context, id uuid.UUID) (persistence.User, error) { return target, nil },
	}

	_, err := New(repository, plainHasher{}, &recorder{}).Update(context.Background(), tenantAdmin(uuid.New()), target.ID, UpdateInput{IsActive: nullable.NewNullableWithValue(false)})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	msg, _ := apperr.Message(err)
	require.Equal(t, "User not found", msg)
}

func TestServiceDelete(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	admin := tenantAdmin(tenantID)
	target := persistence.User{ID: uuid.New(), TenantID: &tenantID, Role: "user"}
	deleted := 0

	repository := &mockRepository{
		getFn: func(ctx context.Context, id uuid.UUID) (persistence.User, error) {
			if id == admin.UserID {
				return persistence.User{ID: admin.UserID, TenantID: &tenantID, Role: "tenant_admin"}, nil
			}
			if id == target.ID {
				return target, nil
			}
			return persistence.User{}, persistence.ErrNotFound
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted++
			return nil
		},
	}
	rec := &recorder{}
	svc := New(repository, plainHasher{}, rec)

	err := svc.Delete(context.Background(), admin, admin.UserID)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	msg, _ := apperr.Message(err)
	require.Equal(t, "Cannot delete yourself", msg)

	require.ErrorIs(t, svc.Delete(context.Background(), tenantAdmin(uuid.New()), target.ID), apperr.ErrNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), member(tenantID), target.ID), apperr.ErrForbidden)
	require.ErrorIs(t, svc.Delete(context.Background(), admin, uuid.New()), apperr.ErrNotFound)
	require.Zero(t, deleted)

	require.NoError(t, svc.Delete(context.Background(), admin, target.ID))
	require.Equal(t, 1, deleted)
	require.Equal(t, []string{audit.DeleteUser}, rec.actions())
}

type countingHasher struct {
	mu    sync.Mutex
	calls int
}

func (h *countingHasher) Hash(secret string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return "hashed:" + secret, nil
}

func TestServiceCreateDeniedBeforeHashing(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	hasher := &countingHasher{}
	svc := New(&mockRepository{}, hasher, &recorder{})
	input := CreateInput{Email: "c@acme.com", Password: "password1", FullName: "C"}

	_, err := svc.Create(context.Background(), member(tenantID), tenantID, input)
	require.ErrorIs(t, err, apperr.ErrForbidden)
	msg, ok := apperr.Message(err)
	require.True(t, ok)
	require.Equal(t, "Unauthorized", msg)

	_, err = svc.Create(context.Background(), tenantAdmin(uuid.New()), tenantID, input)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	require.Zero(t, hasher.calls)
}
