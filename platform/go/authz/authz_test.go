package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/logging"
)

func ptr[T any](v T) *T { return &v }

func TestDecideMatrix(t *testing.T) {
	t.Parallel()

	tenantA := uuid.New()
	tenantB := uuid.New()
	adminA := Actor{UserID: uuid.New(), TenantID: ptr(tenantA), Role: RoleTenantAdmin}
	userA := Actor{UserID: uuid.New(), TenantID: ptr(tenantA), Role: RoleUser}
	adminB := Actor{UserID: uuid.New(), TenantID: ptr(tenantB), Role: RoleTenantAdmin}
	super := Actor{UserID: uuid.New(), Role: RoleSuperAdmin}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		target Target
		want   Result
	}{
		{"super admin lists tenants", super, ListTenants, Target{}, allow},
		{"tenant admin cannot list tenants", adminA, ListTenants, Target{}, deny(ReasonRoleInsufficient)},
		{"super admin reads any tenant", super, ReadTenant, Target{TenantID: tenantB}, allow},
		{"member reads own tenant", userA, ReadTenant, Target{TenantID: tenantA}, allow},
		{"member of other tenant", adminB, ReadTenant, Target{TenantID: tenantA}, deny(ReasonCrossTenant)},
		{"user cannot modify tenant", userA, ModifyTenant, Target{TenantID: tenantA, Fields: []string{"name"}}, deny(ReasonRoleInsufficient)},
		{"tenant admin renames tenant", adminA, ModifyTenant, Target{TenantID: tenantA, Fields: []string{"name"}}, allow},
		{"tenant admin cannot change plan", adminA, ModifyTenant, Target{TenantID: tenantA, Fields: []string{"name", "maxUsers"}}, deny(ReasonRoleInsufficient)},
		{"tenant admin of other tenant", adminB, ModifyTenant, Target{TenantID: tenantA, Fields: []string{"name"}}, deny(ReasonCrossTenant)},
		{"super admin changes status", super, ModifyTenant, Target{TenantID: tenantA, Fields: []string{"status"}}, allow},
		{"create user with free slot", adminA, CreateUser, Target{TenantID: tenantA, Quota: Quota{Limit: 5, Used: 4}}, allow},
		{"create user at limit", adminA, CreateUser, Target{TenantID: tenantA, Quota: Quota{Limit: 5, Used: 5}}, deny(ReasonQuotaExceeded)},
		{"create user without quota", adminA, CreateUser, Target{TenantID: tenantA}, deny(ReasonQuotaExceeded)},
		{"user cannot create user", userA, CreateUser, Target{TenantID: tenantA, Quota: Quota{Limit: 5}}, deny(ReasonRoleInsufficient)},
		{"create user cross tenant", adminB, CreateUser, Target{TenantID: tenantA, Quota: Quota{Limit: 5}}, deny(ReasonCrossTenant)},
		{"super admin cannot create tenant user", super, CreateUser, Target{TenantID: tenantA, Quota: Quota{Limit: 5}}, deny(ReasonRoleInsufficient)},
		{"self renames", userA, ModifyUser, Target{TenantID: tenantA, UserID: userA.UserID, Fields: []string{"fullName"}}, allow},
		{"self cannot change role", userA, ModifyUser, Target{TenantID: tenantA, UserID: userA.UserID, Fields: []string{"role"}}, deny(ReasonRoleInsufficient)},
		{"admin changes member role", adminA, ModifyUser, Target{TenantID: tenantA, UserID: userA.UserID, Fields: []string{"role", "isActive"}}, allow},
		{"user modifies other user", userA, ModifyUser, Target{TenantID: tenantA, UserID: adminA.UserID, Fields: []string{"fullName"}}, deny(ReasonRoleInsufficient)},
		{"admin modifies user of other tenant", adminB, ModifyUser, Target{TenantID: tenantA, UserID: userA.UserID, Fields: []string{"fullName"}}, deny(ReasonCrossTenant)},
		{"admin deletes member", adminA, DeleteUser, Target{TenantID: tenantA, UserID: userA.UserID}, allow},
		{"admin deletes self", adminA, DeleteUser, Target{TenantID: tenantA, UserID: adminA.UserID}, deny(ReasonSelfActionForbidden)},
		{"admin deletes other tenant user", adminB, DeleteUser, Target{TenantID: tenantA, UserID: userA.UserID}, deny(ReasonCrossTenant)},
		{"user deletes user", userA, DeleteUser, Target{TenantID: tenantA, UserID: adminA.UserID}, deny(ReasonRoleInsufficient)},
		{"member creates project", userA, CreateProject, Target{TenantID: tenantA, Quota: Quota{Limit: 3, Used: 2}}, allow},
		{"project quota reached", userA, CreateProject, Target{TenantID: tenantA, Quota: Quota{Limit: 3, Used: 3}}, deny(ReasonQuotaExceeded)},
		{"project in other tenant", adminB, CreateProject, Target{TenantID: tenantA, Quota: Quota{Limit: 3}}, deny(ReasonCrossTenant)},
		{"creator edits project", userA, ModifyProject, Target{TenantID: tenantA, OwnerID: userA.UserID}, allow},
		{"admin deletes project", adminA, DeleteProject, Target{TenantID: tenantA, OwnerID: userA.UserID}, allow},
		{"non creator edits project", userA, ModifyProject, Target{TenantID: tenantA, OwnerID: adminA.UserID}, deny(ReasonRoleInsufficient)},
		{"other tenant deletes project", adminB, DeleteProject, Target{TenantID: tenantA, OwnerID: adminB.UserID}, deny(ReasonCrossTenant)},
		{"member lists tasks", userA, AccessTasks, Target{TenantID: tenantA}, allow},
		{"member edits any task", userA, ModifyTask, Target{TenantID: tenantA}, allow},
		{"other tenant deletes task", adminB, DeleteTask, Target{TenantID: tenantA}, deny(ReasonCrossTenant)},
		{"super admin reads task", super, ModifyTask, Target{TenantID: tenantA}, deny(ReasonRoleInsufficient)},
		{"admin reads audit", adminA, ReadTenantAudit, Target{TenantID: tenantA}, allow},
		{"user reads audit", userA, ReadTenantAudit, Target{TenantID: tenantA}, deny(ReasonRoleInsufficient)},
		{"unknown action", adminA, Action(999), Target{TenantID: tenantA}, deny(ReasonRoleInsufficient)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Decide(tc.actor, tc.action, tc.target))
		})
	}
}

func TestDecideIsolationBothWays(t *testing.T) {
	t.Parallel()

	tenants := []uuid.UUID{uuid.New(), uuid.New()}
	actions := []Action{ReadTenant, ModifyTenant, ReadTenantAudit, ListUsers, CreateUser, ModifyUser, DeleteUser, CreateProject, ReadProject, ModifyProject, DeleteProject, AccessTasks, ModifyTask, DeleteTask}
	roles := []Role{RoleTenantAdmin, RoleUser}

	for i, own := range tenants {
		other := tenants[1-i]
		for _, role := range roles {
			actor := Actor{UserID: uuid.New(), TenantID: ptr(own), Role: role}
			for _, action := range actions {
				target := Target{
					TenantID: other,
					UserID:   uuid.New(),
					OwnerID:  actor.UserID,
					Quota:    Quota{Limit: 100},
					Fields:   []string{"name"},
				}
				result := Decide(actor, action, target)
				require.False(t, result.Allowed(), "%s as %s crossed tenants", action, role)
			}
		}
	}
}

func TestEnforceMapsReasons(t *testing.T) {
	t.Parallel()

	tenantA := uuid.New()
	ctx := logging.WithLogger(context.Background(), zaptest.NewLogger(t))
	admin := Actor{UserID: uuid.New(), TenantID: ptr(tenantA), Role: RoleTenantAdmin}
	outsider := Actor{UserID: uuid.New(), TenantID: ptr(uuid.New()), Role: RoleTenantAdmin}

	require.NoError(t, Enforce(ctx, admin, ReadProject, Target{TenantID: tenantA}))

	err := Enforce(ctx, outsider, ReadProject, Target{TenantID: tenantA})
	require.True(t, errors.Is(err, apperr.ErrNotFound))

	err = Enforce(ctx, admin, CreateProject, Target{TenantID: tenantA, Quota: Quota{Limit: 1, Used: 1}})
	require.True(t, errors.Is(err, apperr.ErrQuotaExceeded))

	err = Enforce(ctx, admin, DeleteUser, Target{TenantID: tenantA, UserID: admin.UserID})
	require.True(t, errors.Is(err, apperr.ErrForbidden))
	require.Contains(t, err.Error(), "self_action_forbidden")
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	role, ok := ParseRole("tenant_admin")
	require.True(t, ok)
	require.Equal(t, RoleTenantAdmin, role)

	_, ok = ParseRole("owner")
	require.False(t, ok)
}
