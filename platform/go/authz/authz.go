// Package authz is the single decision point for tenant isolation and
// role-based permissions. Decide is pure and safe for concurrent use; Enforce
// wraps it with logging, metrics, and conversion into the error taxonomy.
package authz

import (
	"github.com/google/uuid"
)

// Role is the permission class carried by every user and actor.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleUser        Role = "user"
)

// ParseRole validates a role string.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleSuperAdmin, RoleTenantAdmin, RoleUser:
		return Role(raw), true
	default:
		return "", false
	}
}

// Actor is the authenticated identity attached to one request.
type Actor struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	Role     Role
}

// InTenant reports whether the actor is a member of tenant id.
func (a Actor) InTenant(id uuid.UUID) bool {
	return a.TenantID != nil && *a.TenantID == id
}

func (a Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin && a.TenantID == nil
}

// Action enumerates the protected operations.
type Action int

const (
	ReadTenant Action = iota + 1
	ModifyTenant
	ListTenants
	ReadTenantAudit
	ListUsers
	CreateUser
	ModifyUser
	DeleteUser
	CreateProject
	ReadProject
	ModifyProject
	DeleteProject
	AccessTasks
	ModifyTask
	DeleteTask
)

var actionNames = map[Action]string{
	ReadTenant:      "read_tenant",
	ModifyTenant:    "modify_tenant",
	ListTenants:     "list_tenants",
	ReadTenantAudit: "read_tenant_audit",
	ListUsers:       "list_users",
	CreateUser:      "create_user",
	ModifyUser:      "modify_user",
	DeleteUser:      "delete_user",
	CreateProject:   "create_project",
	ReadProject:     "read_project",
	ModifyProject:   "modify_project",
	DeleteProject:   "delete_project",
	AccessTasks:     "access_tasks",
	ModifyTask:      "modify_task",
	DeleteTask:      "delete_task",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Quota is the slot accounting for a creation action. The zero value has no
// free slot.
type Quota struct {
	Limit int
	Used  int
}

// Target describes the entity an action is aimed at. Only the fields relevant
// to the action need to be set.
type Target struct {
	// TenantID owns the target entity (or is the tenant itself).
	TenantID uuid.UUID
	// UserID is the target user for user actions.
	UserID uuid.UUID
	// OwnerID is the creator of a project.
	OwnerID uuid.UUID
	// Quota applies to CreateUser and CreateProject.
	Quota Quota
	// Fields lists the fields a modify action writes.
	Fields []string
}

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Reason tags a denial. It is for logs and metrics only.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonCrossTenant
	ReasonRoleInsufficient
	ReasonQuotaExceeded
	ReasonSelfActionForbidden
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonCrossTenant:
		return "cross_tenant"
	case ReasonRoleInsufficient:
		return "role_insufficient"
	case ReasonQuotaExceeded:
		return "quota_exceeded"
	case ReasonSelfActionForbidden:
		return "self_action_forbidden"
	default:
		return "unknown"
	}
}

// Result pairs a decision with its reason.
type Result struct {
	Decision Decision
	Reason   Reason
}

func (r Result) Allowed() bool { return r.Decision == Allow }

var allow = Result{Decision: Allow}

func deny(reason Reason) Result {
	return Result{Decision: Deny, Reason: reason}
}

// Fields a tenant admin may change on their own tenant, and a user on their
// own profile. Everything else needs a higher role.
var (
	tenantAdminTenantFields = map[string]struct{}{"name": {}}
	selfUserFields          = map[string]struct{}{"fullName": {}}
)

// Decide evaluates actor, action and target against the permission matrix.
// Rules are checked in order and the first failing one determines the reason.
func Decide(actor Actor, action Action, target Target) Result {
	switch action {
	case ListTenants:
		if actor.IsSuperAdmin() {
			return allow
		}
		return deny(ReasonRoleInsufficient)

	case ReadTenant, ListUsers:
		if actor.IsSuperAdmin() {
			return allow
		}
		if actor.InTenant(target.TenantID) && (actor.Role == RoleTenantAdmin || actor.Role == RoleUser) {
			return allow
		}
		return deny(ReasonCrossTenant)

	case ModifyTenant:
		if actor.IsSuperAdmin() {
			return allow
		}
		if r, ok := member(actor, target.TenantID); !ok {
			return r
		}
		if actor.Role != RoleTenantAdmin || !within(target.Fields, tenantAdminTenantFields) {
			return deny(ReasonRoleInsufficient)
		}
		return allow

	case ReadTenantAudit:
		if actor.IsSuperAdmin() {
			return allow
		}
		if r, ok := member(actor, target.TenantID); !ok {
			return r
		}
		if actor.Role != RoleTenantAdmin {
			return deny(ReasonRoleInsufficient)
		}
		return allow

	case CreateUser:
		if r, ok := member(actor, target.TenantID); !ok {
			return r
		}
		if actor.Role != RoleTenantAdmin {
			return deny(ReasonRoleInsufficient)
		}
		return quota(target.Quota)

	case ModifyUser:
		if actor.UserID == target.UserID && within(target.Fields, selfUserFields) {
			return allow
		}
		if r, ok := member(actor, target.TenantID); !ok {
			return r
		}
		if actor.Role != RoleTenantAdmin {
			return deny(ReasonRoleInsufficient)
		}
		return allow

	case DeleteUser:
		if r, ok := member(actor, target.TenantID); !ok {
			return r
		}
		if actor.Role != RoleTenantAdmin {
			return deny(ReasonRoleInsufficient)
		}
		if actor.UserID == target.UserID {
			return deny(ReasonSelfActionForbidden)
		}
		return allow

	case CreateProject:
		if r, ok := member(actor, target.TenantID); !ok {
			return r
		}
		return quota(target.Quota)

	case ModifyProject, DeleteProject:
		if r, ok := member(actor, target.TenantID); !ok {
			return r
		}
		if actor.Role != RoleTenantAdmin && actor.UserID != target.OwnerID {
			return deny(ReasonRoleInsufficient)
		}
		return allow

	case ReadProject, AccessTasks, ModifyTask, DeleteTask:
		if r, ok := member(actor, target.TenantID); !ok {
			return r
		}
		return allow

	default:
		return deny(ReasonRoleInsufficient)
	}
}

// member checks tenant membership. A super admin has no tenant; for them a
// tenant-scoped action is a role problem, not a hidden resource.
func member(actor Actor, tenantID uuid.UUID) (Result, bool) {
	if actor.InTenant(tenantID) {
		return allow, true
	}
	if actor.IsSuperAdmin() {
		return deny(ReasonRoleInsufficient), false
	}
	return deny(ReasonCrossTenant), false
}

func quota(q Quota) Result {
	if q.Used >= q.Limit {
		return deny(ReasonQuotaExceeded)
	}
	return allow
}

func within(fields []string, allowed map[string]struct{}) bool {
	for _, f := range fields {
		if _, ok := allowed[f]; !ok {
			return false
		}
	}
	return true
}
