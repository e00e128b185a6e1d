package persistence

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// Store errors shared by every backend.
var (
	ErrNotFound        = errors.New("record not found")
	ErrConflict        = errors.New("record conflict")
	ErrFieldNotAllowed = errors.New("field not allowed")
	// ErrInvalidReference reports a task assignee that is missing or belongs
	// to another tenant.
	ErrInvalidReference = errors.New("invalid reference")
)

// Tenant statuses.
const (
	TenantActive    = "active"
	TenantSuspended = "suspended"
)

// Task statuses that count as done.
const TaskCompleted = "completed"

// Tenant is a row of the tenant registry.
type Tenant struct {
	ID               uuid.UUID
	Name             string
	Subdomain        string
	Status           string
	SubscriptionPlan string
	MaxUsers         int
	MaxProjects      int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TenantStats summarises the resources a tenant holds.
type TenantStats struct {
	TotalUsers    int
	TotalProjects int
	TotalTasks    int
}

// User is a row of the identity registry. TenantID is nil only for super admins.
type User struct {
	ID           uuid.UUID
	TenantID     *uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Project is a tenant-scoped project row.
type Project struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description string
	Status      string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectView is a project joined with its creator and task counters.
type ProjectView struct {
	Project
	CreatorName        *string
	TaskCount          int
	CompletedTaskCount int
}

// Task is a task row. TenantID is always copied from the parent project.
type Task struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	TenantID    uuid.UUID
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskView is a task joined with its assignee.
type TaskView struct {
	Task
	AssigneeName  *string
	AssigneeEmail *string
}

// AuditEntry is one append-only audit record.
type AuditEntry struct {
	ID         uuid.UUID
	TenantID   *uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	CreatedAt  time.Time
}

// Page selects a window of a list query. Page is 1-based.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip. It saturates at math.MaxInt
// instead of overflowing, which selects an empty page.
func (p Page) Offset() int {
	if p.Page < 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// ListResult is one page of rows plus the unpaged total.
type ListResult[T any] struct {
	Items []T
	Total int
}

type ListTenantsParams struct {
	Page
	Status           string
	SubscriptionPlan string
	Search           string
}

type CreateTenantParams struct {
	ID               uuid.UUID
	Name             string
	Subdomain        string
	Status           string
	SubscriptionPlan string
	MaxUsers         int
	MaxProjects      int
}

type ListUsersParams struct {
	Page
	TenantID uuid.UUID
	Role     string
	Search   string
}

type CreateUserParams struct {
	ID           uuid.UUID
	TenantID     *uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	IsActive     bool
}

type ListProjectsParams struct {
	Page
	TenantID uuid.UUID
	Status   string
	Search   string
}

type CreateProjectParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description string
	Status      string
	CreatedBy   uuid.UUID
}

type ListTasksParams struct {
	Page
	ProjectID  uuid.UUID
	Status     string
	Priority   string
	AssignedTo *uuid.UUID
	Search     string
}

type CreateTaskParams struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	TenantID    uuid.UUID
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
}

type ListAuditParams struct {
	Page
	TenantID uuid.UUID
	Action   string
}

type TenantQueries interface {
	GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (Tenant, error)
	ListTenants(ctx context.Context, params ListTenantsParams) (ListResult[Tenant], error)
	CreateTenant(ctx context.Context, params CreateTenantParams) (Tenant, error)
	UpdateTenant(ctx context.Context, id uuid.UUID, mask FieldMask) (Tenant, error)
	TenantStats(ctx context.Context, id uuid.UUID) (TenantStats, error)
}

type UserQueries interface {
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	// FindUserByEmail matches case-insensitively within one tenant; a nil
	// tenant searches the global (super admin) namespace.
	FindUserByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (User, error)
	ListUsers(ctx context.Context, params ListUsersParams) (ListResult[User], error)
	CountUsers(ctx context.Context, tenantID uuid.UUID) (int, error)
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, mask FieldMask) (User, error)
	// DeleteUser unassigns the user's tasks and removes the user atomically.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type ProjectQueries interface {
	GetProject(ctx context.Context, id uuid.UUID) (ProjectView, error)
	ListProjects(ctx context.Context, params ListProjectsParams) (ListResult[ProjectView], error)
	CountProjects(ctx context.Context, tenantID uuid.UUID) (int, error)
	CreateProject(ctx context.Context, params CreateProjectParams) (Project, error)
	UpdateProject(ctx context.Context, id uuid.UUID, mask FieldMask) (Project, error)
	// DeleteProject removes the project and all of its tasks atomically.
	DeleteProject(ctx context.Context, id uuid.UUID) error
}

type TaskQueries interface {
	GetTask(ctx context.Context, id uuid.UUID) (TaskView, error)
	ListTasks(ctx context.Context, params ListTasksParams) (ListResult[TaskView], error)
	CreateTask(ctx context.Context, params CreateTaskParams) (Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, mask FieldMask) (Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
}

type AuditQueries interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, params ListAuditParams) (ListResult[AuditEntry], error)
}

// Queries is everything a registry can ask of the store.
type Queries interface {
	TenantQueries
	UserQueries
	ProjectQueries
	TaskQueries
	AuditQueries
}

// Client runs each call as its own statement.
type Client interface {
	Queries
	Ping(ctx context.Context) error
}

// Tx is a transaction scope handed to the InTx callback. It must not be used
// after the callback returns.
type Tx interface {
	Queries
	// LockTenant takes an exclusive lock on the tenant until the transaction
	// ends. Count-then-insert quota checks run after it.
	LockTenant(ctx context.Context, id uuid.UUID) (Tenant, error)
}

// Store hands out the two scopes.
type Store interface {
	Client() Client
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
