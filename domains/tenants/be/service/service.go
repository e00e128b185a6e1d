package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"
	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/domains/tenants/be/repo"
	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/audit"
	"github.com/zenGate-Global/worklane/platform/go/authz"
	"github.com/zenGate-Global/worklane/platform/go/logging"
	"github.com/zenGate-Global/worklane/platform/go/patch"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

const (
	msgTenantNotFound = "Tenant not found"
	msgInvalidTenant  = "Invalid tenant data"
	msgUnauthorized   = "Unauthorized"
)

// Tenant represents the domain model for a tenant registry entry.
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

// Stats counts the resources a tenant holds.
type Stats struct {
	TotalUsers    int
	TotalProjects int
	TotalTasks    int
}

// Details is a tenant together with its resource counters.
type Details struct {
	Tenant
	Stats Stats
}

// ListOptions captures filters and pagination.
type ListOptions struct {
	Page             persistence.Page
	Status           string
	SubscriptionPlan string
	Search           string
}

// ListResult wraps a page of tenants with the unpaged total.
type ListResult struct {
	Tenants []Tenant
	Total   int
	Page    persistence.Page
}

// UpdateInput is a partial update; absent fields are left untouched.
type UpdateInput struct {
	Name             nullable.Nullable[string] `json:"name"`
	Status           nullable.Nullable[string] `json:"status"`
	SubscriptionPlan nullable.Nullable[string] `json:"subscriptionPlan"`
	MaxUsers         nullable.Nullable[int]    `json:"maxUsers"`
	MaxProjects      nullable.Nullable[int]    `json:"maxProjects"`
}

// AuditOptions filters the audit trail of one tenant.
type AuditOptions struct {
	Page   persistence.Page
	Action string
}

// AuditRecord is one entry of a tenant's audit trail.
type AuditRecord struct {
	ID         uuid.UUID
	TenantID   *uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	CreatedAt  time.Time
}

// AuditResult wraps a page of audit records with the unpaged total.
type AuditResult struct {
	Records []AuditRecord
	Total   int
	Page    persistence.Page
}

// Recorder writes best-effort audit records.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Cache drops cached tenant lookups after a write.
type Cache interface {
	Invalidate(ctx context.Context, subdomain string) error
}

// Service defines the business operations for the tenants domain.
type Service interface {
	List(ctx context.Context, actor authz.Actor, opts ListOptions) (ListResult, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (Details, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (Tenant, error)
	ListAudit(ctx context.Context, actor authz.Actor, id uuid.UUID, opts AuditOptions) (AuditResult, error)
	// SetStatus is the operator path used by the CLI. It bypasses the
	// authorization engine and is audited without an actor.
	SetStatus(ctx context.Context, subdomain, status string) (Tenant, error)
}

type service struct {
	repo  repo.Repository
	audit Recorder
	cache Cache
}

// New constructs a tenants Service.
func New(r repo.Repository, recorder Recorder, cache Cache) Service {
	if r == nil {
		panic("tenants repository is required")
	}
	if recorder == nil {
		panic("audit recorder is required")
	}
	if cache == nil {
		panic("tenant cache is required")
	}
	return &service{repo: r, audit: recorder, cache: cache}
}

func (s *service) List(ctx context.Context, actor authz.Actor, opts ListOptions) (ListResult, error) {
	if err := authz.Enforce(ctx, actor, authz.ListTenants, authz.Target{}); err != nil {
		return ListResult{}, apperr.WithMessage(err, msgUnauthorized)
	}

	status := strings.TrimSpace(opts.Status)
	if status != "" && !validStatus(status) {
		return ListResult{}, apperr.Validation(map[string]string{"status": "status must be one of: active suspended"})
	}

	result, err := s.repo.List(ctx, persistence.ListTenantsParams{
		Page:             opts.Page,
		Status:           status,
		SubscriptionPlan: strings.TrimSpace(opts.SubscriptionPlan),
		Search:           strings.TrimSpace(opts.Search),
	})
	if err != nil {
		return ListResult{}, err
	}

	tenants := make([]Tenant, 0, len(result.Items))
	for _, t := range result.Items {
		tenants = append(tenants, mapTenant(t))
	}
	return ListResult{Tenants: tenants, Total: result.Total, Page: opts.Page}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (Details, error) {
	tenant, err := s.load(ctx, actor, authz.ReadTenant, id, nil)
	if err != nil {
		return Details{}, err
	}

	stats, err := s.repo.Stats(ctx, tenant.ID)
	if err != nil {
		return Details{}, apperr.FromStore(err, msgTenantNotFound, "")
	}
	return Details{
		Tenant: mapTenant(tenant),
		Stats: Stats{
			TotalUsers:    stats.TotalUsers,
			TotalProjects: stats.TotalProjects,
			TotalTasks:    stats.TotalTasks,
		},
	}, nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (Tenant, error) {
	fields := apperr.FieldErrors{}
	var mask persistence.FieldMask
	if name, ok := patch.Value(input.Name, "name", fields); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			fields.Add("name", "name is required")
		}
		mask.Set("name", name)
	}
	if status, ok := patch.Value(input.Status, "status", fields); ok {
		if !validStatus(status) {
			fields.Add("status", "status must be one of: active suspended")
		}
		mask.Set("status", status)
	}
	if plan, ok := patch.Value(input.SubscriptionPlan, "subscriptionPlan", fields); ok {
		plan = strings.TrimSpace(plan)
		if plan == "" {
			fields.Add("subscriptionPlan", "subscriptionPlan is required")
		}
		mask.Set("subscriptionPlan", plan)
	}
	if maxUsers, ok := patch.Value(input.MaxUsers, "maxUsers", fields); ok {
		if maxUsers < 1 {
			fields.Add("maxUsers", "maxUsers must be >= 1")
		}
		mask.Set("maxUsers", maxUsers)
	}
	if maxProjects, ok := patch.Value(input.MaxProjects, "maxProjects", fields); ok {
		if maxProjects < 1 {
			fields.Add("maxProjects", "maxProjects must be >= 1")
		}
		mask.Set("maxProjects", maxProjects)
	}

	if _, err := s.load(ctx, actor, authz.ModifyTenant, id, mask.Fields()); err != nil {
		return Tenant{}, err
	}
	if len(fields) > 0 {
		return Tenant{}, apperr.WithMessage(&apperr.ValidationError{Fields: fields}, msgInvalidTenant)
	}
	if mask.Len() == 0 {
		return Tenant{}, apperr.WithMessage(apperr.Validation(map[string]string{"body": "at least one field is required"}), "No fields to update")
	}

	return s.write(ctx, id, mask)
}

func (s *service) ListAudit(ctx context.Context, actor authz.Actor, id uuid.UUID, opts AuditOptions) (AuditResult, error) {
	tenant, err := s.load(ctx, actor, authz.ReadTenantAudit, id, nil)
	if err != nil {
		return AuditResult{}, err
	}

	result, err := s.repo.ListAudit(ctx, persistence.ListAuditParams{
		Page:     opts.Page,
		TenantID: tenant.ID,
		Action:   strings.TrimSpace(opts.Action),
	})
	if err != nil {
		return AuditResult{}, err
	}

	records := make([]AuditRecord, 0, len(result.Items))
	for _, e := range result.Items {
		records = append(records, AuditRecord{
			ID:         e.ID,
			TenantID:   e.TenantID,
			UserID:     e.UserID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			CreatedAt:  e.CreatedAt,
		})
	}
	return AuditResult{Records: records, Total: result.Total, Page: opts.Page}, nil
}

func (s *service) SetStatus(ctx context.Context, subdomain, status string) (Tenant, error) {
	if !validStatus(status) {
		return Tenant{}, apperr.Validation(map[string]string{"status": "status must be one of: active suspended"})
	}
	tenant, err := s.repo.GetBySubdomain(ctx, strings.ToLower(strings.TrimSpace(subdomain)))
	if err != nil {
		return Tenant{}, apperr.FromStore(err, msgTenantNotFound, "")
	}

	var mask persistence.FieldMask
	mask.Set("status", status)
	return s.write(ctx, tenant.ID, mask)
}

// write applies mask, audits the change and drops the cached lookup so the
// next login sees the new status and quotas.
func (s *service) write(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (Tenant, error) {
	updated, err := s.repo.Update(ctx, id, mask)
	if err != nil {
		return Tenant{}, apperr.FromStore(err, msgTenantNotFound, "")
	}

	if err := s.cache.Invalidate(ctx, updated.Subdomain); err != nil {
		logging.Ctx(ctx, nil).Warn("tenant cache invalidation failed",
			zap.String("subdomain", updated.Subdomain),
			zap.Error(err),
		)
	}
	s.audit.Record(ctx, audit.FromContext(ctx, &updated.ID, audit.UpdateTenant, audit.EntityTenant, updated.ID))
	return mapTenant(updated), nil
}

// load fetches the tenant and authorizes action on it. Tenants the actor
// does not belong to are reported as missing.
func (s *service) load(ctx context.Context, actor authz.Actor, action authz.Action, id uuid.UUID, fields []string) (persistence.Tenant, error) {
	tenant, err := s.repo.Get(ctx, id)
	if err != nil {
		return persistence.Tenant{}, apperr.FromStore(err, msgTenantNotFound, "")
	}

	if err := authz.Enforce(ctx, actor, action, authz.Target{TenantID: tenant.ID, Fields: fields}); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return persistence.Tenant{}, apperr.WithMessage(err, msgTenantNotFound)
		}
		return persistence.Tenant{}, apperr.WithMessage(err, msgUnauthorized)
	}
	return tenant, nil
}

func validStatus(status string) bool {
	return status == persistence.TenantActive || status == persistence.TenantSuspended
}

func mapTenant(t persistence.Tenant) Tenant {
	return Tenant{
		ID:               t.ID,
		Name:             t.Name,
		Subdomain:        t.Subdomain,
		Status:           t.Status,
		SubscriptionPlan: t.SubscriptionPlan,
		MaxUsers:         t.MaxUsers,
		MaxProjects:      t.MaxProjects,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}
