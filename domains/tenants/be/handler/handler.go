package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/domains/tenants/be/service"
	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	"github.com/zenGate-Global/worklane/platform/go/httpx"
)

// Page sizes used when the caller gives none.
const (
	DefaultPageLimit      = 10
	DefaultAuditPageLimit = 50
)

type operation string

const (
	listOperation      operation = "tenantsList"
	getOperation       operation = "tenantsGet"
	updateOperation    operation = "tenantsUpdate"
	auditListOperation operation = "tenantsAuditList"
)

// Handler wires the tenants service to HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the tenants routes on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tenants", h.List)
	r.Get("/tenants/{tenantId}", h.Get)
	r.Put("/tenants/{tenantId}", h.Update)
	r.Get("/tenants/{tenantId}/audit-logs", h.ListAudit)
}

// Tenant is the wire shape of a tenant.
type Tenant struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Subdomain        string    `json:"subdomain"`
	Status           string    `json:"status"`
	SubscriptionPlan string    `json:"subscriptionPlan"`
	MaxUsers         int       `json:"maxUsers"`
	MaxProjects      int       `json:"maxProjects"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Stats is the wire shape of a tenant's resource counters.
type Stats struct {
	TotalUsers    int `json:"totalUsers"`
	TotalProjects int `json:"totalProjects"`
	TotalTasks    int `json:"totalTasks"`
}

// TenantDetails is a tenant with its stats.
type TenantDetails struct {
	Tenant
	Stats Stats `json:"stats"`
}

// AuditLog is the wire shape of an audit record.
type AuditLog struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   *uuid.UUID `json:"tenantId"`
	UserID     *uuid.UUID `json:"userId"`
	Action     string     `json:"action"`
	EntityType string     `json:"entityType"`
	EntityID   *uuid.UUID `json:"entityId"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}

	result, err := h.svc.List(r.Context(), actor, service.ListOptions{
		Page:             httpx.PageParams(r, DefaultPageLimit),
		Status:           httpx.QueryString(r, "status"),
		SubscriptionPlan: httpx.QueryString(r, "subscriptionPlan"),
		Search:           httpx.QueryString(r, "search"),
	})
	if err != nil {
		h.fail(w, r, listOperation, err)
		return
	}

	items := make([]Tenant, 0, len(result.Tenants))
	for _, t := range result.Tenants {
		items = append(items, toAPITenant(t))
	}
	pagination := httpx.NewPagination(result.Page.Page, result.Page.Limit, result.Total)
	httpx.OK(w, http.StatusOK, httpx.List("tenants", items, result.Total, pagination))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	tenantID, err := httpx.PathUUID(r, "tenantId")
	if err != nil {
		h.fail(w, r, getOperation, err)
		return
	}

	details, err := h.svc.Get(r.Context(), actor, tenantID)
	if err != nil {
		h.fail(w, r, getOperation, err)
		return
	}

	httpx.OK(w, http.StatusOK, TenantDetails{
		Tenant: toAPITenant(details.Tenant),
		Stats: Stats{
			TotalUsers:    details.Stats.TotalUsers,
			TotalProjects: details.Stats.TotalProjects,
			TotalTasks:    details.Stats.TotalTasks,
		},
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	tenantID, err := httpx.PathUUID(r, "tenantId")
	if err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	var input service.UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), actor, tenantID, input)
	if err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusOK, "Tenant updated successfully", toAPITenant(updated))
}

func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	tenantID, err := httpx.PathUUID(r, "tenantId")
	if err != nil {
		h.fail(w, r, auditListOperation, err)
		return
	}

	result, err := h.svc.ListAudit(r.Context(), actor, tenantID, service.AuditOptions{
		Page:   httpx.PageParams(r, DefaultAuditPageLimit),
		Action: httpx.QueryString(r, "action"),
	})
	if err != nil {
		h.fail(w, r, auditListOperation, err)
		return
	}

	items := make([]AuditLog, 0, len(result.Records))
	for _, e := range result.Records {
		items = append(items, AuditLog{
			ID:         e.ID,
			TenantID:   e.TenantID,
			UserID:     e.UserID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			CreatedAt:  e.CreatedAt,
		})
	}
	pagination := httpx.NewPagination(result.Page.Page, result.Page.Limit, result.Total)
	httpx.OK(w, http.StatusOK, httpx.List("auditLogs", items, result.Total, pagination))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op operation, err error) {
	httpx.Error(w, r, h.logger, string(op), err)
}

func toAPITenant(t service.Tenant) Tenant {
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
