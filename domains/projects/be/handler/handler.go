package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/domains/projects/be/service"
	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	"github.com/zenGate-Global/worklane/platform/go/httpx"
)

// DefaultPageLimit is the page size when the caller gives none.
const DefaultPageLimit = 20

type operation string

const (
	createOperation operation = "projectsCreate"
	listOperation   operation = "projectsList"
	getOperation    operation = "projectsGet"
	updateOperation operation = "projectsUpdate"
	deleteOperation operation = "projectsDelete"
)

// Handler wires the projects service to HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("projects service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Register mounts the projects routes on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/projects", h.Create)
	r.Get("/projects", h.List)
	r.Get("/projects/{projectId}", h.Get)
	r.Put("/projects/{projectId}", h.Update)
	r.Delete("/projects/{projectId}", h.Delete)
}

// Creator identifies who created a project.
type Creator struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
}

// Project is the wire shape of a project.
type Project struct {
	ID                 uuid.UUID `json:"id"`
	TenantID           uuid.UUID `json:"tenantId"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Status             string    `json:"status"`
	CreatedBy          uuid.UUID `json:"createdBy"`
	Creator            *Creator  `json:"creator"`
	TaskCount          int       `json:"taskCount"`
	CompletedTaskCount int       `json:"completedTaskCount"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}

	var input service.CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, createOperation, err)
		return
	}

	created, err := h.svc.Create(r.Context(), actor, input)
	if err != nil {
		h.fail(w, r, createOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusCreated, "Project created successfully", toAPIProject(created))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}

	result, err := h.svc.List(r.Context(), actor, service.ListOptions{
		Page:   httpx.PageParams(r, DefaultPageLimit),
		Status: httpx.QueryString(r, "status"),
		Search: httpx.QueryString(r, "search"),
	})
	if err != nil {
		h.fail(w, r, listOperation, err)
		return
	}

	items := make([]Project, 0, len(result.Projects))
	for _, p := range result.Projects {
		items = append(items, toAPIProject(p))
	}
	pagination := httpx.NewPagination(result.Page.Page, result.Page.Limit, result.Total)
	httpx.OK(w, http.StatusOK, httpx.List("projects", items, result.Total, pagination))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	projectID, err := httpx.PathUUID(r, "projectId")
	if err != nil {
		h.fail(w, r, getOperation, err)
		return
	}

	project, err := h.svc.Get(r.Context(), actor, projectID)
	if err != nil {
		h.fail(w, r, getOperation, err)
		return
	}

	httpx.OK(w, http.StatusOK, toAPIProject(project))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	projectID, err := httpx.PathUUID(r, "projectId")
	if err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	var input service.UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), actor, projectID, input)
	if err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusOK, "Project updated successfully", toAPIProject(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	projectID, err := httpx.PathUUID(r, "projectId")
	if err != nil {
		h.fail(w, r, deleteOperation, err)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, projectID); err != nil {
		h.fail(w, r, deleteOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusOK, "Project deleted successfully", nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op operation, err error) {
	httpx.Error(w, r, h.logger, string(op), err)
}

func toAPIProject(p service.Project) Project {
	out := Project{
		ID:                 p.ID,
		TenantID:           p.TenantID,
		Name:               p.Name,
		Description:        p.Description,
		Status:             p.Status,
		CreatedBy:          p.CreatedBy,
		TaskCount:          p.TaskCount,
		CompletedTaskCount: p.CompletedTaskCount,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.CreatorName != nil {
		out.Creator = &Creator{ID: p.CreatedBy, FullName: *p.CreatorName}
	}
	return out
}
