package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/domains/tasks/be/service"
	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	"github.com/zenGate-Global/worklane/platform/go/httpx"
)

// DefaultPageLimit is the page size when the caller gives none.
const DefaultPageLimit = 50

type operation string

const (
	createOperation       operation = "tasksCreate"
	listOperation         operation = "tasksList"
	updateOperation       operation = "tasksUpdate"
	updateStatusOperation operation = "tasksUpdateStatus"
	deleteOperation       operation = "tasksDelete"
)

// Handler wires the tasks service to HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tasks service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Register mounts the tasks routes on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/projects/{projectId}/tasks", h.Create)
	r.Get("/projects/{projectId}/tasks", h.List)
	r.Put("/tasks/{taskId}", h.Update)
	r.Patch("/tasks/{taskId}/status", h.UpdateStatus)
	r.Delete("/tasks/{taskId}", h.Delete)
}

// Assignee identifies the user a task is assigned to.
type Assignee struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
}

// Task is the wire shape of a task. dueDate is a calendar date.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"projectId"`
	TenantID    uuid.UUID  `json:"tenantId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssignedTo  *uuid.UUID `json:"assignedTo"`
	Assignee    *Assignee  `json:"assignee"`
	DueDate     *string    `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	projectID, err := httpx.PathUUID(r, "projectId")
	if err != nil {
		h.fail(w, r, createOperation, err)
		return
	}

	var input service.CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, createOperation, err)
		return
	}

	created, err := h.svc.Create(r.Context(), actor, projectID, input)
	if err != nil {
		h.fail(w, r, createOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusCreated, "Task created successfully", toAPITask(created))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	projectID, err := httpx.PathUUID(r, "projectId")
	if err != nil {
		h.fail(w, r, listOperation, err)
		return
	}
	assignedTo, err := httpx.QueryUUID(r, "assignedTo")
	if err != nil {
		h.fail(w, r, listOperation, err)
		return
	}

	result, err := h.svc.List(r.Context(), actor, projectID, service.ListOptions{
		Page:       httpx.PageParams(r, DefaultPageLimit),
		Status:     httpx.QueryString(r, "status"),
		Priority:   httpx.QueryString(r, "priority"),
		AssignedTo: assignedTo,
		Search:     httpx.QueryString(r, "search"),
	})
	if err != nil {
		h.fail(w, r, listOperation, err)
		return
	}

	items := make([]Task, 0, len(result.Tasks))
	for _, t := range result.Tasks {
		items = append(items, toAPITask(t))
	}
	pagination := httpx.NewPagination(result.Page.Page, result.Page.Limit, result.Total)
	httpx.OK(w, http.StatusOK, httpx.List("tasks", items, result.Total, pagination))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	taskID, err := httpx.PathUUID(r, "taskId")
	if err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	var input service.UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), actor, taskID, input)
	if err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusOK, "Task updated successfully", toAPITask(updated))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	taskID, err := httpx.PathUUID(r, "taskId")
	if err != nil {
		h.fail(w, r, updateStatusOperation, err)
		return
	}

	var input service.StatusInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, updateStatusOperation, err)
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), actor, taskID, input)
	if err != nil {
		h.fail(w, r, updateStatusOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusOK, "Task status updated successfully", toAPITask(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	taskID, err := httpx.PathUUID(r, "taskId")
	if err != nil {
		h.fail(w, r, deleteOperation, err)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, taskID); err != nil {
		h.fail(w, r, deleteOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusOK, "Task deleted successfully", nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op operation, err error) {
	httpx.Error(w, r, h.logger, string(op), err)
}

func toAPITask(t service.Task) Task {
	out := Task{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		TenantID:    t.TenantID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		AssignedTo:  t.AssignedTo,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssignedTo != nil && t.AssigneeName != nil {
		a := Assignee{ID: *t.AssignedTo, FullName: *t.AssigneeName}
		if t.AssigneeEmail != nil {
			a.Email = *t.AssigneeEmail
		}
		out.Assignee = &a
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(service.DateLayout)
		out.DueDate = &due
	}
	return out
}
