package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"

	"github.com/zenGate-Global/worklane/domains/tasks/be/repo"
	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/audit"
	"github.com/zenGate-Global/worklane/platform/go/authz"
	"github.com/zenGate-Global/worklane/platform/go/patch"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// Defaults for new tasks.
const (
	DefaultStatus   = "todo"
	DefaultPriority = "medium"
)

const (
	msgTaskNotFound     = "Task not found"
	msgProjectNotFound  = "Project not found"
	msgInvalidTask      = "Invalid task data"
	msgAssigneeNotFound = "Assignee not found in this tenant"
)

var (
	statuses   = map[string]struct{}{"todo": {}, "in_progress": {}, persistence.TaskCompleted: {}}
	priorities = map[string]struct{}{"low": {}, "medium": {}, "high": {}}
)

// Task represents the domain view of a task joined with its assignee.
type Task struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	TenantID      uuid.UUID
	Title         string
	Description   string
	Status        string
	Priority      string
	AssignedTo    *uuid.UUID
	AssigneeName  *string
	AssigneeEmail *string
	DueDate       *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Page       persistence.Page
	Status     string
	Priority   string
	AssignedTo *uuid.UUID
	Search     string
}

// ListResult wraps a page of tasks with the unpaged total.
type ListResult struct {
	Tasks []Task
	Total int
	Page  persistence.Page
}

// CreateInput is the payload of a new task.
type CreateInput struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description,omitempty" validate:"max=5000"`
	Status      string     `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress completed"`
	Priority    string     `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	AssignedTo  *uuid.UUID `json:"assignedTo,omitempty"`
	DueDate     *string    `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateInput is a partial update. assignedTo and dueDate accept null to clear them.
type UpdateInput struct {
	Title       nullable.Nullable[string]    `json:"title"`
	Description nullable.Nullable[string]    `json:"description"`
	Status      nullable.Nullable[string]    `json:"status"`
	Priority    nullable.Nullable[string]    `json:"priority"`
	AssignedTo  nullable.Nullable[uuid.UUID] `json:"assignedTo"`
	DueDate     nullable.Nullable[string]    `json:"dueDate"`
}

// StatusInput is the body of a status change.
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=todo in_progress completed"`
}

// Recorder writes best-effort audit records.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service defines the business operations for the tasks domain.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, projectID uuid.UUID, input CreateInput) (Task, error)
	List(ctx context.Context, actor authz.Actor, projectID uuid.UUID, opts ListOptions) (ListResult, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (Task, error)
	UpdateStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, input StatusInput) (Task, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type service struct {
	repo  repo.Repository
	audit Recorder
}

// New constructs a tasks Service.
func New(r repo.Repository, recorder Recorder) Service {
	if r == nil {
		panic("tasks repository is required")
	}
	if recorder == nil {
		panic("audit recorder is required")
	}
	return &service{repo: r, audit: recorder}
}

func (s *service) Create(ctx context.Context, actor authz.Actor, projectID uuid.UUID, input CreateInput) (Task, error) {
	project, err := s.project(ctx, actor, projectID)
	if err != nil {
		return Task{}, err
	}

	input.Title = strings.TrimSpace(input.Title)
	if err := apperr.Validate(input, msgInvalidTask); err != nil {
		return Task{}, err
	}

	params := persistence.CreateTaskParams{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		TenantID:    project.TenantID,
		Title:       input.Title,
		Description: input.Description,
		Status:      orDefault(input.Status, DefaultStatus),
		Priority:    orDefault(input.Priority, DefaultPriority),
		AssignedTo:  input.AssignedTo,
	}
	if input.DueDate != nil {
		due, err := time.Parse(DateLayout, *input.DueDate)
		if err != nil {
			return Task{}, apperr.WithMessage(apperr.Validation(map[string]string{"dueDate": "dueDate must be YYYY-MM-DD"}), msgInvalidTask)
		}
		params.DueDate = &due
	}
	if input.AssignedTo != nil {
		if err := s.checkAssignee(ctx, project.TenantID, *input.AssignedTo); err != nil {
			return Task{}, err
		}
	}

	created, err := s.repo.Create(ctx, params)
	if errors.Is(err, persistence.ErrInvalidReference) {
		return Task{}, assigneeError()
	}
	if err != nil {
		return Task{}, apperr.FromStore(err, msgProjectNotFound, "")
	}

	s.audit.Record(ctx, audit.FromContext(ctx, &created.TenantID, audit.CreateTask, audit.EntityTask, created.ID))
	return s.reload(ctx, created.ID)
}

func (s *service) List(ctx context.Context, actor authz.Actor, projectID uuid.UUID, opts ListOptions) (ListResult, error) {
	project, err := s.project(ctx, actor, projectID)
	if err != nil {
		return ListResult{}, err
	}

	fields := apperr.FieldErrors{}
	if opts.Status != "" && !valid(statuses, opts.Status) {
		fields.Add("status", "status must be one of: todo in_progress completed")
	}
	if opts.Priority != "" && !valid(priorities, opts.Priority) {
		fields.Add("priority", "priority must be one of: low medium high")
	}
	if len(fields) > 0 {
		return ListResult{}, &apperr.ValidationError{Fields: fields}
	}

	result, err := s.repo.List(ctx, persistence.ListTasksParams{
		Page:       opts.Page,
		ProjectID:  project.ID,
		Status:     opts.Status,
		Priority:   opts.Priority,
		AssignedTo: opts.AssignedTo,
		Search:     strings.TrimSpace(opts.Search),
	})
	if err != nil {
		return ListResult{}, err
	}

	tasks := make([]Task, 0, len(result.Items))
	for _, view := range result.Items {
		tasks = append(tasks, mapView(view))
	}
	return ListResult{Tasks: tasks, Total: result.Total, Page: opts.Page}, nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (Task, error) {
	current, err := s.load(ctx, actor, authz.ModifyTask, id)
	if err != nil {
		return Task{}, err
	}

	fields := apperr.FieldErrors{}
	var mask persistence.FieldMask
	if title, ok := patch.Value(input.Title, "title", fields); ok {
		title = strings.TrimSpace(title)
		if title == "" {
			fields.Add("title", "title is required")
		}
		mask.Set("title", title)
	}
	if description, ok := patch.Value(input.Description, "description", fields); ok {
		mask.Set("description", description)
	}
	if status, ok := patch.Value(input.Status, "status", fields); ok {
		if !valid(statuses, status) {
			fields.Add("status", "status must be one of: todo in_progress completed")
		}
		mask.Set("status", status)
	}
	if priority, ok := patch.Value(input.Priority, "priority", fields); ok {
		if !valid(priorities, priority) {
			fields.Add("priority", "priority must be one of: low medium high")
		}
		mask.Set("priority", priority)
	}
	assignee, assigneeSet := patch.Optional(input.AssignedTo)
	if assigneeSet {
		mask.Set("assignedTo", assignee)
	}
	if raw, ok := patch.Optional(input.DueDate); ok {
		var due *time.Time
		if raw != nil {
			parsed, err := time.Parse(DateLayout, *raw)
			if err != nil {
				fields.Add("dueDate", "dueDate must be YYYY-MM-DD")
			}
			due = &parsed
		}
		mask.Set("dueDate", due)
	}

	if len(fields) > 0 {
		return Task{}, apperr.WithMessage(&apperr.ValidationError{Fields: fields}, msgInvalidTask)
	}
	if mask.Len() == 0 {
		return Task{}, apperr.WithMessage(apperr.Validation(map[string]string{"body": "at least one field is required"}), "No fields to update")
	}
	if assigneeSet && assignee != nil {
		if err := s.checkAssignee(ctx, current.TenantID, *assignee); err != nil {
			return Task{}, err
		}
	}

	return s.write(ctx, id, mask)
}

func (s *service) UpdateStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, input StatusInput) (Task, error) {
	if _, err := s.load(ctx, actor, authz.ModifyTask, id); err != nil {
		return Task{}, err
	}
	if err := apperr.Validate(input, "Status is required"); err != nil {
		return Task{}, err
	}

	var mask persistence.FieldMask
	mask.Set("status", input.Status)
	return s.write(ctx, id, mask)
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	current, err := s.load(ctx, actor, authz.DeleteTask, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.FromStore(err, msgTaskNotFound, "")
	}

	s.audit.Record(ctx, audit.FromContext(ctx, &current.TenantID, audit.DeleteTask, audit.EntityTask, id))
	return nil
}

func (s *service) write(ctx context.Context, id uuid.UUID, mask persistence.FieldMask) (Task, error) {
	updated, err := s.repo.Update(ctx, id, mask)
	if errors.Is(err, persistence.ErrInvalidReference) {
		return Task{}, assigneeError()
	}
	if err != nil {
		return Task{}, apperr.FromStore(err, msgTaskNotFound, "")
	}

	s.audit.Record(ctx, audit.FromContext(ctx, &updated.TenantID, audit.UpdateTask, audit.EntityTask, updated.ID))
	return s.reload(ctx, updated.ID)
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (Task, error) {
	view, err := s.repo.Get(ctx, id)
	if err != nil {
		return Task{}, apperr.FromStore(err, msgTaskNotFound, "")
	}
	return mapView(view), nil
}

// project loads the parent project and checks the actor may work on its tasks.
func (s *service) project(ctx context.Context, actor authz.Actor, id uuid.UUID) (persistence.ProjectView, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return persistence.ProjectView{}, apperr.FromStore(err, msgProjectNotFound, "")
	}
	if err := authz.Enforce(ctx, actor, authz.AccessTasks, authz.Target{TenantID: project.TenantID}); err != nil {
		return persistence.ProjectView{}, apperr.WithMessage(err, deniedMessage(err, msgProjectNotFound))
	}
	return project, nil
}

func (s *service) load(ctx context.Context, actor authz.Actor, action authz.Action, id uuid.UUID) (persistence.TaskView, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return persistence.TaskView{}, apperr.FromStore(err, msgTaskNotFound, "")
	}
	if err := authz.Enforce(ctx, actor, action, authz.Target{TenantID: task.TenantID}); err != nil {
		return persistence.TaskView{}, apperr.WithMessage(err, deniedMessage(err, msgTaskNotFound))
	}
	return task, nil
}

// checkAssignee requires the user to exist in the task's tenant. Users of
// other tenants are indistinguishable from missing ones.
func (s *service) checkAssignee(ctx context.Context, tenantID, userID uuid.UUID) error {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("load assignee: %w", err)
	}
	if err != nil || user.TenantID == nil || *user.TenantID != tenantID {
		return assigneeError()
	}
	return nil
}

// assigneeError is returned both by the early lookup and when the store
// rejects the assignee at write time.
func assigneeError() error {
	return apperr.WithMessage(apperr.Validation(map[string]string{"assignedTo": msgAssigneeNotFound}), msgAssigneeNotFound)
}

func deniedMessage(err error, notFound string) string {
	if errors.Is(err, apperr.ErrNotFound) {
		return notFound
	}
	return "Unauthorized"
}

func valid(set map[string]struct{}, value string) bool {
	_, ok := set[value]
	return ok
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func mapView(view persistence.TaskView) Task {
	return Task{
		ID:            view.ID,
		ProjectID:     view.ProjectID,
		TenantID:      view.TenantID,
		Title:         view.Title,
		Description:   view.Description,
		Status:        view.Status,
		Priority:      view.Priority,
		AssignedTo:    view.AssignedTo,
		AssigneeName:  view.AssigneeName,
		AssigneeEmail: view.AssigneeEmail,
		DueDate:       view.DueDate,
		CreatedAt:     view.CreatedAt,
		UpdatedAt:     view.UpdatedAt,
	}
}
