package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"

	"github.com/zenGate-Global/worklane/domains/projects/be/repo"
	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/audit"
	"github.com/zenGate-Global/worklane/platform/go/authz"
	"github.com/zenGate-Global/worklane/platform/go/patch"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

const (
	msgProjectNotFound = "Project not found"
	msgProjectLimit    = "Subscription project limit reached"
	msgInvalidProject  = "Invalid project data"
	msgUnauthorized    = "Unauthorized"
)

// DefaultStatus applies when a project is created without one.
const DefaultStatus = "active"

// Project represents the domain view of a project with its counters.
type Project struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	Name               string
	Description        string
	Status             string
	CreatedBy          uuid.UUID
	CreatorName        *string
	TaskCount          int
	CompletedTaskCount int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Page   persistence.Page
	Status string
	Search string
}

// ListResult wraps a page of projects with the unpaged total.
type ListResult struct {
	Projects []Project
	Total    int
	Page     persistence.Page
}

// CreateInput is the payload of a new project.
type CreateInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description,omitempty" validate:"max=5000"`
	Status      string `json:"status,omitempty" validate:"max=50"`
}

// UpdateInput is a partial update; absent fields are left untouched.
type UpdateInput struct {
	Name        nullable.Nullable[string] `json:"name"`
	Description nullable.Nullable[string] `json:"description"`
	Status      nullable.Nullable[string] `json:"status"`
}

// Recorder writes best-effort audit records.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service defines the business operations for the projects domain.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, input CreateInput) (Project, error)
	List(ctx context.Context, actor authz.Actor, opts ListOptions) (ListResult, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (Project, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (Project, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type service struct {
	repo  repo.Repository
	audit Recorder
}

// New constructs a projects Service.
func New(r repo.Repository, recorder Recorder) Service {
	if r == nil {
		panic("projects repository is required")
	}
	if recorder == nil {
		panic("audit recorder is required")
	}
	return &service{repo: r, audit: recorder}
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (Project, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Status = strings.TrimSpace(input.Status)
	if err := apperr.Validate(input, msgInvalidProject); err != nil {
		return Project{}, err
	}
	if input.Status == "" {
		input.Status = DefaultStatus
	}

	// Global actors own no tenant, so there is nothing to lock.
	if actor.TenantID == nil {
		return Project{}, apperr.WithMessage(authz.Enforce(ctx, actor, authz.CreateProject, authz.Target{}), msgUnauthorized)
	}

	params := persistence.CreateProjectParams{
		ID:          uuid.New(),
		TenantID:    *actor.TenantID,
		Name:        input.Name,
		Description: input.Description,
		Status:      input.Status,
		CreatedBy:   actor.UserID,
	}
	created, err := s.repo.Create(ctx, params, func(tenant persistence.Tenant, used int) error {
		return authz.Enforce(ctx, actor, authz.CreateProject, authz.Target{
			TenantID: tenant.ID,
			Quota:    authz.Quota{Limit: tenant.MaxProjects, Used: used},
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrCreatorNotMember):
			return Project{}, apperr.WithMessage(fmt.Errorf("%w: %w", err, apperr.ErrForbidden), msgUnauthorized)
		case errors.Is(err, apperr.ErrQuotaExceeded):
			return Project{}, apperr.WithMessage(err, msgProjectLimit)
		case errors.Is(err, apperr.ErrForbidden):
			return Project{}, apperr.WithMessage(err, msgUnauthorized)
		}
		return Project{}, apperr.FromStore(err, "Tenant not found", "")
	}

	s.audit.Record(ctx, audit.FromContext(ctx, &created.TenantID, audit.CreateProject, audit.EntityProject, created.ID))
	return Project{
		ID:          created.ID,
		TenantID:    created.TenantID,
		Name:        created.Name,
		Description: created.Description,
		Status:      created.Status,
		CreatedBy:   created.CreatedBy,
		CreatedAt:   created.CreatedAt,
		UpdatedAt:   created.UpdatedAt,
	}, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, opts ListOptions) (ListResult, error) {
	if actor.TenantID == nil {
		return ListResult{}, apperr.WithMessage(authz.Enforce(ctx, actor, authz.ReadProject, authz.Target{}), msgUnauthorized)
	}

	result, err := s.repo.List(ctx, persistence.ListProjectsParams{
		Page:     opts.Page,
		TenantID: *actor.TenantID,
		Status:   strings.TrimSpace(opts.Status),
		Search:   strings.TrimSpace(opts.Search),
	})
	if err != nil {
		return ListResult{}, err
	}

	projects := make([]Project, 0, len(result.Items))
	for _, view := range result.Items {
		projects = append(projects, mapView(view))
	}
	return ListResult{Projects: projects, Total: result.Total, Page: opts.Page}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (Project, error) {
	view, err := s.load(ctx, actor, authz.ReadProject, id, nil)
	if err != nil {
		return Project{}, err
	}
	return mapView(view), nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (Project, error) {
	fields := apperr.FieldErrors{}
	var mask persistence.FieldMask
	if name, ok := patch.Value(input.Name, "name", fields); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			fields.Add("name", "name is required")
		}
		mask.Set("name", name)
	}
	if description, ok := patch.Value(input.Description, "description", fields); ok {
		mask.Set("description", description)
	}
	if status, ok := patch.Value(input.Status, "status", fields); ok {
		status = strings.TrimSpace(status)
		if status == "" {
			fields.Add("status", "status is required")
		}
		mask.Set("status", status)
	}

	if _, err := s.load(ctx, actor, authz.ModifyProject, id, mask.Fields()); err != nil {
		return Project{}, err
	}
	if len(fields) > 0 {
		return Project{}, apperr.WithMessage(&apperr.ValidationError{Fields: fields}, msgInvalidProject)
	}
	if mask.Len() == 0 {
		return Project{}, apperr.WithMessage(apperr.Validation(map[string]string{"body": "at least one field is required"}), "No fields to update")
	}

	if _, err := s.repo.Update(ctx, id, mask); err != nil {
		return Project{}, apperr.FromStore(err, msgProjectNotFound, "")
	}
	view, err := s.repo.Get(ctx, id)
	if err != nil {
		return Project{}, apperr.FromStore(err, msgProjectNotFound, "")
	}

	s.audit.Record(ctx, audit.FromContext(ctx, &view.TenantID, audit.UpdateProject, audit.EntityProject, view.ID))
	return mapView(view), nil
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	view, err := s.load(ctx, actor, authz.DeleteProject, id, nil)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.FromStore(err, msgProjectNotFound, "")
	}

	s.audit.Record(ctx, audit.FromContext(ctx, &view.TenantID, audit.DeleteProject, audit.EntityProject, view.ID))
	return nil
}

// load fetches the project and authorizes action on it. Projects of other
// tenants are reported as missing.
func (s *service) load(ctx context.Context, actor authz.Actor, action authz.Action, id uuid.UUID, fields []string) (persistence.ProjectView, error) {
	view, err := s.repo.Get(ctx, id)
	if err != nil {
		return persistence.ProjectView{}, apperr.FromStore(err, msgProjectNotFound, "")
	}

	if err := authz.Enforce(ctx, actor, action, authz.Target{
		TenantID: view.TenantID,
		OwnerID:  view.CreatedBy,
		Fields:   fields,
	}); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return persistence.ProjectView{}, apperr.WithMessage(err, msgProjectNotFound)
		}
		return persistence.ProjectView{}, apperr.WithMessage(err, msgUnauthorized)
	}
	return view, nil
}

func mapView(view persistence.ProjectView) Project {
	return Project{
		ID:                 view.ID,
		TenantID:           view.TenantID,
		Name:               view.Name,
		Description:        view.Description,
		Status:             view.Status,
		CreatedBy:          view.CreatedBy,
		CreatorName:        view.CreatorName,
		TaskCount:          view.TaskCount,
		CompletedTaskCount: view.CompletedTaskCount,
		CreatedAt:          view.CreatedAt,
		UpdatedAt:          view.UpdatedAt,
	}
}
