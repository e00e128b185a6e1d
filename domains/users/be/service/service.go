package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"

	"github.com/zenGate-Global/worklane/domains/users/be/repo"
	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/audit"
	"github.com/zenGate-Global/worklane/platform/go/authz"
	"github.com/zenGate-Global/worklane/platform/go/patch"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

const (
	msgUserNotFound   = "User not found"
	msgTenantNotFound = "Tenant not found"
	msgEmailTaken     = "Email already exists in this tenant"
	msgUserLimit      = "Subscription user limit reached"
	msgSelfDelete     = "Cannot delete yourself"
	msgInvalidUser    = "Invalid user data"
	msgNothingToWrite = "No fields to update"
)

// User represents the domain view of a user record.
type User struct {
	ID        uuid.UUID
	TenantID  *uuid.UUID
	Email     string
	FullName  string
	Role      authz.Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Page   persistence.Page
	Role   string
	Search string
}

// ListResult wraps a page of users with the unpaged total.
type ListResult struct {
	Users []User
	Total int
	Page  persistence.Page
}

// CreateInput represents the payload required to add a member to a tenant.
type CreateInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"fullName" validate:"required,max=255"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=user tenant_admin"`
}

// UpdateInput is a partial update; absent fields are left untouched.
type UpdateInput struct {
	FullName nullable.Nullable[string] `json:"fullName"`
	Role     nullable.Nullable[string] `json:"role"`
	IsActive nullable.Nullable[bool]   `json:"isActive"`
}

// Hasher produces stored credential verifiers.
type Hasher interface {
	Hash(secret string) (string, error)
}

// Recorder writes best-effort audit records.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service defines the business operations for the users domain.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, tenantID uuid.UUID, input CreateInput) (User, error)
	List(ctx context.Context, actor authz.Actor, tenantID uuid.UUID, opts ListOptions) (ListResult, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (User, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type service struct {
	repo   repo.Repository
	hasher Hasher
	audit  Recorder
}

// New constructs a users Service instance backed by the provided repository.
func New(r repo.Repository, hasher Hasher, recorder Recorder) Service {
	if r == nil {
		panic("users repository is required")
	}
	if hasher == nil {
		panic("hasher is required")
	}
	if recorder == nil {
		panic("audit recorder is required")
	}
	return &service{repo: r, hasher: hasher, audit: recorder}
}

func (s *service) Create(ctx context.Context, actor authz.Actor, tenantID uuid.UUID, input CreateInput) (User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FullName = strings.TrimSpace(input.FullName)
	if err := apperr.Validate(input, msgInvalidUser); err != nil {
		return User{}, err
	}
	role := authz.RoleUser
	if input.Role != "" {
		role = authz.Role(input.Role)
	}

	// Membership and role only; the slot count is checked under the tenant lock.
	precheck := authz.Target{TenantID: tenantID, Quota: authz.Quota{Limit: 1}}
	if err := authz.Enforce(ctx, actor, authz.CreateUser, precheck); err != nil {
		return User{}, createError(err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	params := persistence.CreateUserParams{
		ID:           uuid.New(),
		TenantID:     &tenantID,
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     input.FullName,
		Role:         string(role),
		IsActive:     true,
	}

	created, err := s.repo.Create(ctx, params, func(tenant persistence.Tenant, used int) error {
		return authz.Enforce(ctx, actor, authz.CreateUser, authz.Target{
			TenantID: tenant.ID,
			Quota:    authz.Quota{Limit: tenant.MaxUsers, Used: used},
		})
	})
	if err != nil {
		return User{}, createError(err)
	}

	s.audit.Record(ctx, audit.FromContext(ctx, created.TenantID, audit.CreateUser, audit.EntityUser, created.ID))
	return mapUser(created), nil
}

func createError(err error) error {
	switch {
	case errors.Is(err, apperr.ErrQuotaExceeded):
		return apperr.WithMessage(err, msgUserLimit)
	case errors.Is(err, apperr.ErrForbidden):
		return apperr.WithMessage(err, "Unauthorized")
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.WithMessage(err, msgTenantNotFound)
	}
	return apperr.FromStore(err, msgTenantNotFound, msgEmailTaken)
}

func (s *service) List(ctx context.Context, actor authz.Actor, tenantID uuid.UUID, opts ListOptions) (ListResult, error) {
	if err := authz.Enforce(ctx, actor, authz.ListUsers, authz.Target{TenantID: tenantID}); err != nil {
		return ListResult{}, apperr.WithMessage(err, msgTenantNotFound)
	}
	if opts.Role != "" {
		if _, ok := authz.ParseRole(opts.Role); !ok {
			return ListResult{}, apperr.Validation(map[string]string{"role": "role must be one of: super_admin tenant_admin user"})
		}
	}

	result, err := s.repo.List(ctx, persistence.ListUsersParams{
		Page:     opts.Page,
		TenantID: tenantID,
		Role:     opts.Role,
		Search:   strings.TrimSpace(opts.Search),
	})
	if err != nil {
		return ListResult{}, err
	}

	users := make([]User, 0, len(result.Items))
	for _, record := range result.Items {
		users = append(users, mapUser(record))
	}
	return ListResult{Users: users, Total: result.Total, Page: opts.Page}, nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (User, error) {
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, apperr.FromStore(err, msgUserNotFound, "")
	}

	fields := apperr.FieldErrors{}
	var mask persistence.FieldMask
	if name, ok := patch.Value(input.FullName, "fullName", fields); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			fields.Add("fullName", "fullName is required")
		}
		mask.Set("fullName", name)
	}
	if raw, ok := patch.Value(input.Role, "role", fields); ok {
		role, valid := authz.ParseRole(raw)
		switch {
		case !valid:
			fields.Add("role", "role must be one of: tenant_admin user")
		case role == authz.RoleSuperAdmin:
			fields.Add("role", "role cannot be super_admin")
		}
		mask.Set("role", raw)
	}
	if active, ok := patch.Value(input.IsActive, "isActive", fields); ok {
		mask.Set("isActive", active)
	}

	if err := authz.Enforce(ctx, actor, authz.ModifyUser, authz.Target{
		TenantID: tenantOf(target),
		UserID:   target.ID,
		Fields:   mask.Fields(),
	}); err != nil {
		return User{}, apperr.WithMessage(err, forbiddenOrMissing(err))
	}

	if len(fields) > 0 {
		return User{}, apperr.WithMessage(&apperr.ValidationError{Fields: fields}, msgInvalidUser)
	}
	if mask.Len() == 0 {
		return User{}, apperr.WithMessage(apperr.Validation(map[string]string{"body": "at least one field is required"}), msgNothingToWrite)
	}

	updated, err := s.repo.Update(ctx, id, mask)
	if err != nil {
		return User{}, apperr.FromStore(err, msgUserNotFound, "")
	}

	s.audit.Record(ctx, audit.FromContext(ctx, updated.TenantID, audit.UpdateUser, audit.EntityUser, updated.ID))
	return mapUser(updated), nil
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperr.FromStore(err, msgUserNotFound, "")
	}

	if err := authz.Enforce(ctx, actor, authz.DeleteUser, authz.Target{
		TenantID: tenantOf(target),
		UserID:   target.ID,
	}); err != nil {
		if actor.UserID == target.ID && errors.Is(err, apperr.ErrForbidden) {
			return apperr.WithMessage(err, msgSelfDelete)
		}
		return apperr.WithMessage(err, forbiddenOrMissing(err))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.FromStore(err, msgUserNotFound, "")
	}

	s.audit.Record(ctx, audit.FromContext(ctx, target.TenantID, audit.DeleteUser, audit.EntityUser, target.ID))
	return nil
}

// tenantOf returns the owning tenant; global users belong to none and match
// no tenant member.
func tenantOf(u persistence.User) uuid.UUID {
	if u.TenantID == nil {
		return uuid.Nil
	}
	return *u.TenantID
}

func forbiddenOrMissing(err error) string {
	if errors.Is(err, apperr.ErrNotFound) {
		return msgUserNotFound
	}
	return "Unauthorized"
}

func mapUser(record persistence.User) User {
	return User{
		ID:        record.ID,
		TenantID:  record.TenantID,
		Email:     record.Email,
		FullName:  record.FullName,
		Role:      authz.Role(record.Role),
		IsActive:  record.IsActive,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
