package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/domains/auth/be/repo"
	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/audit"
	"github.com/zenGate-Global/worklane/platform/go/authz"
	"github.com/zenGate-Global/worklane/platform/go/logging"
	"github.com/zenGate-Global/worklane/platform/go/metrics"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

const (
	msgSubdomainTaken  = "Subdomain already exists"
	msgInvalidRegister = "All fields are required"
	msgInvalidLogin    = "Email and password are required"
	msgBadCredential   = "Invalid credentials"
	msgTenantNotFound  = "Tenant not found"
	msgTenantInactive  = "Tenant is inactive"
	msgAccountInactive = "Account is inactive"
	msgUserNotFound    = "User not found"
)

// Login paths, used as metric labels.
const (
	pathGlobal = "global"
	pathTenant = "tenant"
)

// Config holds the defaults applied to new tenants and sessions.
type Config struct {
	DefaultPlan        string
	DefaultMaxUsers    int
	DefaultMaxProjects int
	TokenTTL           time.Duration
}

// RegisterInput is the payload of a tenant registration.
type RegisterInput struct {
	TenantName    string `json:"tenantName" validate:"required,max=255"`
	Subdomain     string `json:"subdomain" validate:"required"`
	AdminEmail    string `json:"adminEmail" validate:"required,email,max=255"`
	AdminPassword string `json:"adminPassword" validate:"required,min=8,max=72"`
	AdminFullName string `json:"adminFullName" validate:"required,max=255"`
}

// LoginInput is the payload of a login. An empty TenantSubdomain selects the
// global super admin namespace.
type LoginInput struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	TenantSubdomain string `json:"tenantSubdomain,omitempty"`
}

// User is the identity returned by the auth operations.
type User struct {
	ID       uuid.UUID
	TenantID *uuid.UUID
	Email    string
	FullName string
	Role     string
	IsActive bool
}

// TenantRef names the tenant a user belongs to.
type TenantRef struct {
	ID        uuid.UUID
	Name      string
	Subdomain string
}

// Registration is the outcome of a successful registration.
type Registration struct {
	TenantID  uuid.UUID
	Subdomain string
	Admin     User
}

// Session is the outcome of a successful login.
type Session struct {
	User      User
	Token     string
	ExpiresIn time.Duration
}

// Profile is the current user with their tenant, if any.
type Profile struct {
	User
	Tenant *TenantRef
}

// Hasher hashes and checks secrets.
type Hasher interface {
	Hash(secret string) (string, error)
	Matches(secret, verifier string) bool
	// Burn costs as much as Matches without checking anything.
	Burn(secret string)
}

// Signer mints tokens for an actor.
type Signer interface {
	Sign(actor authz.Actor, ttl time.Duration) (string, error)
}

// TenantCache resolves tenants by subdomain ahead of the store.
type TenantCache interface {
	Get(ctx context.Context, subdomain string) (persistence.Tenant, bool, error)
	Set(ctx context.Context, tenant persistence.Tenant) error
}

// AuditWriter appends audit records inside a transaction.
type AuditWriter interface {
	RecordTx(ctx context.Context, q persistence.AuditQueries, entry audit.Entry) error
}

// Service defines the registration and session operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (Registration, error)
	Login(ctx context.Context, input LoginInput) (Session, error)
	Me(ctx context.Context, actor authz.Actor) (Profile, error)
}

type service struct {
	repo   repo.Repository
	hasher Hasher
	signer Signer
	cache  TenantCache
	audit  AuditWriter
	cfg    Config
}

// New constructs an auth Service.
func New(r repo.Repository, hasher Hasher, signer Signer, cache TenantCache, writer AuditWriter, cfg Config) Service {
	if r == nil {
		panic("auth repository is required")
	}
	if hasher == nil || signer == nil {
		panic("hasher and signer are required")
	}
	if cache == nil {
		panic("tenant cache is required")
	}
	if writer == nil {
		panic("audit writer is required")
	}
	if cfg.DefaultPlan == "" {
		cfg.DefaultPlan = "free"
	}
	if cfg.DefaultMaxUsers < 1 {
		cfg.DefaultMaxUsers = 5
	}
	if cfg.DefaultMaxProjects < 1 {
		cfg.DefaultMaxProjects = 3
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &service{repo: r, hasher: hasher, signer: signer, cache: cache, audit: writer, cfg: cfg}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (Registration, error) {
	input.TenantName = strings.TrimSpace(input.TenantName)
	input.AdminEmail = strings.ToLower(strings.TrimSpace(input.AdminEmail))
	input.AdminFullName = strings.TrimSpace(input.AdminFullName)
	if err := apperr.Validate(input, msgInvalidRegister); err != nil {
		metrics.RecordRegistration("invalid")
		return Registration{}, err
	}
	subdomain, err := persistence.NormalizeSubdomain(input.Subdomain)
	if err != nil {
		metrics.RecordRegistration("invalid")
		return Registration{}, apperr.WithMessage(apperr.Validation(map[string]string{"subdomain": err.Error()}), "Invalid subdomain")
	}

	// Hashing is slow; keep it outside the transaction.
	verifier, err := s.hasher.Hash(input.AdminPassword)
	if err != nil {
		metrics.RecordRegistration("error")
		return Registration{}, fmt.Errorf("hash admin secret: %w", err)
	}

	tenant, admin, err := s.repo.Register(ctx,
		persistence.CreateTenantParams{
			ID:               uuid.New(),
			Name:             input.TenantName,
			Subdomain:        subdomain,
			Status:           persistence.TenantActive,
			SubscriptionPlan: s.cfg.DefaultPlan,
			MaxUsers:         s.cfg.DefaultMaxUsers,
			MaxProjects:      s.cfg.DefaultMaxProjects,
		},
		persistence.CreateUserParams{
			ID:           uuid.New(),
			Email:        input.AdminEmail,
			PasswordHash: verifier,
			FullName:     input.AdminFullName,
			Role:         string(authz.RoleTenantAdmin),
			IsActive:     true,
		},
		func(ctx context.Context, q persistence.AuditQueries, tenant persistence.Tenant, admin persistence.User) error {
			adminID, tenantID := admin.ID, tenant.ID
			return s.audit.RecordTx(ctx, q, audit.Entry{
				TenantID:   &tenantID,
				UserID:     &adminID,
				Action:     audit.RegisterTenant,
				EntityType: audit.EntityTenant,
				EntityID:   tenant.ID,
			})
		},
	)
	if err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			metrics.RecordRegistration("conflict")
			return Registration{}, apperr.WithMessage(fmt.Errorf("%w: %w", err, apperr.ErrConflict), msgSubdomainTaken)
		}
		metrics.RecordRegistration("error")
		return Registration{}, fmt.Errorf("register tenant %s: %w", subdomain, err)
	}

	metrics.RecordRegistration("success")
	logging.Ctx(ctx, nil).Info("tenant registered",
		zap.Stringer("tenant_id", tenant.ID),
		zap.String("subdomain", tenant.Subdomain),
	)
	return Registration{TenantID: tenant.ID, Subdomain: tenant.Subdomain, Admin: mapUser(admin)}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (Session, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.TenantSubdomain = strings.ToLower(strings.TrimSpace(input.TenantSubdomain))
	if err := apperr.Validate(input, msgInvalidLogin); err != nil {
		return Session{}, err
	}

	path := pathGlobal
	if input.TenantSubdomain != "" {
		path = pathTenant
	}

	user, err := s.authenticate(ctx, input)
	if err != nil {
		metrics.RecordLogin(path, outcome(err))
		return Session{}, err
	}

	actor := authz.Actor{UserID: user.ID, TenantID: user.TenantID, Role: authz.Role(user.Role)}
	token, err := s.signer.Sign(actor, s.cfg.TokenTTL)
	if err != nil {
		metrics.RecordLogin(path, "error")
		return Session{}, fmt.Errorf("sign token: %w", err)
	}

	metrics.RecordLogin(path, "success")
	return Session{User: mapUser(user), Token: token, ExpiresIn: s.cfg.TokenTTL}, nil
}

// authenticate resolves the identity for input and checks its secret. A
// missing identity and a wrong secret fail the same way and cost the same.
func (s *service) authenticate(ctx context.Context, input LoginInput) (persistence.User, error) {
	var tenantID *uuid.UUID
	if input.TenantSubdomain != "" {
		tenant, err := s.resolveTenant(ctx, input.TenantSubdomain)
		if err != nil {
			return persistence.User{}, err
		}
		if tenant.Status != persistence.TenantActive {
			return persistence.User{}, apperr.WithMessage(apperr.ErrTenantInactive, msgTenantInactive)
		}
		tenantID = &tenant.ID
	}

	user, err := s.repo.FindUser(ctx, tenantID, input.Email)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		s.hasher.Burn(input.Password)
		return persistence.User{}, apperr.WithMessage(apperr.ErrBadCredential, msgBadCredential)
	case err != nil:
		return persistence.User{}, fmt.Errorf("find user: %w", err)
	}
	// The global namespace only admits super admins; anything else there is
	// treated as absent.
	if tenantID == nil && user.Role != string(authz.RoleSuperAdmin) {
		s.hasher.Burn(input.Password)
		return persistence.User{}, apperr.WithMessage(apperr.ErrBadCredential, msgBadCredential)
	}

	if !s.hasher.Matches(input.Password, user.PasswordHash) {
		return persistence.User{}, apperr.WithMessage(apperr.ErrBadCredential, msgBadCredential)
	}
	if !user.IsActive {
		return persistence.User{}, apperr.WithMessage(apperr.ErrAccountInactive, msgAccountInactive)
	}
	return user, nil
}

func (s *service) resolveTenant(ctx context.Context, subdomain string) (persistence.Tenant, error) {
	logger := logging.Ctx(ctx, nil)

	// The cache only maps subdomain to id. Status and quotas are always read
	// from the store, so a stale entry cannot let a suspended tenant through.
	cached, found, err := s.cache.Get(ctx, subdomain)
	if err != nil {
		logger.Warn("tenant cache read failed", zap.String("subdomain", subdomain), zap.Error(err))
	}
	if found {
		tenant, err := s.repo.GetTenant(ctx, cached.ID)
		switch {
		case err == nil && tenant.Subdomain == subdomain:
			return tenant, nil
		case err != nil && !errors.Is(err, persistence.ErrNotFound):
			return persistence.Tenant{}, fmt.Errorf("get tenant: %w", err)
		}
	}

	tenant, err := s.repo.TenantBySubdomain(ctx, subdomain)
	if err != nil {
		return persistence.Tenant{}, apperr.FromStore(err, msgTenantNotFound, "")
	}
	if err := s.cache.Set(ctx, tenant); err != nil {
		logger.Warn("tenant cache write failed", zap.String("subdomain", subdomain), zap.Error(err))
	}
	return tenant, nil
}

func (s *service) Me(ctx context.Context, actor authz.Actor) (Profile, error) {
	user, err := s.repo.GetUser(ctx, actor.UserID)
	if err != nil {
		return Profile{}, apperr.FromStore(err, msgUserNotFound, "")
	}

	profile := Profile{User: mapUser(user)}
	if user.TenantID != nil {
		tenant, err := s.repo.GetTenant(ctx, *user.TenantID)
		if err != nil {
			return Profile{}, apperr.FromStore(err, msgTenantNotFound, "")
		}
		profile.Tenant = &TenantRef{ID: tenant.ID, Name: tenant.Name, Subdomain: tenant.Subdomain}
	}
	return profile, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperr.ErrBadCredential):
		return "bad_credential"
	case errors.Is(err, apperr.ErrTenantInactive):
		return "tenant_inactive"
	case errors.Is(err, apperr.ErrAccountInactive):
		return "account_inactive"
	case errors.Is(err, apperr.ErrNotFound):
		return "tenant_not_found"
	default:
		return "error"
	}
}

func mapUser(u persistence.User) User {
	return User{
		ID:       u.ID,
		TenantID: u.TenantID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}
