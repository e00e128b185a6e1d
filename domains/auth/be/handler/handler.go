package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/domains/auth/be/service"
	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	"github.com/zenGate-Global/worklane/platform/go/httpx"
)

type operation string

const (
	registerOperation operation = "authRegisterTenant"
	loginOperation    operation = "authLogin"
	meOperation       operation = "authMe"
)

// Handler wires the auth service to HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("auth service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// RegisterPublic mounts the routes that need no token. The caller applies
// rate limiting.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register-tenant", h.RegisterTenant)
	r.Post("/auth/login", h.Login)
}

// RegisterProtected mounts the routes that require an authenticated actor.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/auth/me", h.Me)
	r.Post("/auth/logout", h.Logout)
}

// User is the wire shape of an authenticated identity.
type User struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"fullName"`
	Role     string     `json:"role"`
	TenantID *uuid.UUID `json:"tenantId"`
}

// Registration is the body of a successful registration.
type Registration struct {
	TenantID  uuid.UUID `json:"tenantId"`
	Subdomain string    `json:"subdomain"`
	AdminUser User      `json:"adminUser"`
}

// Session is the body of a successful login.
type Session struct {
	User      User   `json:"user"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

// TenantRef is the tenant summary embedded in the profile.
type TenantRef struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
}

// Profile is the body of GET /auth/me.
type Profile struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	FullName string     `json:"fullName"`
	Role     string     `json:"role"`
	IsActive bool       `json:"isActive"`
	Tenant   *TenantRef `json:"tenant"`
}

func (h *Handler) RegisterTenant(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, registerOperation, err)
		return
	}

	registration, err := h.svc.Register(r.Context(), input)
	if err != nil {
		h.fail(w, r, registerOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusCreated, "Tenant registered successfully", Registration{
		TenantID:  registration.TenantID,
		Subdomain: registration.Subdomain,
		AdminUser: User{
			ID:       registration.Admin.ID,
			Email:    registration.Admin.Email,
			FullName: registration.Admin.FullName,
			Role:     registration.Admin.Role,
		},
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, loginOperation, err)
		return
	}

	session, err := h.svc.Login(r.Context(), input)
	if err != nil {
		h.fail(w, r, loginOperation, err)
		return
	}

	httpx.OK(w, http.StatusOK, Session{
		User: User{
			ID:       session.User.ID,
			Email:    session.User.Email,
			FullName: session.User.FullName,
			Role:     session.User.Role,
			TenantID: session.User.TenantID,
		},
		Token:     session.Token,
		ExpiresIn: int64(session.ExpiresIn.Seconds()),
	})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}

	profile, err := h.svc.Me(r.Context(), actor)
	if err != nil {
		h.fail(w, r, meOperation, err)
		return
	}

	out := Profile{
		ID:       profile.ID,
		Email:    profile.Email,
		FullName: profile.FullName,
		Role:     profile.Role,
		IsActive: profile.IsActive,
	}
	if profile.Tenant != nil {
		out.Tenant = &TenantRef{ID: profile.Tenant.ID, Name: profile.Tenant.Name, Subdomain: profile.Tenant.Subdomain}
	}
	httpx.OK(w, http.StatusOK, out)
}

// Logout acknowledges the client discarding its token. Tokens are stateless
// and stay valid until they expire.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := platformauth.RequireActor(w, r); !ok {
		return
	}
	httpx.OKMessage(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op operation, err error) {
	httpx.Error(w, r, h.logger, string(op), err)
}
