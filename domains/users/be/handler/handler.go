package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/worklane/domains/users/be/service"
	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	"github.com/zenGate-Global/worklane/platform/go/httpx"
)

// DefaultPageLimit is the page size when the caller gives none.
const DefaultPageLimit = 50

type operation string

const (
	createOperation operation = "usersCreate"
	listOperation   operation = "usersList"
	updateOperation operation = "usersUpdate"
	deleteOperation operation = "usersDelete"
)

// Handler wires the users service to HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("users service is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{svc: svc, logger: logger}
}

// Register mounts the users routes on an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants/{tenantId}/users", h.Create)
	r.Get("/tenants/{tenantId}/users", h.List)
	r.Put("/users/{userId}", h.Update)
	r.Delete("/users/{userId}", h.Delete)
}

// User is the wire shape of a user. The credential verifier never leaves the service.
type User struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  *uuid.UUID `json:"tenantId"`
	Email     string     `json:"email"`
	FullName  string     `json:"fullName"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	tenantID, err := httpx.PathUUID(r, "tenantId")
	if err != nil {
		h.fail(w, r, createOperation, err)
		return
	}

	var input service.CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, createOperation, err)
		return
	}

	created, err := h.svc.Create(r.Context(), actor, tenantID, input)
	if err != nil {
		h.fail(w, r, createOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusCreated, "User created successfully", toAPIUser(created))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	tenantID, err := httpx.PathUUID(r, "tenantId")
	if err != nil {
		h.fail(w, r, listOperation, err)
		return
	}

	opts := service.ListOptions{
		Page:   httpx.PageParams(r, DefaultPageLimit),
		Role:   httpx.QueryString(r, "role"),
		Search: httpx.QueryString(r, "search"),
	}

	result, err := h.svc.List(r.Context(), actor, tenantID, opts)
	if err != nil {
		h.fail(w, r, listOperation, err)
		return
	}

	items := make([]User, 0, len(result.Users))
	for _, u := range result.Users {
		items = append(items, toAPIUser(u))
	}
	pagination := httpx.NewPagination(result.Page.Page, result.Page.Limit, result.Total)
	httpx.OK(w, http.StatusOK, httpx.List("users", items, result.Total, pagination))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	userID, err := httpx.PathUUID(r, "userId")
	if err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	var input service.UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), actor, userID, input)
	if err != nil {
		h.fail(w, r, updateOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusOK, "User updated successfully", toAPIUser(updated))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := platformauth.RequireActor(w, r)
	if !ok {
		return
	}
	userID, err := httpx.PathUUID(r, "userId")
	if err != nil {
		h.fail(w, r, deleteOperation, err)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, userID); err != nil {
		h.fail(w, r, deleteOperation, err)
		return
	}

	httpx.OKMessage(w, http.StatusOK, "User deleted successfully", nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op operation, err error) {
	httpx.Error(w, r, h.logger, string(op), err)
}

func toAPIUser(u service.User) User {
	return User{
		ID:        u.ID,
		TenantID:  u.TenantID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
