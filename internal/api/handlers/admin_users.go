package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/counselcms/server/internal/api/problem"
	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/domain/users"
)

// UserService defines the account operations the admin API needs.
type UserService interface {
	List(ctx context.Context) ([]users.User, error)
	Create(ctx context.Context, params users.CreateUserParams, actor string) (*users.User, error)
	ChangePassword(ctx context.Context, id, password, actor string) error
	Delete(ctx context.Context, id, actor string) error
}

var errDeleteSelf = errors.New("cannot delete your own account")

// AdminUsersHandler handles account management. Routes are admin-only; the
// service writes the audit entries.
type AdminUsersHandler struct {
	userService UserService
	env         string
}

func NewAdminUsersHandler(userService UserService, env string) *AdminUsersHandler {
	return &AdminUsersHandler{userService: userService, env: env}
}

// ChangePasswordRequest is the body of PUT /api/v1/admin/users/{id}/password.
type ChangePasswordRequest struct {
	Password string `json:"password"`
}

// ListUsers handles GET /api/v1/admin/users.
func (h *AdminUsersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newList(list))
}

// CreateUser handles POST /api/v1/admin/users.
func (h *AdminUsersHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var params users.CreateUserParams
	if err := decodeJSON(r, &params); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	user, err := h.userService.Create(r.Context(), params, actor(r))
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// ChangePassword handles PUT /api/v1/admin/users/{id}/password.
func (h *AdminUsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	if err := h.userService.ChangePassword(r.Context(), id, req.Password, actor(r)); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}. Admins cannot delete
// their own account, and the last admin is kept.
func (h *AdminUsersHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims.Subject == id {
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", errDeleteSelf, h.env,
			problem.WithDetail(errDeleteSelf.Error()))
		return
	}
	if err := h.userService.Delete(r.Context(), id, actor(r)); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
