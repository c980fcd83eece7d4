package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/unbrain/admin-apiserver/internal/services"
	"github.com/unbrain/admin-apiserver/internal/store"
	"github.com/unbrain/admin-apiserver/types"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// AdminHandler provides account management endpoints for admin-tier users.
type AdminHandler struct {
	accountService *services.AccountService
}

func NewAdminHandler(accountService *services.AccountService) *AdminHandler {
	return &AdminHandler{accountService: accountService}
}

// AdminRouter registers account management routes. Every route requires an
// authenticated admin or super_admin identity.
func AdminRouter(r chi.Router, accountService *services.AccountService, authenticate func(http.Handler) http.Handler) {
	handler := NewAdminHandler(accountService)

	r.Use(authenticate, RequireAdmin())
	r.Post("/users", handler.CreateUser)
	r.Get("/users", handler.ListUsers)
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Put("/", handler.UpdateUser)
	})
}

// CreateUser creates a moderator or admin account.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	req, err := decodeJSON[CreateUserRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validateCreateUser(req); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}
	if req.Role == "" {
		req.Role = types.RoleModerator
	}

	user, err := h.accountService.CreateAccount(r.Context(), actor, req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "User with this email already exists")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "Only super admins can create admin accounts")
		case errors.Is(err, services.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "Role must be either moderator or admin")
		default:
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusCreated, fmt.Sprintf("%s created successfully", user.Role), user)
}

// ListUsers returns a page of admin/moderator accounts.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	roleFilter := r.URL.Query().Get("role")

	users, total, err := h.accountService.ListAccounts(r.Context(), roleFilter, page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	totalPages := (total + limit - 1) / limit
	writeSuccess(w, http.StatusOK, "", UserListData{
		Users: users,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalUsers:  total,
			PerPage:     limit,
		},
	})
}

// GetUser returns one account by id.
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	user, err := h.accountService.GetAccount(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeSuccess(w, http.StatusOK, "", user)
}

// UpdateUser applies a sparse patch to an account.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	req, err := decodeJSON[UpdateUserRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validateUpdateUser(req); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.accountService.UpdateAccount(r.Context(), actor, id, store.UserPatch{
		Email:    req.Email,
		IsActive: req.IsActive,
		Role:     req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found or cannot be modified")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "Only super admins can modify admin accounts")
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "User with this email already exists")
		case errors.Is(err, services.ErrEmptyPatch), errors.Is(err, services.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "User updated successfully", user)
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email"`
	IsActive *bool   `json:"is_active"`
	Role     *string `json:"role"`
}

type UserListData struct {
	Users      []types.User `json:"users"`
	Pagination Pagination   `json:"pagination"`
}

type Pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalUsers  int `json:"total_users"`
	PerPage     int `json:"per_page"`
}

func parseUserID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid user id")
	}
	return id, nil
}

func parsePagination(r *http.Request) (page, limit int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, errors.New("invalid page")
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit")
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, nil
}
