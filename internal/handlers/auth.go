package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/unbrain/admin-apiserver/internal/auth"
	"github.com/unbrain/admin-apiserver/internal/services"
	"github.com/unbrain/admin-apiserver/internal/store"
	"github.com/unbrain/admin-apiserver/types"
)

// AuthHandler provides login, profile, and logout endpoints.
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, authenticate func(http.Handler) http.Handler) {
	handler := NewAuthHandler(authService)

	r.Post("/login", handler.Login)
	r.With(authenticate).Get("/profile", handler.Profile)
	r.With(authenticate).Post("/logout", handler.Logout)
}

// Authenticate verifies the bearer token and re-reads the user from the
// store, so deactivated or deleted accounts are rejected even while their
// token is still signed and unexpired. The live identity is injected into
// the request context.
func Authenticate(tokens *auth.TokenService, users *store.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Access token required")
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					writeError(w, http.StatusUnauthorized, "Token expired")
					return
				}
				writeError(w, http.StatusForbidden, "Invalid token")
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "User not found")
					return
				}
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			if !user.IsActive {
				writeError(w, http.StatusUnauthorized, "Account deactivated")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), user)))
		})
	}
}

// RequireRole rejects authenticated requests whose role is not in roles.
// A request arriving here without an identity is a routing mistake and is
// treated as unauthenticated.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := identityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Insufficient permission")
		})
	}
}

// RequireAdmin allows admin and super_admin identities through.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(types.RoleSuperAdmin, types.RoleAdmin)
}

// Login verifies credentials and returns a token with the user identity.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[LoginRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := validateLogin(req); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, services.ErrAccountDeactivated):
			writeError(w, http.StatusUnauthorized, "Account has been deactivated")
		default:
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "Login successful", LoginData{
		Token: token,
		User: LoginUser{
			ID:    user.ID,
			Email: user.Email,
			Role:  user.Role,
		},
	})
}

// Profile returns the caller's own account.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.authService.Profile(r.Context(), identity.ID)
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

// Logout acknowledges the request. Tokens are stateless; discarding the
// token is the client's responsibility.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginData struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

type LoginUser struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
