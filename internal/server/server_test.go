package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/unbrain/admin-apiserver/config"
	"github.com/unbrain/admin-apiserver/internal/auth"
	"github.com/unbrain/admin-apiserver/internal/handlers"
)

func testServer(t *testing.T) (*httptest.Server, config.Config) {
	t.Helper()
	cfg := config.Config{
		ServerPort:         3001,
		Environment:        "test",
		SQLitePath:         filepath.Join(t.TempDir(), "test.db"),
		JWTSecret:          "test-secret",
		JWTExpires:         time.Hour,
		SuperAdminEmail:    "admin@example.com",
		SuperAdminPassword: "Admin123",
		GlobalRateLimit:    10000,
		AuthRateLimit:      10000,
	}

	srv, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown()
	})
	return ts, cfg
}

func doRequest(t *testing.T, method, url, token string, body any) (*http.Response, handlers.Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope handlers.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func login(t *testing.T, baseURL, email, password string) string {
	t.Helper()
	resp, envelope := doRequest(t, http.MethodPost, baseURL+"/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	token, ok := data["token"].(string)
	require.True(t, ok)
	return token
}

func TestHealth(t *testing.T) {
	ts, _ := testServer(t)

	resp, envelope := doRequest(t, http.MethodGet, ts.URL+"/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)
}

func TestUnknownRoute(t *testing.T) {
	ts, _ := testServer(t)

	resp, envelope := doRequest(t, http.MethodGet, ts.URL+"/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.False(t, envelope.Success)
	require.Equal(t, "API endpoint not found", envelope.Message)
}

func TestLogin_SuperAdminBootstrapAccount(t *testing.T) {
	ts, _ := testServer(t)

	token := login(t, ts.URL, "admin@example.com", "Admin123")
	require.NotEmpty(t, token)

	resp, envelope := doRequest(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "WrongPass1",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Invalid email or password", envelope.Message)
}

func TestLogin_ValidationFailure(t *testing.T) {
	ts, _ := testServer(t)

	resp, envelope := doRequest(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, envelope.Success)
	require.NotEmpty(t, envelope.Errors)
}

func TestProfile_RequiresToken(t *testing.T) {
	ts, _ := testServer(t)

	resp, envelope := doRequest(t, http.MethodGet, ts.URL+"/api/auth/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Access token required", envelope.Message)

	resp, envelope = doRequest(t, http.MethodGet, ts.URL+"/api/auth/profile", "garbage.token.here", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Invalid token", envelope.Message)
}

func TestProfile_ExpiredToken(t *testing.T) {
	ts, cfg := testServer(t)

	expired := auth.NewTokenService(cfg.JWTSecret, -time.Minute)
	token, err := expired.Issue(1, "admin@example.com", "super_admin")
	require.NoError(t, err)

	resp, envelope := doRequest(t, http.MethodGet, ts.URL+"/api/auth/profile", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Token expired", envelope.Message)
}

func TestCreateModerator_HappyPath(t *testing.T) {
	ts, _ := testServer(t)
	token := login(t, ts.URL, "admin@example.com", "Admin123")

	resp, envelope := doRequest(t, http.MethodPost, ts.URL+"/api/admin/users", token, map[string]string{
		"email":    "Mod1@X.com",
		"password": "Passw0rd!",
		"role":     "moderator",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, envelope.Success)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "mod1@x.com", data["email"])
	require.Equal(t, "moderator", data["role"])
	require.Equal(t, true, data["is_active"])
	_, leaked := data["password_hash"]
	require.False(t, leaked)
	_, leaked = data["password"]
	require.False(t, leaked)
}

func TestCreateUser_DuplicateEmailConflict(t *testing.T) {
	ts, _ := testServer(t)
	token := login(t, ts.URL, "admin@example.com", "Admin123")

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/admin/users", token, map[string]string{
		"email":    "A@B.com",
		"password": "Passw0rd!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, envelope := doRequest(t, http.MethodPost, ts.URL+"/api/admin/users", token, map[string]string{
		"email":    "a@b.com",
		"password": "Passw0rd!",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "User with this email already exists", envelope.Message)
}

func TestCreateAdmin_RequiresSuperAdmin(t *testing.T) {
	ts, _ := testServer(t)
	superToken := login(t, ts.URL, "admin@example.com", "Admin123")

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/admin/users", superToken, map[string]string{
		"email":    "adm@x.com",
		"password": "Passw0rd!",
		"role":     "admin",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	adminToken := login(t, ts.URL, "adm@x.com", "Passw0rd!")
	resp, envelope := doRequest(t, http.MethodPost, ts.URL+"/api/admin/users", adminToken, map[string]string{
		"email":    "adm2@x.com",
		"password": "Passw0rd!",
		"role":     "admin",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Only super admins can create admin accounts", envelope.Message)
}

func TestModerator_CannotUseAdminAPI(t *testing.T) {
	ts, _ := testServer(t)
	superToken := login(t, ts.URL, "admin@example.com", "Admin123")

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/admin/users", superToken, map[string]string{
		"email":    "mod@x.com",
		"password": "Passw0rd!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	modToken := login(t, ts.URL, "mod@x.com", "Passw0rd!")
	resp, envelope := doRequest(t, http.MethodGet, ts.URL+"/api/admin/users", modToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Insufficient permission", envelope.Message)
}

func TestListUsers_PaginationEnvelope(t *testing.T) {
	ts, _ := testServer(t)
	token := login(t, ts.URL, "admin@example.com", "Admin123")

	for i := 1; i <= 3; i++ {
		resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/admin/users", token, map[string]string{
			"email":    fmt.Sprintf("mod%d@x.com", i),
			"password": "Passw0rd!",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, envelope := doRequest(t, http.MethodGet, ts.URL+"/api/admin/users?page=1&limit=2", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	users, ok := data["users"].([]any)
	require.True(t, ok)
	require.Len(t, users, 2)

	pagination, ok := data["pagination"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(1), pagination["current_page"])
	require.Equal(t, float64(2), pagination["total_pages"])
	require.Equal(t, float64(3), pagination["total_users"])
	require.Equal(t, float64(2), pagination["per_page"])

	// The bootstrap super admin never shows up.
	for _, u := range users {
		entry := u.(map[string]any)
		require.NotEqual(t, "super_admin", entry["role"])
	}
}

func TestUpdateUser_DeactivationKillsLiveToken(t *testing.T) {
	ts, _ := testServer(t)
	superToken := login(t, ts.URL, "admin@example.com", "Admin123")

	resp, envelope := doRequest(t, http.MethodPost, ts.URL+"/api/admin/users", superToken, map[string]string{
		"email":    "mod@x.com",
		"password": "Passw0rd!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := envelope.Data.(map[string]any)
	modID := int(data["id"].(float64))

	// The moderator logs in and holds a valid token.
	modToken := login(t, ts.URL, "mod@x.com", "Passw0rd!")
	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/auth/profile", modToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Deactivate the account.
	resp, _ = doRequest(t, http.MethodPut, fmt.Sprintf("%s/api/admin/users/%d", ts.URL, modID), superToken, map[string]any{
		"is_active": false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The still-signed token is now rejected by the gate.
	resp, envelope = doRequest(t, http.MethodGet, ts.URL+"/api/auth/profile", modToken, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Account deactivated", envelope.Message)

	// And fresh credentials no longer work either.
	resp, envelope = doRequest(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]string{
		"email":    "mod@x.com",
		"password": "Passw0rd!",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Account has been deactivated", envelope.Message)
}

func TestUpdateUser_EmptyPatchRejected(t *testing.T) {
	ts, _ := testServer(t)
	token := login(t, ts.URL, "admin@example.com", "Admin123")

	resp, envelope := doRequest(t, http.MethodPost, ts.URL+"/api/admin/users", token, map[string]string{
		"email":    "mod@x.com",
		"password": "Passw0rd!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := envelope.Data.(map[string]any)
	modID := int(data["id"].(float64))

	resp, envelope = doRequest(t, http.MethodPut, fmt.Sprintf("%s/api/admin/users/%d", ts.URL, modID), token, map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Validation failed", envelope.Message)
}

func TestGetUser_NotFoundForSuperAdminID(t *testing.T) {
	ts, _ := testServer(t)
	token := login(t, ts.URL, "admin@example.com", "Admin123")

	// The bootstrap super admin is row 1 and invisible through this API.
	resp, envelope := doRequest(t, http.MethodGet, ts.URL+"/api/admin/users/1", token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "User not found", envelope.Message)
}

func TestLogout(t *testing.T) {
	ts, _ := testServer(t)
	token := login(t, ts.URL, "admin@example.com", "Admin123")

	resp, envelope := doRequest(t, http.MethodPost, ts.URL+"/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Logged out successfully", envelope.Message)
}
