package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/unbrain/admin-apiserver/types"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError reports a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func identityFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextIdentityKey).(types.User)
	return user, ok
}

func withIdentity(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextIdentityKey, user)
}

func decodeJSON[T any](r *http.Request) (T, error) {
	var value T
	err := json.NewDecoder(r.Body).Decode(&value)
	return value, err
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

func writeValidationErrors(w http.ResponseWriter, errs []FieldError) {
	writeJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	})
}
