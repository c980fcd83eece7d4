package handlers

import (
	"fmt"
	"net/http"
	"time"
)

// Health reports process liveness with the standard envelope.
func Health(port int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, fmt.Sprintf("Server is running on port %d", port), map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// NotFound answers unmatched routes with the standard envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, Response{
		Success: false,
		Message: "API endpoint not found",
	})
}
