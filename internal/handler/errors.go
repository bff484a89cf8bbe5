// internal/handler/errors.go
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/argusvision/inferd/internal/engine"
)

// httpError maps known pipeline errors to HTTP status codes
func httpError(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrNoBackend):
		return http.StatusServiceUnavailable, "no execution backend bound"

	case errors.Is(err, engine.ErrExecution):
		return http.StatusBadGateway, fmt.Sprintf("inference execution failed: %v", err)

	default:
		return http.StatusInternalServerError, fmt.Sprintf("internal error: %v", err)
	}
}

// writeError renders a JSON error body with the given status code
func writeError(w http.ResponseWriter, code int, format string, args ...interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": fmt.Sprintf(format, args...),
	})
}
