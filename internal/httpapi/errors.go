package httpapi

import (
	"encoding/json"
	"net/http"

	"visiond/internal/registry"
	"visiond/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps well-known registry errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case registry.IsConfigurationNotFound(err), registry.IsModelNotLoaded(err):
		return http.StatusNotFound
	case registry.IsUnsupportedFramework(err), registry.IsConfigurationInvalid(err):
		return http.StatusBadRequest
	case registry.IsRuntimeUnavailable(err):
		return http.StatusServiceUnavailable
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}
