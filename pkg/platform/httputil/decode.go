package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "bioentry/pkg/domain-errors"
)

// DecodeJSON decodes a JSON request body into the target type. On failure it
// writes an error response and returns false.
//
// Usage:
//
//	req, ok := httputil.DecodeJSON[initRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode request body", "error", err)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return &req, true
}
