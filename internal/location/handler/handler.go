// Package handler exposes geofence management over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bioentry/internal/location"
	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/platform/httputil"
)

// Service defines the location operations the HTTP layer needs.
type Service interface {
	Get(ctx context.Context, subjectID string) (location.Profile, error)
	AddFence(ctx context.Context, subjectID string, fence location.Geofence) error
	RemoveFence(ctx context.Context, subjectID string, index int) error
}

// Handler wires geofence endpoints to the location service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a location handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts geofence endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/user-locations/{subjectID}", h.HandleGet)
	r.Post("/user-locations/{subjectID}", h.HandleAdd)
	r.Delete("/user-locations/{subjectID}/{index}", h.HandleRemove)
}

// HandleGet handles GET /user-locations/{subjectID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Get(r.Context(), chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// HandleAdd handles POST /user-locations/{subjectID} requests.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	fence, ok := httputil.DecodeJSON[location.Geofence](w, r, h.logger)
	if !ok {
		return
	}

	subjectID := chi.URLParam(r, "subjectID")
	if err := h.service.AddFence(r.Context(), subjectID, *fence); err != nil {
		httputil.WriteError(w, err)
		return
	}

	profile, err := h.service.Get(r.Context(), subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, profile)
}

// HandleRemove handles DELETE /user-locations/{subjectID}/{index} requests.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "geofence index must be a number"))
		return
	}

	subjectID := chi.URLParam(r, "subjectID")
	if err := h.service.RemoveFence(r.Context(), subjectID, index); err != nil {
		httputil.WriteError(w, err)
		return
	}

	profile, err := h.service.Get(r.Context(), subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}
