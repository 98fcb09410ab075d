// Package handler exposes the kiosk operations API over HTTP. All routes are
// mounted behind the terminal API key middleware.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bioentry/internal/terminal"
	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/platform/httputil"
)

// Service defines the terminal operations the HTTP layer needs.
type Service interface {
	Health(ctx context.Context, terminalID string) terminal.Health
	ConfigFor(terminalID string) terminal.ConfigEnvelope
	SyncDatabase(ctx context.Context) (terminal.SyncPayload, error)
	CheckSync(ctx context.Context) (terminal.SyncCheck, error)
	BulkUpload(ctx context.Context, in terminal.BulkRequest) (terminal.BulkResult, error)
	Status(ctx context.Context, terminalID string) (terminal.StatusReport, error)
	PendingRequests(ctx context.Context, terminalID string) ([]terminal.EnrollmentRequest, error)
	ResolveRequest(ctx context.Context, id, state string) (terminal.EnrollmentRequest, error)
}

// Handler wires terminal endpoints to the terminal service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a terminal handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts terminal endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/terminal-health/{terminalID}", h.HandleHealth)
	r.Get("/terminal-config/{terminalID}", h.HandleConfig)
	r.Get("/terminal-sync/{terminalID}", h.HandleSync)
	r.Get("/terminal-sync/{terminalID}/check", h.HandleSyncCheck)
	r.Post("/terminal-records/bulk", h.HandleBulkUpload)
	r.Get("/terminal-records/status/{terminalID}", h.HandleStatus)
	r.Get("/terminal-requests/{terminalID}", h.HandleRequests)
	r.Post("/terminal-requests/{id}/update", h.HandleResolveRequest)
}

// HandleHealth handles GET /terminal-health/{terminalID} requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.service.Health(r.Context(), chi.URLParam(r, "terminalID"))
	httputil.WriteJSON(w, http.StatusOK, health)
}

// HandleConfig handles GET /terminal-config/{terminalID} requests.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	envelope := h.service.ConfigFor(chi.URLParam(r, "terminalID"))
	httputil.WriteJSON(w, http.StatusOK, envelope)
}

// HandleSync handles GET /terminal-sync/{terminalID} requests.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	payload, err := h.service.SyncDatabase(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "terminal sync failed",
			"terminal_id", chi.URLParam(r, "terminalID"), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payload)
}

// HandleSyncCheck handles GET /terminal-sync/{terminalID}/check requests.
func (h *Handler) HandleSyncCheck(w http.ResponseWriter, r *http.Request) {
	check, err := h.service.CheckSync(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, check)
}

// HandleBulkUpload handles POST /terminal-records/bulk requests. The terminal
// id comes from the body, falling back to the X-Terminal-ID header the
// middleware authenticated with.
func (h *Handler) HandleBulkUpload(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[terminal.BulkRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.TerminalID == "" {
		req.TerminalID = r.Header.Get("X-Terminal-ID")
	}
	if req.TerminalID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "terminal id is required"))
		return
	}

	result, err := h.service.BulkUpload(r.Context(), *req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleStatus handles GET /terminal-records/status/{terminalID} requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Status(r.Context(), chi.URLParam(r, "terminalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleRequests handles GET /terminal-requests/{terminalID} requests.
func (h *Handler) HandleRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.PendingRequests(r.Context(), chi.URLParam(r, "terminalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if requests == nil {
		requests = []terminal.EnrollmentRequest{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"total":    len(requests),
		"requests": requests,
	})
}

// HandleResolveRequest handles POST /terminal-requests/{id}/update requests.
func (h *Handler) HandleResolveRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[struct {
		State string `json:"state"`
	}](w, r, h.logger)
	if !ok {
		return
	}

	request, err := h.service.ResolveRequest(r.Context(), chi.URLParam(r, "id"), req.State)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}
