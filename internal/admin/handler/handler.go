// Package handler exposes management authentication over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bioentry/internal/admin"
	"bioentry/internal/platform/middleware"
	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/platform/httputil"
)

// Service defines the admin operations the HTTP layer needs.
type Service interface {
	Login(ctx context.Context, username, password string) (admin.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (admin.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, username string) (admin.Account, error)
}

// Handler wires admin auth endpoints to the admin service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an admin handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the unauthenticated auth endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/auth/login", h.HandleLogin)
	r.Post("/admin/auth/refresh", h.HandleRefresh)
	r.Post("/admin/auth/logout", h.HandleLogout)
}

// RegisterProtected mounts endpoints that require a valid access token. The
// caller wraps them with the admin auth middleware.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/admin/auth/me", h.HandleMe)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin handles POST /admin/auth/login requests.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[loginRequest](w, r, h.logger)
	if !ok {
		return
	}

	pair, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "login rejected", "username", req.Username)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefresh handles POST /admin/auth/refresh requests.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[refreshRequest](w, r, h.logger)
	if !ok {
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

// HandleLogout handles POST /admin/auth/logout requests. Logout is idempotent; an
// already revoked token still gets a 204.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[refreshRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /admin/auth/me requests.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	account, err := h.service.Me(r.Context(), identity.Username)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"username":   account.Username,
		"role":       identity.Role,
		"created_at": account.CreatedAt,
	})
}
