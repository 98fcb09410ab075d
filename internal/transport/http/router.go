// Package httptransport assembles the HTTP surface: middleware chain, public
// web verification routes, the terminal-key group and the admin group.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bioentry/internal/platform/metrics"
	"bioentry/internal/platform/middleware"
	"bioentry/pkg/platform/httputil"
)

// Registrar mounts a feature's routes on a router.
type Registrar interface {
	Register(r chi.Router)
}

// Handlers carries the per-feature handlers the router mounts.
type Handlers struct {
	Verification interface {
		Registrar
		RegisterTerminal(r chi.Router)
	}
	Admin interface {
		Registrar
		RegisterProtected(r chi.Router)
	}
	Ledger   Registrar
	User     Registrar
	Location Registrar
	Terminal Registrar
}

// Config carries the cross-cutting dependencies of the router.
type Config struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	AdminAuth      middleware.AdminAuthenticator
	TerminalAuth   middleware.TerminalAuthenticator
}

// NewRouter wires the middleware chain and mounts all endpoints. Route
// protection: web verification and admin login are public, kiosk routes
// require the per-terminal API key, management routes require a Bearer
// access token.
func NewRouter(h Handlers, cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(metrics.Middleware)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	h.Verification.Register(r)
	h.Admin.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireTerminalKey(cfg.TerminalAuth, cfg.Logger))
		h.Verification.RegisterTerminal(r)
		h.Terminal.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(cfg.AdminAuth, cfg.Logger))
		h.Admin.RegisterProtected(r)
		h.Ledger.Register(r)
		h.User.Register(r)
		h.Location.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}
