package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bioentry/internal/admin"
)

// AdminAuthenticator validates a management access token.
type AdminAuthenticator interface {
	Authenticate(tokenString string) (admin.Identity, error)
}

// TerminalAuthenticator validates a terminal's shared-secret API key.
type TerminalAuthenticator interface {
	Authenticate(terminalID, apiKey string) error
}

type contextKeyIdentity struct{}

// GetIdentity retrieves the authenticated operator from the context.
func GetIdentity(ctx context.Context) (admin.Identity, bool) {
	identity, ok := ctx.Value(contextKeyIdentity{}).(admin.Identity)
	return identity, ok
}

// RequireAdmin guards management routes with a Bearer access token.
func RequireAdmin(auth AdminAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "bearer token required")
				return
			}

			identity, err := auth.Authenticate(token)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected admin token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyIdentity{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTerminalKey guards terminal routes with the X-API-Key header. The
// terminal id is taken from the {terminalID} route parameter when present,
// falling back to the X-Terminal-ID header for routes without one.
func RequireTerminalKey(auth TerminalAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			terminalID := chi.URLParam(r, "terminalID")
			if terminalID == "" {
				terminalID = r.Header.Get("X-Terminal-ID")
			}

			if err := auth.Authenticate(terminalID, r.Header.Get("X-API-Key")); err != nil {
				logger.WarnContext(r.Context(), "rejected terminal key",
					"terminal_id", terminalID,
					"request_id", GetRequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","message":"unknown terminal or invalid api key"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + msg + `"}`))
}
