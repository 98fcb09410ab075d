// Package handler exposes ledger queries over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bioentry/internal/ledger"
	"bioentry/internal/policy"
	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/platform/httputil"
)

// Service defines the ledger operations the HTTP layer needs.
type Service interface {
	Query(ctx context.Context, filters ledger.Filters) ([]ledger.Record, error)
	OutOfBoundsStats(ctx context.Context, filters ledger.Filters) (ledger.OutOfBoundsStats, error)
}

// Handler wires record query endpoints to the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a ledger handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts record query endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/records", h.HandleQuery)
	r.Get("/records/stats", h.HandleStats)
}

// HandleQuery handles GET /records requests.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.Query(r.Context(), filters)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "record query failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []ledger.Record{}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"total":   len(records),
		"records": records,
	})
}

// HandleStats handles GET /records/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stats, err := h.service.OutOfBoundsStats(r.Context(), filters)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "record stats failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// parseFilters builds ledger filters from query parameters. Dates accept
// either a bare day (2026-03-10) or a full RFC 3339 timestamp; a bare day
// used as date_to covers the whole day.
func parseFilters(r *http.Request) (ledger.Filters, error) {
	q := r.URL.Query()
	filters := ledger.Filters{
		SubjectID: q.Get("subject_id"),
		CompanyID: q.Get("company_id"),
	}

	if v := q.Get("date_from"); v != "" {
		t, _, err := parseDate(v)
		if err != nil {
			return ledger.Filters{}, dErrors.New(dErrors.CodeBadRequest, "invalid date_from")
		}
		filters.DateFrom = &t
	}
	if v := q.Get("date_to"); v != "" {
		t, dayOnly, err := parseDate(v)
		if err != nil {
			return ledger.Filters{}, dErrors.New(dErrors.CodeBadRequest, "invalid date_to")
		}
		if dayOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		filters.DateTo = &t
	}
	if v := q.Get("direction"); v != "" {
		d, err := ledger.ParseDirection(v)
		if err != nil {
			return ledger.Filters{}, dErrors.New(dErrors.CodeBadRequest, err.Error())
		}
		filters.Direction = &d
	}
	if v := q.Get("out_of_bounds"); v != "" {
		flag, err := strconv.ParseBool(v)
		if err != nil {
			return ledger.Filters{}, dErrors.New(dErrors.CodeBadRequest, "invalid out_of_bounds")
		}
		filters.OutOfBounds = &flag
	}
	if v := q.Get("mobility"); v != "" {
		m, err := policy.ParseMobility(v)
		if err != nil {
			return ledger.Filters{}, dErrors.New(dErrors.CodeBadRequest, err.Error())
		}
		filters.Mobility = &m
	}

	return filters, nil
}

func parseDate(value string) (t time.Time, dayOnly bool, err error) {
	if t, err = time.Parse("2006-01-02", value); err == nil {
		return t, true, nil
	}
	t, err = time.Parse(time.RFC3339, value)
	return t, false, err
}
