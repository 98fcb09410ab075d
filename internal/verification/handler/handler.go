// Package handler exposes the verification flows over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"bioentry/internal/verification"
	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/platform/httputil"
)

// maxUploadBytes bounds the multipart form, probe images included.
const maxUploadBytes = 10 << 20

// Service defines the verification operations the HTTP layer needs.
type Service interface {
	Init(ctx context.Context, in verification.InitInput) (verification.InitResult, error)
	Face(ctx context.Context, in verification.FaceInput) (verification.Result, error)
	Terminal(ctx context.Context, in verification.TerminalInput) (verification.Result, error)
	TerminalAuto(ctx context.Context, in verification.TerminalAutoInput) (verification.Result, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the web verification endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify-web/init", h.HandleInit)
	r.Post("/verify-web/face", h.HandleFace)
}

// RegisterTerminal mounts the kiosk verification endpoints. The caller wraps
// them with the terminal API key middleware.
func (h *Handler) RegisterTerminal(r chi.Router) {
	r.Post("/verify-terminal", h.HandleTerminal)
	r.Post("/verify-terminal/auto", h.HandleTerminalAuto)
}

// HandleInit handles POST /verify-web/init requests. A denied eligibility check
// is not a transport error; the decision body is returned with 403 so the
// client can render the reason.
func (h *Handler) HandleInit(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[verification.InitInput](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Init(r.Context(), *req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "verification init failed",
			"subject_id", req.SubjectID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Valid {
		status = http.StatusForbidden
	}
	httputil.WriteJSON(w, status, result)
}

// HandleFace handles POST /verify-web/face requests.
func (h *Handler) HandleFace(w http.ResponseWriter, r *http.Request) {
	image, ok := h.formImage(w, r)
	if !ok {
		return
	}

	in := verification.FaceInput{
		SubjectID:  r.FormValue("subject_id"),
		Credential: r.FormValue("session_credential"),
		Comment:    r.FormValue("comment"),
		Image:      image,
		UserAgent:  r.UserAgent(),
	}

	ua := useragent.New(in.UserAgent)
	browser, _ := ua.Browser()
	h.logger.InfoContext(r.Context(), "web capture received",
		"subject_id", in.SubjectID,
		"browser", browser,
		"mobile", ua.Mobile(),
	)

	result, err := h.service.Face(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleTerminal handles POST /verify-terminal requests.
func (h *Handler) HandleTerminal(w http.ResponseWriter, r *http.Request) {
	image, ok := h.formImage(w, r)
	if !ok {
		return
	}

	in := verification.TerminalInput{
		SubjectID:  r.FormValue("subject_id"),
		TerminalID: terminalID(r),
		Direction:  r.FormValue("direction"),
		Image:      image,
	}

	result, err := h.service.Terminal(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleTerminalAuto handles POST /verify-terminal/auto requests.
func (h *Handler) HandleTerminalAuto(w http.ResponseWriter, r *http.Request) {
	image, ok := h.formImage(w, r)
	if !ok {
		return
	}

	in := verification.TerminalAutoInput{
		TerminalID: terminalID(r),
		Image:      image,
	}

	result, err := h.service.TerminalAuto(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// formImage parses the multipart form and reads the probe image into memory.
// Any spill files the parser wrote are removed before the handler returns.
func (h *Handler) formImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return nil, false
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, _, err := r.FormFile("image")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "image file is required"))
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read uploaded image", "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "read uploaded image"))
		return nil, false
	}
	return data, true
}

func terminalID(r *http.Request) string {
	if id := r.FormValue("terminal_id"); id != "" {
		return id
	}
	return r.Header.Get("X-Terminal-ID")
}
