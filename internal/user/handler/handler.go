// Package handler exposes user registration and profile management over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bioentry/internal/location"
	"bioentry/internal/terminal"
	"bioentry/internal/user"
	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/platform/httputil"
)

const maxUploadBytes = 10 << 20

// Service defines the user operations the HTTP layer needs.
type Service interface {
	Register(ctx context.Context, in user.RegisterInput) (user.User, error)
	Get(ctx context.Context, subjectID string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	UpdateMobility(ctx context.Context, subjectID, mobility string) (user.User, error)
	SetActive(ctx context.Context, subjectID string, active bool) (user.User, error)
}

// Gallery stores reference images keyed by subject id.
type Gallery interface {
	Save(subjectID string, data []byte) error
	Has(subjectID string) bool
}

// Locations manages the geofence profile for a subject.
type Locations interface {
	Create(ctx context.Context, profile location.Profile) error
	Get(ctx context.Context, subjectID string) (location.Profile, error)
}

// Enrollment queues kiosk enrollment requests for newly registered subjects.
type Enrollment interface {
	CreateRequest(ctx context.Context, subjectID, name, terminalID string) (terminal.EnrollmentRequest, error)
}

// Handler wires user endpoints to the user service and its collaborators.
type Handler struct {
	service    Service
	gallery    Gallery
	locations  Locations
	enrollment Enrollment
	logger     *slog.Logger
}

// New constructs a user handler with its dependencies.
func New(service Service, gallery Gallery, locations Locations, enrollment Enrollment, logger *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		gallery:    gallery,
		locations:  locations,
		enrollment: enrollment,
		logger:     logger,
	}
}

// Register mounts user endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register-user", h.HandleRegister)
	r.Get("/users", h.HandleList)
	r.Get("/user-profile/{subjectID}", h.HandleProfile)
	r.Put("/user-profile/{subjectID}", h.HandleUpdateProfile)
}

type registerResponse struct {
	User              user.User `json:"user"`
	ReferenceStored   bool      `json:"reference_stored"`
	EnrollmentRequest string    `json:"enrollment_request_id,omitempty"`
}

// HandleRegister handles POST /register-user requests. Registration creates
// the user, stores the reference image and the initial geofence, and queues a
// kiosk enrollment request when a terminal id is given.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	fence, err := parseFence(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	image, err := formImage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	u, err := h.service.Register(r.Context(), user.RegisterInput{
		SubjectID: r.FormValue("subject_id"),
		Name:      r.FormValue("name"),
		CompanyID: r.FormValue("company_id"),
		Email:     r.FormValue("email"),
		Phone:     r.FormValue("phone"),
		Mobility:  r.FormValue("mobility"),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := registerResponse{User: u}

	if err := h.gallery.Save(u.SubjectID, image); err != nil {
		// The user exists without a reference image; verification will
		// reject them until one is registered.
		h.logger.ErrorContext(r.Context(), "failed to store reference image",
			"subject_id", u.SubjectID, "error", err)
	} else {
		resp.ReferenceStored = true
	}

	profile := location.Profile{
		SubjectID:   u.SubjectID,
		DisplayName: u.Name,
		Geofences:   []location.Geofence{fence},
	}
	if err := h.locations.Create(r.Context(), profile); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to store location profile",
			"subject_id", u.SubjectID, "error", err)
	}

	if terminalID := r.FormValue("terminal_id"); terminalID != "" {
		request, err := h.enrollment.CreateRequest(r.Context(), u.SubjectID, u.Name, terminalID)
		if err != nil {
			h.logger.WarnContext(r.Context(), "failed to queue enrollment request",
				"subject_id", u.SubjectID, "terminal_id", terminalID, "error", err)
		} else {
			resp.EnrollmentRequest = request.ID
		}
	}

	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// HandleList handles GET /users requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if users == nil {
		users = []user.User{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"total": len(users),
		"users": users,
	})
}

type profileResponse struct {
	user.User
	Geofences         []location.Geofence `json:"geofences"`
	HasReferenceImage bool                `json:"has_reference_image"`
}

// HandleProfile handles GET /user-profile/{subjectID} requests. The response
// combines the directory record with the subject's geofences; a subject with
// no location profile yet reports an empty fence list.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	u, err := h.service.Get(r.Context(), subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	fences := []location.Geofence{}
	if profile, err := h.locations.Get(r.Context(), subjectID); err == nil {
		fences = profile.Geofences
	}

	httputil.WriteJSON(w, http.StatusOK, profileResponse{
		User:              u,
		Geofences:         fences,
		HasReferenceImage: h.gallery.Has(subjectID),
	})
}

type updateProfileRequest struct {
	Mobility *string `json:"mobility"`
	Active   *bool   `json:"active"`
}

// HandleUpdateProfile handles PUT /user-profile/{subjectID} requests. Either
// field may be supplied; omitted fields are left unchanged.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[updateProfileRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Mobility == nil && req.Active == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "nothing to update"))
		return
	}

	subjectID := chi.URLParam(r, "subjectID")
	u, err := h.service.Get(r.Context(), subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if req.Mobility != nil {
		if u, err = h.service.UpdateMobility(r.Context(), subjectID, *req.Mobility); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if req.Active != nil {
		if u, err = h.service.SetActive(r.Context(), subjectID, *req.Active); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// parseFence reads the initial geofence fields from the registration form.
func parseFence(r *http.Request) (location.Geofence, error) {
	lat, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
	if err != nil {
		return location.Geofence{}, dErrors.New(dErrors.CodeBadRequest, "latitude is required")
	}
	lng, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if err != nil {
		return location.Geofence{}, dErrors.New(dErrors.CodeBadRequest, "longitude is required")
	}

	fence := location.Geofence{
		Latitude:     lat,
		Longitude:    lng,
		RadiusMeters: location.DefaultRadiusMeters,
		Name:         location.DefaultFenceName,
	}
	if v := r.FormValue("radius_meters"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			return location.Geofence{}, dErrors.New(dErrors.CodeBadRequest, "invalid radius_meters")
		}
		fence.RadiusMeters = radius
	}
	if v := r.FormValue("location_name"); v != "" {
		fence.Name = v
	}
	return fence, nil
}

func formImage(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "image file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read uploaded image")
	}
	return data, nil
}
