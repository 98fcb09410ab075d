package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"bioentry/internal/admin"
	"bioentry/internal/platform/middleware"
	"bioentry/pkg/testutil"
)

// The handler suite runs against the real admin service so login, refresh
// rotation and the auth middleware are exercised together.
type AdminHandlerSuite struct {
	suite.Suite
	service *admin.Service
	router  chi.Router
}

func (s *AdminHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = admin.NewService(admin.NewMemoryStore(), []byte("test-signing-key"), "bioentry-test", logger)
	require.NoError(s.T(), s.service.Seed(context.Background(), "admin", "hunter2"))

	h := New(s.service, logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(s.service, logger))
		h.RegisterProtected(r)
	})
}

func (s *AdminHandlerSuite) login() admin.TokenPair {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/auth/login",
		map[string]string{"username": "admin", "password": "hunter2"})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusOK(s.T(), rr)
	return *testutil.UnmarshalResponse[admin.TokenPair](s.T(), rr)
}

func (s *AdminHandlerSuite) TestLogin() {
	pair := s.login()
	s.NotEmpty(pair.AccessToken)
	s.NotEmpty(pair.RefreshToken)
	s.Equal("Bearer", pair.TokenType)
	s.Positive(pair.ExpiresInSeconds)
}

func (s *AdminHandlerSuite) TestLoginWrongPassword() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/auth/login",
		map[string]string{"username": "admin", "password": "wrong"})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *AdminHandlerSuite) TestRefreshRotates() {
	pair := s.login()

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/auth/refresh",
		map[string]string{"refresh_token": pair.RefreshToken})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	next := testutil.UnmarshalResponse[admin.TokenPair](s.T(), rr)
	s.NotEqual(pair.RefreshToken, next.RefreshToken)

	// The consumed token cannot be replayed.
	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/auth/refresh",
		map[string]string{"refresh_token": pair.RefreshToken}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *AdminHandlerSuite) TestLogoutIsIdempotent() {
	pair := s.login()

	for range 2 {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/auth/logout",
			map[string]string{"refresh_token": pair.RefreshToken})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	}

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/auth/refresh",
		map[string]string{"refresh_token": pair.RefreshToken}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *AdminHandlerSuite) TestMe() {
	pair := s.login()

	req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/auth/me")
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "username", "admin")
	testutil.AssertJSONContains(s.T(), rr, "role", "admin")
}

func (s *AdminHandlerSuite) TestMeWithoutToken() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/auth/me"))
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *AdminHandlerSuite) TestMeWithGarbageToken() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/auth/me")
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func TestExpiredAccessTokenRejectedByMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	service := admin.NewService(admin.NewMemoryStore(), []byte("test-signing-key"), "bioentry-test", logger,
		admin.WithClock(func() time.Time { return current }))
	require.NoError(t, service.Seed(context.Background(), "admin", "hunter2"))

	pair, err := service.Login(context.Background(), "admin", "hunter2")
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(service, logger))
		New(service, logger).RegisterProtected(r)
	})

	current = current.Add(time.Hour)

	req := testutil.NewRequest(t, http.MethodGet, "/admin/auth/me")
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}
