package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "bioentry/pkg/domain-errors"
	"bioentry/pkg/platform/sentinel"
)

const (
	// DefaultAccessTTL bounds how long a management API token is honored.
	DefaultAccessTTL = 30 * time.Minute
	// DefaultRefreshTTL bounds how long an operator session can be renewed
	// without logging in again.
	DefaultRefreshTTL = 7 * 24 * time.Hour

	roleAdmin = "admin"
)

// accessClaims is the JWT payload of a management access token.
type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service owns operator authentication for the management API.
type Service struct {
	store      Store
	signingKey []byte
	issuer     string
	logger     *slog.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock sets the clock, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates an admin auth Service.
func NewService(store Store, signingKey []byte, issuer string, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		signingKey: signingKey,
		issuer:     issuer,
		logger:     logger,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Seed ensures an operator account exists. Existing accounts are left
// untouched so a redeploy cannot silently reset a changed password.
func (s *Service) Seed(ctx context.Context, username, password string) error {
	_, err := s.store.GetAccount(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "check operator account")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	account := Account{Username: username, PasswordHash: hash, CreatedAt: s.now().UTC()}
	if err := s.store.PutAccount(ctx, account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store operator account")
	}
	s.logger.InfoContext(ctx, "operator account seeded", "username", username)
	return nil
}

// Login verifies credentials and issues a token pair. Unknown usernames and
// wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	account, err := s.store.GetAccount(ctx, username)
	if errors.Is(err, sentinel.ErrNotFound) {
		return TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err != nil {
		return TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "get operator account")
	}
	if err := verifyPassword(password, account.PasswordHash); err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(ctx, account.Username)
}

// Refresh rotates a refresh token: the presented token is consumed and a
// fresh pair is issued. A reused or expired token is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	record, err := s.store.GetRefresh(ctx, refreshToken)
	if errors.Is(err, sentinel.ErrNotFound) {
		return TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "unknown refresh token")
	}
	if err != nil {
		return TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "get refresh token")
	}
	if record.Used {
		return TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "refresh token already used")
	}
	if s.now().After(record.ExpiresAt) {
		return TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "refresh token expired")
	}

	record.Used = true
	if err := s.store.PutRefresh(ctx, record); err != nil {
		return TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "consume refresh token")
	}
	return s.issuePair(ctx, record.Username)
}

// Logout invalidates a refresh token. Already-invalid tokens are a no-op so
// logout is idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.store.DeleteRefresh(ctx, refreshToken); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete refresh token")
	}
	return nil
}

// Authenticate validates a management access token and returns its principal.
func (s *Service) Authenticate(tokenString string) (Identity, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "access token expired")
		}
		return Identity{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid access token")
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid access token")
	}
	return Identity{Username: claims.Subject, Role: claims.Role}, nil
}

// Me returns the account behind an authenticated identity.
func (s *Service) Me(ctx context.Context, username string) (Account, error) {
	account, err := s.store.GetAccount(ctx, username)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Account{}, dErrors.New(dErrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return Account{}, dErrors.Wrap(err, dErrors.CodeInternal, "get operator account")
	}
	return account, nil
}

func (s *Service) issuePair(ctx context.Context, username string) (TokenPair, error) {
	now := s.now()
	claims := accessClaims{
		Role: roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			ID:        uuid.NewString(),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "sign access token")
	}

	refresh, err := generateToken()
	if err != nil {
		return TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate refresh token")
	}
	record := RefreshRecord{
		Token:     refresh,
		Username:  username,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.store.PutRefresh(ctx, record); err != nil {
		return TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "store refresh token")
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresInSeconds: int(s.accessTTL.Seconds()),
	}, nil
}
