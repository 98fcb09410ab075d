// Package session issues and validates the short-lived credentials that link
// a verification init to its face capture step. A credential binds the
// subject, the intended direction and the geofence outcome computed at init,
// so the capture step enforces policy without re-resolving the position.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bioentry/internal/ledger"
	dErrors "bioentry/pkg/domain-errors"
)

// DefaultTTL bounds how long a capture step may lag its init.
const DefaultTTL = 2 * time.Minute

// Claims are the verification credential claims.
type Claims struct {
	Direction              string `json:"direction"`
	OutOfBounds            bool   `json:"out_of_bounds"`
	LocationName           string `json:"location_name,omitempty"`
	LocationDistanceMeters int    `json:"location_distance_meters"`
	jwt.RegisteredClaims
}

// Issuer creates and validates verification credentials.
type Issuer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithTTL overrides the credential lifetime.
func WithTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithClock sets the clock, for tests.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer creates a credential issuer with an HS256 signing key.
func NewIssuer(signingKey, issuer string, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// TTL returns the configured credential lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a credential for a subject, direction and geofence outcome.
func (i *Issuer) Issue(subjectID string, direction ledger.Direction, outOfBounds bool, locationName string, locationDistance int) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Direction:              string(direction),
		OutOfBounds:            outOfBounds,
		LocationName:           locationName,
		LocationDistanceMeters: locationDistance,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign verification credential")
	}
	return signed, nil
}

// Validate parses a credential and checks it belongs to the given subject.
// A valid token presented with the wrong subject is rejected as forbidden.
func (i *Issuer) Validate(tokenString, subjectID string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session credential expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session credential")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session credential")
	}

	if claims.Subject != subjectID {
		return nil, dErrors.New(dErrors.CodeForbidden, "credential does not match subject")
	}
	return claims, nil
}
