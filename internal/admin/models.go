// Package admin authenticates operators of the management API. Access tokens
// are short-lived JWTs; refresh tokens are opaque, single-use and rotated on
// every refresh.
package admin

import "time"

// Account is an operator login.
type Account struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresInSeconds int    `json:"expires_in"`
}

// RefreshRecord tracks one issued refresh token.
type RefreshRecord struct {
	Token     string
	Username  string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Identity is the authenticated principal extracted from an access token.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}
