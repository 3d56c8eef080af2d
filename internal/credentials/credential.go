package credentials

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Credential is the token payload returned by login and refresh.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// Token converts c for use with oauth2 transports.
func (c Credential) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
	}
	if c.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(c.ExpiresIn) * time.Second)
	}
	return tok
}

// SaveOptions tunes how Save stamps lifetimes.
type SaveOptions struct {
	// SessionRefresh leaves the refresh cookie without a max age, as the
	// login flow does; otherwise it gets RefreshTokenMaxAge.
	SessionRefresh bool
}

// Save writes the access token and, when present, the refresh token.
func Save(store Store, c Credential, opts SaveOptions) {
	access := strings.TrimSpace(c.AccessToken)
	if access == "" {
		return
	}
	store.Set(AccessTokenName, access, AccessTokenMaxAge(c))

	refresh := strings.TrimSpace(c.RefreshToken)
	if refresh == "" {
		return
	}
	if opts.SessionRefresh {
		store.Set(RefreshTokenName, refresh, nil)
		return
	}
	store.Set(RefreshTokenName, refresh, MaxAge(RefreshTokenMaxAge))
}

// Clear drops both tokens.
func Clear(store Store) {
	store.Clear(AccessTokenName)
	store.Clear(RefreshTokenName)
}

// Authenticated reports whether either token is present.
func Authenticated(store Store) bool {
	if _, ok := store.Get(AccessTokenName); ok {
		return true
	}
	_, ok := store.Get(RefreshTokenName)
	return ok
}

// AccessTokenMaxAge prefers the server supplied expires_in and falls back to
// the exp claim when the token is a JWT. Nil means session scoped.
func AccessTokenMaxAge(c Credential) *time.Duration {
	if c.ExpiresIn > 0 {
		return MaxAge(time.Duration(c.ExpiresIn) * time.Second)
	}
	exp, ok := tokenExpiry(c.AccessToken)
	if !ok {
		return nil
	}
	remaining := time.Until(exp).Truncate(time.Second)
	if remaining <= 0 {
		return nil
	}
	return MaxAge(remaining)
}

// tokenExpiry reads exp without verifying the signature. The client has no
// key material and only uses the claim to size the cookie.
func tokenExpiry(raw string) (time.Time, bool) {
	if strings.Count(raw, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
