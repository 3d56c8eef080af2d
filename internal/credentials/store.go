// Package credentials persists the bearer token pair used by the API client.
package credentials

import "time"

const (
	AccessTokenName  = "access_token"
	RefreshTokenName = "refresh_token"
)

// RefreshTokenMaxAge is the fixed lifetime given to a refresh token.
const RefreshTokenMaxAge = 30 * 24 * time.Hour

// Store is a name/value credential jar. Absence is reported through the
// boolean and is never an error.
type Store interface {
	// Set stores value under name. A nil maxAge keeps the entry for the
	// lifetime of the store.
	Set(name, value string, maxAge *time.Duration)
	Get(name string) (string, bool)
	Clear(name string)
}

// MaxAge is a convenience for building the optional lifetime argument.
func MaxAge(d time.Duration) *time.Duration {
	return &d
}
