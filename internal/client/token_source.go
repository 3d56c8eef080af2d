package client

import (
	"errors"

	"golang.org/x/oauth2"

	"sunstock-dashboard/internal/credentials"
)

var errNoAccessToken = errors.New("no access token stored")

type storeTokenSource struct {
	store credentials.Store
}

// TokenSource exposes the stored access token to oauth2-aware transports.
// The token is re-read on every call so refreshes are picked up.
func (c *DashboardClient) TokenSource() oauth2.TokenSource {
	return storeTokenSource{store: c.store}
}

func (s storeTokenSource) Token() (*oauth2.Token, error) {
	access, ok := s.store.Get(credentials.AccessTokenName)
	if !ok {
		return nil, errNoAccessToken
	}
	return credentials.Credential{AccessToken: access}.Token(), nil
}
