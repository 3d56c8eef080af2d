package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"sunstock-dashboard/internal/credentials"
	"sunstock-dashboard/internal/logging"
)

var ErrMissingAccessToken = errors.New("login response carried no access token")

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges email/password for a token pair and stores it. The refresh
// cookie is session scoped until the first refresh rotates it.
func (c *DashboardClient) Login(ctx context.Context, email, password string) error {
	resp, err := DoJSON[Envelope[*credentials.Credential]](ctx, c, http.MethodPost, c.endpoints.LoginURL, loginRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
	if err != nil {
		return err
	}
	if resp.Data == nil || strings.TrimSpace(resp.Data.AccessToken) == "" {
		return ErrMissingAccessToken
	}
	credentials.Save(c.store, *resp.Data, credentials.SaveOptions{SessionRefresh: true})
	_ = c.session.SetItem(LoginNoticeKey, "1")
	c.logger.Info("signed in", logging.Field("email", strings.TrimSpace(email)))
	return nil
}

// Logout forgets both tokens. It does not contact the server.
func (c *DashboardClient) Logout() {
	credentials.Clear(c.store)
	c.logger.Info("signed out")
}

// Authenticated reports whether a token of either kind is stored.
func (c *DashboardClient) Authenticated() bool {
	return credentials.Authenticated(c.store)
}
