// Package client talks to the dashboard HTTP API on behalf of a signed-in
// user. Every call carries a correlation id and the stored bearer token, and
// a rejected token triggers one coalesced refresh followed by one retry.
package client

import (
	"net/http"
	"time"

	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/credentials"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/profile"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxResponseBytes   = 1 << 20
)

// LoginNoticeKey is the session flag that asks the UI to show a one-time
// post-login notice.
const LoginNoticeKey = "show_login_success_popup"

type DashboardClient struct {
	http      *http.Client
	endpoints config.Endpoints
	store     credentials.Store
	session   profile.Storage
	logger    *logging.Logger
	refresher *refresher
	newID     func() string
}

func New(httpClient *http.Client, endpoints config.Endpoints, store credentials.Store, logger *logging.Logger) *DashboardClient {
	if logger == nil {
		panic("client.New: logger must not be nil")
	}
	if store == nil {
		panic("client.New: credential store must not be nil")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	c := &DashboardClient{
		http:      httpClient,
		endpoints: endpoints,
		store:     store,
		session:   profile.NewSessionStorage(),
		logger:    logger.With(logging.Field("component", "api")),
		newID:     NewCorrelationID,
	}
	c.refresher = newRefresher(c)
	return c
}

// WithSessionStorage replaces the session-scoped storage used for one-time
// UI flags.
func (c *DashboardClient) WithSessionStorage(s profile.Storage) *DashboardClient {
	if s != nil {
		c.session = s
	}
	return c
}

func (c *DashboardClient) Endpoints() config.Endpoints {
	return c.endpoints
}

func (c *DashboardClient) Store() credentials.Store {
	return c.store
}

func (c *DashboardClient) SessionStorage() profile.Storage {
	return c.session
}
