package runtime

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"sunstock-dashboard/internal/app"
	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/credentials"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/profile"
	"sunstock-dashboard/internal/webpush"
)

const defaultHTTPTimeout = 10 * time.Second

type Service interface {
	RunContext(ctx context.Context) error
}

// DashboardService owns the profile database for the lifetime of one
// dashboard run.
type DashboardService struct {
	dashboard *app.Dashboard
	db        *profile.DB
	logger    *logging.Logger
}

func (s *DashboardService) RunContext(ctx context.Context) error {
	defer func() {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("failed to close profile", logging.Field("error", err))
		}
	}()
	return s.dashboard.RunContext(ctx)
}

func (s *DashboardService) Dashboard() *app.Dashboard {
	return s.dashboard
}

func NewService(opts config.Options, version string, logger *logging.Logger) (*DashboardService, error) {
	return NewServiceWithHooks(opts, version, logger, StartHooks{})
}

func NewServiceWithHooks(opts config.Options, version string, logger *logging.Logger, hooks StartHooks) (*DashboardService, error) {
	if logger == nil {
		panic("runtime.NewServiceWithHooks: logger must not be nil")
	}
	if err := config.ValidateRequired(opts); err != nil {
		return nil, err
	}

	endpoints, err := config.BuildEndpoints(opts.BaseURL, opts.APIBaseURL)
	if err != nil {
		return nil, err
	}
	logger.Debug("constructed API endpoints",
		logging.Field("origin", endpoints.Origin),
		logging.Field("api_base", endpoints.APIBase),
		logging.Field("quotes_ws_url", endpoints.QuotesWSURL),
		logging.Field("alerts_ws_url", endpoints.AlertsWSURL),
		logging.Field("subscriptions_url", endpoints.SubscriptionsURL),
	)

	db, err := openProfile(opts)
	if err != nil {
		return nil, err
	}

	watchlist, err := config.LoadWatchlist(opts.Watchlist)
	if err != nil {
		logger.Warn("ignoring watchlist", logging.Field("path", opts.Watchlist), logging.Field("error", err))
		watchlist = nil
	}

	httpClient := &http.Client{Timeout: defaultHTTPTimeout}
	store := credentials.NewCookieStore(endpoints.Origin, db)
	api := client.New(httpClient, endpoints, store, logger)

	platform := webpush.NewPlatform(db, db.Local(), pushBaseURL(opts.PushListen), version, logger)
	if hooks.Prompter != nil {
		platform.SetPrompter(hooks.Prompter)
	}

	dashboard, err := app.New(opts, app.Deps{
		API:       api,
		Platform:  platform,
		Profile:   db,
		Local:     db.Local(),
		Watchlist: watchlist,
	}, logger, hooks.Callbacks)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DashboardService{dashboard: dashboard, db: db, logger: logger}, nil
}

// ClearStoredSession forgets the tokens kept in the profile without
// starting the dashboard.
func ClearStoredSession(opts config.Options, logger *logging.Logger) error {
	endpoints, err := config.BuildEndpoints(opts.BaseURL, opts.APIBaseURL)
	if err != nil {
		return err
	}
	db, err := openProfile(opts)
	if err != nil {
		return err
	}
	defer db.Close()
	credentials.Clear(credentials.NewCookieStore(endpoints.Origin, db))
	logger.Info("stored session cleared", logging.Field("origin", endpoints.Origin))
	return nil
}

func openProfile(opts config.Options) (*profile.DB, error) {
	dir := strings.TrimSpace(opts.ProfileDir)
	if dir == "" {
		var err error
		if dir, err = profile.DefaultDir(); err != nil {
			return nil, err
		}
	}
	return profile.Open(context.Background(), dir)
}

// pushBaseURL is the address push senders reach the local receiver on.
// Wildcard listeners are advertised on loopback.
func pushBaseURL(listen string) string {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return ""
	}
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
