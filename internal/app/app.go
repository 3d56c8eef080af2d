package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/profile"
	"sunstock-dashboard/internal/push"
	"sunstock-dashboard/internal/runstatus"
	"sunstock-dashboard/internal/stream"
	"sunstock-dashboard/internal/webpush"
	"sunstock-dashboard/internal/worker"
)

// Dashboard drives one signed-in session: stocks, the live feeds for the
// selected symbol and the push pipeline.
type Dashboard struct {
	opts      config.Options
	api       *client.DashboardClient
	logger    *logging.Logger
	hooks     Callbacks
	status    runtimeStatusState
	watchlist []config.WatchEntry
	now       func() time.Time

	push     *push.Manager
	receiver *webpush.Receiver
	worker   *worker.Worker
	view     *dashboardView

	mu       sync.Mutex
	runCtx   context.Context
	cancel   context.CancelCauseFunc
	stocks   []client.Stock
	symbol   string
	quotes   *stream.QuoteFeed
	alerts   *stream.AlertFeed
	feedOpts stream.Options
}

type Callbacks struct {
	OnStatusChange func(string)
	OnStocks       func([]client.Stock)
	OnSymbol       func(string)
	OnQuotes       func(symbol string, quotes []client.StockQuote)
	OnDaily        func(symbol string, daily []client.StockQuote)
	OnAlerts       func([]stream.Alert)
	OnNews         func(symbol string, news []client.CompanyNews)
	OnStreamState  func(name string, state stream.State)
	OnPushState    func(push.State)
	OnLoginNotice  func()
	// OnNotification shows a worker notification. Without it notifications
	// are only logged.
	OnNotification func(worker.Notification)
	OnOpenURL      func(string) error
	OnFocus        func()
}

// Deps are the collaborators a Dashboard drives. Platform and Profile are
// optional; without them push stays unsupported.
type Deps struct {
	API       *client.DashboardClient
	Platform  *webpush.Platform
	Profile   webpush.SubscriptionStore
	Local     profile.Storage
	Watchlist []config.WatchEntry
}

func New(opts config.Options, deps Deps, logger *logging.Logger, hooks Callbacks) (*Dashboard, error) {
	if deps.API == nil {
		panic("app.New: client must not be nil")
	}
	if logger == nil {
		panic("app.New: logger must not be nil")
	}
	a := &Dashboard{
		opts:      opts,
		api:       deps.API,
		logger:    logger,
		hooks:     hooks,
		watchlist: deps.Watchlist,
		now:       time.Now,
		feedOpts:  stream.Options{PollInterval: opts.PollInterval},
	}
	a.view = &dashboardView{app: a}

	var platform push.Platform
	if deps.Platform != nil && deps.Profile != nil {
		w, err := worker.New(hookNotifier{app: a}, a.view, deps.API.Endpoints().Origin, logger)
		if err != nil {
			return nil, err
		}
		platform = deps.Platform
		a.worker = w
		a.receiver = webpush.NewReceiver(deps.Profile, a.deliverPush, logger)
	}
	a.push = push.NewManager(platform, deps.API, deps.API.Store(), deps.Local, logger)
	a.push.OnStateChange(a.notifyPushState)
	return a, nil
}

func (a *Dashboard) Run() error {
	return a.RunContext(context.Background())
}

// RunContext blocks until ctx is done or the user signs out. Sign-out is
// reported as ErrLoggedOut.
func (a *Dashboard) RunContext(ctx context.Context) error {
	a.logger.Info("dashboard starting",
		logging.Field("base_url", a.api.Endpoints().Origin),
		logging.Field("push_supported", a.push.IsSupported()),
	)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.runCtx = nil
		a.cancel = nil
		a.mu.Unlock()
	}()

	if err := a.ensureSession(ctx); err != nil {
		a.setRuntimeStatus(runstatus.DisconnectedAuth)
		return err
	}
	a.setRuntimeStatus(runstatus.Authenticated)
	if profile.TakeFlag(a.api.SessionStorage(), client.LoginNoticeKey) && a.hooks.OnLoginNotice != nil {
		a.hooks.OnLoginNotice()
	}

	stocks, err := a.loadStocks(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			a.setRuntimeStatus(runstatus.DisconnectedAuth)
			return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		a.setRuntimeStatus(runstatus.Disconnected)
		return fmt.Errorf("failed to load stocks: %w", err)
	}
	a.setRuntimeStatus(runstatus.StocksLoaded)
	a.logger.Info("stocks loaded", logging.Field("count", len(stocks)))

	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	var wg sync.WaitGroup
	a.startPush(ctx, &wg)

	if symbol := a.initialSymbol(stocks); symbol != "" {
		if err := a.SelectSymbol(ctx, symbol); err != nil {
			a.logger.Warn("failed to open initial symbol", logging.Field("symbol", symbol), logging.Field("error", err))
		}
	} else {
		a.logger.Warn("no symbol to open", logging.Field("error", ErrNoStocks))
	}
	wg.Go(func() { a.runQuoteRefreshLoop(ctx) })

	<-ctx.Done()
	a.mu.Lock()
	a.runCtx = nil
	a.mu.Unlock()
	a.stopFeeds()
	wg.Wait()

	cause := context.Cause(ctx)
	if errors.Is(cause, ErrLoggedOut) {
		a.setRuntimeStatus(runstatus.DisconnectedAuth)
		a.logger.Info("dashboard stopped after sign-out")
		return ErrLoggedOut
	}
	a.setRuntimeStatus(runstatus.Disconnected)
	a.logger.Info("dashboard stopped")
	return nil
}

// ensureSession signs in with the configured account when the store holds
// no tokens.
func (a *Dashboard) ensureSession(ctx context.Context) error {
	if a.api.Authenticated() {
		a.logger.Debug("using stored session")
		return nil
	}
	email := strings.TrimSpace(a.opts.Email)
	if email == "" || a.opts.Password == "" {
		return ErrLoginRequired
	}
	a.setRuntimeStatus(runstatus.SigningIn)
	if err := a.api.Login(ctx, email, a.opts.Password); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	return nil
}

// Logout clears the session and stops the dashboard.
func (a *Dashboard) Logout() {
	a.api.Logout()
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel(ErrLoggedOut)
	}
}

func (a *Dashboard) Symbol() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.symbol
}

func (a *Dashboard) Stocks() []client.Stock {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]client.Stock(nil), a.stocks...)
}

func (a *Dashboard) PushState() push.State {
	return a.push.State()
}

type runtimeStatusState struct {
	mu      sync.Mutex
	current string
}

func (s *runtimeStatusState) update(status string) (string, string, bool) {
	trimmed := strings.TrimSpace(status)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == trimmed {
		return s.current, trimmed, false
	}
	previous := s.current
	s.current = trimmed
	return previous, trimmed, true
}

func (s *runtimeStatusState) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (a *Dashboard) Status() string {
	return a.status.get()
}

func (a *Dashboard) notifyStatus(status string) {
	if a.hooks.OnStatusChange == nil {
		return
	}
	a.hooks.OnStatusChange(status)
}

func (a *Dashboard) setRuntimeStatus(status string) {
	previous, next, changed := a.status.update(status)
	if !changed {
		return
	}
	a.logger.Debug("runtime status transition",
		logging.Field("from", previous),
		logging.Field("to", next),
	)
	a.notifyStatus(status)
}
