package headless

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"sunstock-dashboard/internal/app"
	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/push"
	"sunstock-dashboard/internal/runstatus"
	"sunstock-dashboard/internal/runtime"
	"sunstock-dashboard/internal/stream"
	"sunstock-dashboard/internal/ui/headless/health"
	headlessview "sunstock-dashboard/internal/ui/headless/view"
	"sunstock-dashboard/internal/webpush"
	"sunstock-dashboard/internal/worker"
)

func (m *headlessModel) currentOptions() config.Options {
	opts := m.opts
	baseURL, email, password := m.ui.Credentials()
	if baseURL != "" {
		opts.BaseURL = baseURL
	}
	opts.Email = email
	opts.Password = password
	opts.Debug = m.ui.DebugOn
	if m.symbol != "" {
		opts.Symbol = m.symbol
	}
	return config.ApplyDefaults(opts)
}

// startDashboardCmd starts the dashboard runtime. The automatic start at
// launch relies on a stored session when no credentials were given.
func (m *headlessModel) startDashboardCmd(auto bool) tea.Cmd {
	if m.running || m.connecting {
		return nil
	}
	opts := m.currentOptions()
	if err := config.ValidateRequired(opts); err != nil {
		m.ui.ErrorModalText = m.startErrorText(auto, err.Error())
		return nil
	}

	m.connecting = true
	m.status = "Connecting..."
	m.kind = statusConnecting
	m.ui.ErrorModalText = ""
	m.ui = m.ui.WithPasswordCleared()

	hooks := m.startHooks()
	return func() tea.Msg {
		return startResultMsg{err: m.runner.Start(opts, m.logger, hooks)}
	}
}

func (m *headlessModel) startHooks() runtime.StartHooks {
	return runtime.StartHooks{
		Callbacks: app.Callbacks{
			OnStatusChange: m.onRuntimeStatus,
			OnStocks: func(stocks []client.Stock) {
				m.send(stocksMsg(stocks))
			},
			OnSymbol: func(symbol string) {
				m.send(symbolMsg(symbol))
			},
			OnQuotes: func(symbol string, quotes []client.StockQuote) {
				m.send(quotesMsg{symbol: symbol, quotes: quotes})
			},
			OnDaily: func(symbol string, daily []client.StockQuote) {
				m.send(dailyMsg{symbol: symbol, daily: daily})
			},
			OnAlerts: func(alerts []stream.Alert) {
				m.send(alertsMsg(alerts))
			},
			OnNews: func(symbol string, news []client.CompanyNews) {
				m.send(newsMsg{symbol: symbol, news: news})
			},
			OnStreamState: func(name string, state stream.State) {
				m.send(streamStateMsg{name: name, state: state, at: time.Now()})
			},
			OnPushState: func(state push.State) {
				m.send(pushStateMsg(state))
			},
			OnLoginNotice: func() {
				m.send(loginNoticeMsg{})
			},
			OnNotification: func(n worker.Notification) {
				m.send(notificationMsg(n))
			},
			OnOpenURL: openExternalURL,
			OnFocus: func() {
				m.send(focusMsg{})
			},
		},
		Prompter: webpush.PrompterFunc(m.promptPermission),
		OnExit:   m.onRuntimeExit,
	}
}

func (m *headlessModel) onRuntimeStatus(status string) {
	select {
	case m.statusCh <- status:
	default:
		select {
		case <-m.statusCh:
		default:
		}
		m.statusCh <- status
	}
}

func (m *headlessModel) onRuntimeExit(runErr error) {
	m.send(runDoneMsg{err: runErr})
}

// promptPermission blocks until the permission dialog is answered.
func (m *headlessModel) promptPermission(ctx context.Context) (push.Permission, error) {
	if m.program == nil {
		return push.PermissionDefault, nil
	}
	reply := make(chan push.Permission, 1)
	m.send(permissionRequestMsg{reply: reply})
	select {
	case answer := <-reply:
		return answer, nil
	case <-ctx.Done():
		return push.PermissionDefault, ctx.Err()
	}
}

func (m *headlessModel) answerPermission() {
	if m.permissionReply == nil {
		return
	}
	answer := push.PermissionDenied
	if m.ui.PermissionChoice == headlessview.PermissionChoiceAllow {
		answer = push.PermissionGranted
	}
	m.permissionReply <- answer
	m.permissionReply = nil
}

func (m *headlessModel) applyRuntimeStatus(status string) {
	switch runstatus.Key(status) {
	case runstatus.KeySigningIn:
		m.status = runstatus.SigningIn
		m.kind = statusConnecting
	case runstatus.KeyAuthenticated:
		m.status = runstatus.Authenticated
		m.kind = statusConnecting
	case runstatus.KeyStocksLoaded:
		m.status = runstatus.StocksLoaded
		m.kind = statusConnecting
		m.running = true
		m.connecting = false
	case runstatus.KeyConnected:
		m.status = runstatus.Connected
		m.kind = statusConnected
		m.running = true
		m.connecting = false
	case runstatus.KeyReconnecting:
		m.status = runstatus.Reconnecting
		m.kind = statusConnecting
	case runstatus.KeyDisconnected:
		m.status = runstatus.Disconnected
		m.kind = statusIdle
		m.connecting = false
	case runstatus.KeyDisconnectedAuth:
		m.status = runstatus.DisconnectedAuth
		m.kind = statusError
		m.connecting = false
	default:
		m.status = status
	}
}

func (m *headlessModel) applyRunDone(err error) {
	m.running = false
	m.connecting = false
	m.pushState = ""
	m.feeds = map[string]health.Feed{}
	m.refreshFeedHealth()
	switch {
	case err == nil:
		m.status = runstatus.Disconnected
		m.kind = statusIdle
	case errors.Is(err, app.ErrLoggedOut):
		m.clearDashboardData()
		m.status = runstatus.DisconnectedAuth
		m.kind = statusIdle
		m.ui.NoticeText = "You have been signed out."
		m.showAccountTab()
	case errors.Is(err, app.ErrLoginRequired):
		m.status = "Sign in required"
		m.kind = statusIdle
		m.showAccountTab()
	default:
		m.status = "Disconnected (error)"
		m.kind = statusError
		m.ui.ErrorModalText = err.Error()
		if errors.Is(err, app.ErrAuthenticationFailed) {
			m.showAccountTab()
		}
	}
}

func (m *headlessModel) showAccountTab() {
	m.ui.Tab = headlessview.TabAccount
	m.ui.Focus = headlessview.EmailInputIndex
	if _, email, _ := m.ui.Credentials(); email != "" {
		m.ui.Focus = headlessview.PasswordInputIndex
	}
	m.ui.ApplyFocus()
}

func (m *headlessModel) clearDashboardData() {
	m.stocks = nil
	m.symbol = ""
	m.quotes = nil
	m.daily = nil
	m.alerts = nil
	m.news = nil
	m.lastNotification = nil
	m.ui = m.ui.WithCursor(0, 0)
}

func (m *headlessModel) startErrorText(auto bool, message string) string {
	if !auto {
		return message
	}
	return "Couldn't start the dashboard: " + message
}

func (m *headlessModel) applySymbol(symbol string) {
	if strings.EqualFold(symbol, m.symbol) {
		return
	}
	m.symbol = symbol
	m.quotes = nil
	m.daily = nil
	m.news = nil
	if i := m.stockIndex(symbol); i >= 0 {
		m.ui = m.ui.WithCursor(i, len(m.stocks))
	}
	m.rememberSymbol(symbol)
}

func (m *headlessModel) stockIndex(symbol string) int {
	return slices.IndexFunc(m.stocks, func(s client.Stock) bool {
		return strings.EqualFold(s.Symbol, symbol)
	})
}

func (m *headlessModel) rememberSymbol(symbol string) {
	settings, err := config.LoadSettings()
	if err != nil {
		settings = config.SettingsFromOptions(m.opts)
	}
	if settings.LastSymbol == symbol {
		return
	}
	settings.LastSymbol = symbol
	if err := config.SaveSettings(settings); err != nil {
		m.logger.Warn("failed to persist last symbol", logging.Field("symbol", symbol), logging.Field("error", err))
	}
}

func (m *headlessModel) applyStreamState(msg streamStateMsg) {
	feed := m.feeds[msg.name]
	feed.Name = msg.name
	feed.State = msg.state
	if msg.state == stream.StateOpen && feed.LastMessage.IsZero() {
		feed.LastMessage = msg.at
	}
	m.feeds[msg.name] = feed
	m.refreshFeedHealth()
}

func (m *headlessModel) touchFeed(name string) {
	feed, ok := m.feeds[name]
	if !ok {
		feed = health.Feed{Name: name, State: stream.StateIdle}
	}
	feed.LastMessage = time.Now()
	m.feeds[name] = feed
}

func (m *headlessModel) refreshFeedHealth() {
	m.lastHealthRefresh = time.Now()
	feeds := make([]health.Feed, 0, len(m.feeds))
	for _, feed := range m.feeds {
		feeds = append(feeds, feed)
	}
	slices.SortFunc(feeds, func(a, b health.Feed) int {
		return strings.Compare(a.Name, b.Name)
	})
	m.feedRows = health.Compute(feeds, m.lastHealthRefresh)
}

func (m *headlessModel) cleanup() {
	m.cleanupOnce.Do(func() {
		m.logger.Debug("headless cleanup started")

		if m.permissionReply != nil {
			m.permissionReply <- push.PermissionDefault
			m.permissionReply = nil
		}

		if m.rootCancel != nil {
			m.logger.Debug("canceling headless root context")
			m.rootCancel()
		}

		if m.unsubscribe != nil {
			m.logger.Debug("unsubscribing headless log listener")
			m.unsubscribe()
		}

		m.logger.Debug("stopping runtime controller")
		if !m.runner.StopAndWait(shutdownTimeout) {
			m.logger.Warn("runtime controller did not stop in time")
		}

		m.logger.Debug("headless cleanup complete")
	})
}
