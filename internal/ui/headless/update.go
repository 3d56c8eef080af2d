package headless

import (
	"errors"
	"strings"
	"time"

	"sunstock-dashboard/internal/app"
	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/push"
	"sunstock-dashboard/internal/ui/headless/health"
	headlessview "sunstock-dashboard/internal/ui/headless/view"
	"sunstock-dashboard/internal/worker"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *headlessModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		if _, ok := msg.(quitNowMsg); ok {
			m.cleanup()
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ui = m.ui.WithWindowSize(msg.Width, msg.Height)
		m.ui.ResizeLogs(nonLogLayoutReserveMin, minLogPanelHeight)
		headlessview.ResizePaneViewports(&m.ui, m.runtimeView())
		return m, nil
	case logMsg:
		line := string(msg)
		wasAtBottom := m.ui.LogView.AtBottom()
		m.ui.LogText = appendLogLinesWithLimit(m.ui.LogText, line, headlessLogLineLimit)
		m.ui.SetLogViewportContent()
		if m.ui.FollowLogs || wasAtBottom {
			m.ui.LogView.GotoBottom()
			m.ui.FollowLogs = true
		}
		return m, waitForLog(m.logCh)
	case statusMsg:
		m.applyRuntimeStatus(string(msg))
		return m, waitForStatus(m.statusCh)
	case startResultMsg:
		if msg.err != nil {
			m.connecting = false
			m.status = "Disconnected (error)"
			m.kind = statusError
			m.ui.ErrorModalText = msg.err.Error()
		}
		return m, nil
	case runDoneMsg:
		m.applyRunDone(msg.err)
		return m, nil
	case stocksMsg:
		m.stocks = append(m.stocks[:0:0], msg...)
		if i := m.stockIndex(m.symbol); i >= 0 {
			m.ui = m.ui.WithCursor(i, len(m.stocks))
		} else {
			m.ui = m.ui.WithCursor(m.ui.Cursor, len(m.stocks))
		}
		headlessview.ResizePaneViewports(&m.ui, m.runtimeView())
		return m, nil
	case symbolMsg:
		m.applySymbol(string(msg))
		return m, nil
	case quotesMsg:
		if strings.EqualFold(msg.symbol, m.symbol) {
			m.quotes = msg.quotes
			m.touchFeed("quotes")
		}
		return m, nil
	case dailyMsg:
		if strings.EqualFold(msg.symbol, m.symbol) {
			m.daily = msg.daily
		}
		return m, nil
	case newsMsg:
		if strings.EqualFold(msg.symbol, m.symbol) {
			m.news = msg.news
		}
		return m, nil
	case alertsMsg:
		m.alerts = msg
		m.touchFeed("alerts")
		return m, nil
	case streamStateMsg:
		m.applyStreamState(msg)
		return m, nil
	case pushStateMsg:
		m.pushState = push.State(msg)
		return m, nil
	case pushResultMsg:
		m.applyPushResult(msg)
		return m, nil
	case permissionRequestMsg:
		if m.permissionReply != nil {
			msg.reply <- push.PermissionDefault
			return m, nil
		}
		m.permissionReply = msg.reply
		m.ui = m.ui.OpenPermissionPrompt()
		return m, nil
	case loginNoticeMsg:
		m.ui.NoticeText = "Signed in successfully."
		m.lastNotification = nil
		return m, nil
	case notificationMsg:
		n := worker.Notification(msg)
		m.lastNotification = &n
		m.ui.NoticeText = notificationText(n)
		return m, nil
	case focusMsg:
		m.ui.Tab = headlessview.TabDashboard
		m.ui.Focus = m.ui.SymbolsIndex()
		m.ui.ApplyFocus()
		return m, nil
	case actionResultMsg:
		if msg.err != nil && !errors.Is(msg.err, app.ErrNotRunning) {
			m.logger.Warn("dashboard action failed", logging.Field("action", msg.action), logging.Field("error", msg.err))
			m.ui.ErrorModalText = msg.err.Error()
		}
		return m, nil
	case settingsChangedMsg:
		m.applySettings(config.DashboardSettings(msg))
		return m, nil
	case tickMsg:
		m.ui = m.ui.WithTick()
		if time.Since(m.lastHealthRefresh) >= health.RefreshRate {
			m.refreshFeedHealth()
		}
		return m, tickCmd()
	case tea.MouseMsg:
		return m.updateMouseMsg(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	next, cmd, ok := headlessview.ReduceInput(m.ui, msg)
	if ok {
		m.ui = next
		return m, cmd
	}
	return m, nil
}

func (m *headlessModel) updateMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	hadNotice := m.ui.NoticeText != ""
	next, cmd, effect := headlessview.ReduceMouse(m.ui, msg, len(m.stocks))
	m.ui = next
	if hadNotice && m.ui.NoticeText == "" {
		m.lastNotification = nil
	}
	switch effect {
	case headlessview.MouseEffectActivateFocused:
		return m, tea.Batch(cmd, m.activateFocusedControl())
	case headlessview.MouseEffectConfirmQuitAccept:
		return m, tea.Batch(cmd, m.beginQuitCmd())
	case headlessview.MouseEffectSelectSymbol:
		return m, tea.Batch(cmd, m.selectCursorSymbolCmd())
	case headlessview.MouseEffectPermissionAnswered:
		m.answerPermission()
	}
	return m, cmd
}

func (m *headlessModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	next, effect := headlessview.ReduceKey(m.ui, msg, len(m.stocks))
	m.ui = next
	switch effect {
	case headlessview.KeyEffectRequestQuit:
		return m, m.requestQuitCmd()
	case headlessview.KeyEffectSaveSettings:
		m.saveSettings()
		return m, nil
	case headlessview.KeyEffectActivateFocused:
		return m, m.activateFocusedControl()
	case headlessview.KeyEffectConfirmQuitAccept:
		return m, m.beginQuitCmd()
	case headlessview.KeyEffectTogglePush:
		return m, m.togglePushCmd()
	case headlessview.KeyEffectLogout:
		return m, m.logoutCmd()
	case headlessview.KeyEffectSelectSymbol:
		return m, m.selectCursorSymbolCmd()
	case headlessview.KeyEffectPermissionAnswered:
		m.answerPermission()
		return m, nil
	case headlessview.KeyEffectNoticeAccepted:
		return m, m.clickNotificationCmd()
	default:
		if m.ui.NoticeText == "" {
			m.lastNotification = nil
		}
		nextState, cmd, ok := headlessview.ReduceInput(m.ui, msg)
		if ok {
			m.ui = nextState
			return m, cmd
		}
		return m, nil
	}
}

func (m *headlessModel) activateFocusedControl() tea.Cmd {
	next, effect := headlessview.ReduceActivate(m.ui, m.running, m.connecting)
	m.ui = next
	switch effect {
	case headlessview.ActivateEffectSelectSymbol:
		return m.selectCursorSymbolCmd()
	case headlessview.ActivateEffectTogglePush:
		return m.togglePushCmd()
	case headlessview.ActivateEffectRequestQuit:
		return m.requestQuitCmd()
	case headlessview.ActivateEffectSignIn:
		return m.startDashboardCmd(false)
	case headlessview.ActivateEffectLogout:
		return m.logoutCmd()
	case headlessview.ActivateEffectSaveSettings:
		m.saveSettings()
		return nil
	case headlessview.ActivateEffectDebugLevelChanged:
		m.logger.SetDebugEnabled(m.ui.DebugOn)
		return nil
	default:
		return nil
	}
}

func (m *headlessModel) selectCursorSymbolCmd() tea.Cmd {
	dashboard := m.runner.Dashboard()
	if dashboard == nil || m.ui.Cursor >= len(m.stocks) {
		return nil
	}
	symbol := m.stocks[m.ui.Cursor].Symbol
	ctx := m.rootCtx
	return func() tea.Msg {
		return actionResultMsg{action: "select symbol", err: dashboard.SelectSymbol(ctx, symbol)}
	}
}

func (m *headlessModel) togglePushCmd() tea.Cmd {
	dashboard := m.runner.Dashboard()
	if dashboard == nil {
		m.ui.NoticeText = "Sign in before enabling notifications."
		return nil
	}
	ctx := m.rootCtx
	return func() tea.Msg {
		state, err := dashboard.TogglePush(ctx)
		return pushResultMsg{state: state, err: err}
	}
}

func (m *headlessModel) applyPushResult(msg pushResultMsg) {
	if msg.state != "" {
		m.pushState = msg.state
	}
	var permErr *push.PermissionError
	switch {
	case msg.err == nil:
	case errors.Is(msg.err, push.ErrUnsupported):
		m.ui.NoticeText = "Notifications are not available on this device."
	case errors.As(msg.err, &permErr):
		m.ui.NoticeText = "Notifications are blocked. Allow them to receive price alerts."
	case errors.Is(msg.err, push.ErrOperationInProgress):
	default:
		m.ui.ErrorModalText = msg.err.Error()
	}
}

func (m *headlessModel) logoutCmd() tea.Cmd {
	dashboard := m.runner.Dashboard()
	if dashboard == nil {
		return nil
	}
	m.status = "Signing out..."
	m.kind = statusStopping
	return func() tea.Msg {
		dashboard.Logout()
		return nil
	}
}

func (m *headlessModel) clickNotificationCmd() tea.Cmd {
	n := m.lastNotification
	m.lastNotification = nil
	dashboard := m.runner.Dashboard()
	if n == nil || dashboard == nil {
		return nil
	}
	note := *n
	ctx := m.rootCtx
	return func() tea.Msg {
		return actionResultMsg{action: "open notification", err: dashboard.ClickNotification(ctx, note)}
	}
}

func notificationText(n worker.Notification) string {
	parts := []string{n.Title}
	if body := strings.TrimSpace(n.Body); body != "" {
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n") + "\n\nEnter opens the stock."
}

func (m *headlessModel) saveSettings() {
	settings, err := config.LoadSettings()
	if err != nil {
		settings = config.SettingsFromOptions(m.opts)
	}
	if baseURL, _, _ := m.ui.Credentials(); baseURL != "" {
		settings.BaseURL = baseURL
	}
	settings.Debug = m.ui.DebugOn
	if err := config.SaveSettings(settings); err != nil {
		m.ui.ErrorModalText = err.Error()
		return
	}
	m.opts = config.MergeOptionsWithSettings(m.opts, settings)
	m.opts.BaseURL = settings.BaseURL
	m.ui.NoticeText = "Settings saved."
	m.lastNotification = nil
}

// applySettings follows edits made to the settings file while running.
// Connection settings apply on the next sign in.
func (m *headlessModel) applySettings(settings config.DashboardSettings) {
	if settings.Debug != m.ui.DebugOn {
		m.ui.DebugOn = settings.Debug
		m.logger.SetDebugEnabled(settings.Debug)
	}
	if settings.BaseURL != "" && m.opts.BaseURL != settings.BaseURL {
		m.opts.BaseURL = settings.BaseURL
		if !(m.ui.Tab == headlessview.TabAccount && m.ui.Focus == headlessview.BaseURLInputIndex) {
			m.ui.Inputs[headlessview.BaseURLInputIndex].SetValue(settings.BaseURL)
		}
	}
	m.opts.APIBaseURL = settings.APIBaseURL
	m.opts.Watchlist = settings.Watchlist
	if settings.PushListen != "" {
		m.opts.PushListen = settings.PushListen
	}
}

func (m *headlessModel) requestQuitCmd() tea.Cmd {
	if m.running || m.connecting {
		m.ui.ConfirmQuit = true
		m.ui.ConfirmQuitChoice = headlessview.ConfirmQuitChoiceCancel
		return nil
	}
	return m.beginQuitCmd()
}

func quitProgramCmd() tea.Cmd {
	return tea.Sequence(func() tea.Msg {
		return tea.DisableMouse()
	}, waitForMouseDrainCmd(), func() tea.Msg {
		return quitNowMsg{}
	})
}

func waitForMouseDrainCmd() tea.Cmd {
	return func() tea.Msg {
		time.Sleep(120 * time.Millisecond)
		return nil
	}
}

func appendLogLinesWithLimit(current string, next string, limit int) string {
	if limit <= 0 {
		return ""
	}
	lines := splitLogLines(current)
	lines = append(lines, splitLogLines(next)...)
	if len(lines) > limit {
		lines = append([]string(nil), lines[len(lines)-limit:]...)
	}
	return strings.Join(lines, "\n")
}

func splitLogLines(input string) []string {
	if input == "" {
		return nil
	}
	normalized := strings.ReplaceAll(input, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (m *headlessModel) beginQuitCmd() tea.Cmd {
	m.quitting = true
	m.ui.ConfirmQuit = false
	return quitProgramCmd()
}
