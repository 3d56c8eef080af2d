//go:build !headless

package gui

import (
	"context"
	"image/color"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/push"
	"sunstock-dashboard/internal/runtime"
	"sunstock-dashboard/internal/stream"
	"sunstock-dashboard/internal/ui/headless/health"
	"sunstock-dashboard/internal/worker"
)

const (
	appID           = "com.sunstock.dashboard"
	maxNewsRows     = 5
	sparklineWidth  = 48
	shutdownTimeout = 3 * time.Second
)

type controller struct {
	app          fyne.App
	buildVersion string
	settings     config.DashboardSettings
	opts         config.Options
	win          fyne.Window
	logger       *logging.Logger
	runner       *runtime.Controller

	baseURL   *widget.Entry
	email     *widget.Entry
	password  *widget.Entry
	debugLogs *widget.Check

	statusBadge    *statusBadge
	statusText     *widget.Label
	signInButton   *widget.Button
	signOutButton  *widget.Button
	showLogsButton *widget.Button
	saveSettings   *widget.Button
	pushToggle     *sliderToggle
	pushLabel      *widget.Label

	stockList     *widget.List
	stockEmpty    *widget.Label
	detailTitle   *widget.Label
	priceText     *canvas.Text
	percentText   *canvas.Text
	changeText    *canvas.Text
	emaText       *widget.Label
	quoteSpark    *widget.Label
	updatedText   *widget.Label
	alertMessage  *widget.Label
	alertScore    *canvas.Text
	alertCross    *widget.Label
	newsBox       *fyne.Container
	feedBox       *fyne.Container
	dailySpark    *widget.Label
	logWindow     fyne.Window
	logWindowOpen bool
	logView       *widget.Entry
	logLines      []string

	running          bool
	connecting       bool
	stocks           []client.Stock
	symbol           string
	quotes           []client.StockQuote
	daily            []client.StockQuote
	alerts           []stream.Alert
	news             []client.CompanyNews
	pushState        push.State
	feeds            map[string]health.Feed
	lastNotification *worker.Notification

	cleanupOnce    sync.Once
	quitOnce       sync.Once
	bgWG           sync.WaitGroup
	unsubscribe    func()
	appCtx         context.Context
	appCancel      context.CancelFunc
	shuttingDown   bool
	confirmingQuit bool
}

func Run(rootCtx context.Context, buildVersion string, defaults config.Options) {
	uiApp := app.NewWithID(appID)
	uiApp.Settings().SetTheme(newDashboardTheme())
	c := newController(rootCtx, uiApp, buildVersion, defaults)
	c.logger.Info("starting dashboard UI", logging.Field("version", buildVersion))
	c.run()
}

func newController(rootCtx context.Context, uiApp fyne.App, buildVersion string, defaults config.Options) *controller {
	if saved, err := config.LoadSettings(); err == nil {
		defaults = config.MergeOptionsWithSettings(defaults, saved)
	}
	defaults = config.ApplyDefaults(defaults)
	settings := config.SettingsFromOptions(defaults)

	logger := logging.New(defaults.Debug)
	if logger == nil {
		panic("gui.newController: logging.New returned nil")
	}
	if err := logger.EnableFilePersistence("", 0); err != nil {
		logger.Warn("file logging disabled", logging.Field("error", err))
	}
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	appCtx, appCancel := context.WithCancel(rootCtx)

	c := &controller{
		app:          uiApp,
		buildVersion: buildVersion,
		settings:     settings,
		opts:         defaults,
		logger:       logger,
		runner:       runtime.NewController(appCtx, buildVersion),
		feeds:        map[string]health.Feed{},
		appCtx:       appCtx,
		appCancel:    appCancel,
	}

	uiApp.SetIcon(dashboardIconResource())
	c.win = uiApp.NewWindow("Sun Stock Dashboard")
	c.win.SetMaster()
	c.win.Resize(fyne.NewSize(860, 560))
	c.buildUI()
	c.bindLogs()
	c.setupTray()
	c.app.Lifecycle().SetOnStopped(func() {
		c.logger.Debug("app lifecycle OnStopped hook triggered")
		c.cleanup()
		_ = c.logger.Close()
	})
	return c
}

func (c *controller) run() {
	c.setRunningState(false)
	c.startFeedHealthLoop()
	c.startSettingsWatch()
	go func() {
		<-c.appCtx.Done()
		fyne.Do(func() {
			if c.shuttingDown {
				return
			}
			c.logger.Info("root context canceled; shutting down dashboard UI")
			c.quitApp()
		})
	}()
	c.win.SetOnClosed(func() {
		c.logger.Debug("main window OnClosed hook triggered")
		if c.shuttingDown {
			return
		}
		c.cleanup()
	})
	c.win.SetCloseIntercept(func() {
		c.logger.Debug("main window close intercepted: hiding to tray")
		c.win.Hide()
	})

	c.win.Show()
	// A stored session lets the dashboard come up without credentials.
	c.startDashboard(true)
	c.app.Run()
}

func (c *controller) startFeedHealthLoop() {
	c.startBackgroundLoop("feed health", func(ctx context.Context) {
		ticker := time.NewTicker(health.RefreshRate)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fyne.Do(c.refreshFeedHealth)
			}
		}
	})
}

func (c *controller) startSettingsWatch() {
	c.startBackgroundLoop("settings watcher", func(ctx context.Context) {
		err := config.WatchSettings(ctx, c.logger, func(settings config.DashboardSettings) {
			fyne.Do(func() {
				c.applySettings(settings)
			})
		})
		if err != nil && ctx.Err() == nil {
			c.logger.Warn("settings watcher stopped", logging.Field("error", err))
		}
	})
}

func (c *controller) buildUI() {
	c.baseURL = widget.NewEntry()
	c.baseURL.SetText(c.settings.BaseURL)
	c.baseURL.SetPlaceHolder("https://stocks.example.com")
	c.email = widget.NewEntry()
	c.email.SetText(c.opts.Email)
	c.password = widget.NewPasswordEntry()
	c.password.SetText(c.opts.Password)
	c.password.OnSubmitted = func(string) {
		c.startDashboard(false)
	}

	c.debugLogs = widget.NewCheck("Debug level", func(v bool) {
		c.logger.SetDebugEnabled(v)
	})
	c.debugLogs.SetChecked(c.settings.Debug)

	c.statusBadge = newStatusBadge(c.win.Canvas)
	c.statusText = widget.NewLabel("Idle")
	c.setStatus("Idle", statusIdleColor, "")

	c.signInButton = widget.NewButton("Sign in", func() {
		c.startDashboard(false)
	})
	c.signOutButton = widget.NewButton("Sign out", c.logout)
	c.showLogsButton = widget.NewButton("Show logs", func() {
		c.setLogVisibility(true)
		c.refreshTrayMenu()
	})
	c.saveSettings = widget.NewButton("Save", c.saveDraftSettings)

	c.pushToggle = newSliderToggle(func(bool) {
		c.togglePush()
	})
	c.pushLabel = widget.NewLabel(pushStateText(""))

	c.initLogWindow()

	c.stockList = widget.NewList(
		func() int { return len(c.stocks) },
		func() fyne.CanvasObject {
			label := widget.NewLabel("SYMBOL")
			label.Truncation = fyne.TextTruncateEllipsis
			return label
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < 0 || id >= len(c.stocks) {
				return
			}
			obj.(*widget.Label).SetText(stockLabel(c.stocks[id]))
		},
	)
	c.stockList.OnSelected = func(id widget.ListItemID) {
		if id < 0 || id >= len(c.stocks) {
			return
		}
		symbol := c.stocks[id].Symbol
		if strings.EqualFold(symbol, c.symbol) {
			return
		}
		c.selectSymbol(symbol)
	}
	c.stockEmpty = widget.NewLabel("Not signed in")
	c.stockEmpty.Alignment = fyne.TextAlignCenter

	c.detailTitle = widget.NewLabelWithStyle("No symbol selected", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	c.priceText = canvas.NewText("", statusIdleColor)
	c.priceText.TextSize = 20
	c.priceText.TextStyle = fyne.TextStyle{Bold: true}
	c.percentText = canvas.NewText("", statusIdleColor)
	c.changeText = canvas.NewText("", statusIdleColor)
	c.emaText = widget.NewLabel("")
	c.quoteSpark = monospaceLabel()
	c.updatedText = widget.NewLabel("")
	c.alertMessage = widget.NewLabelWithStyle("Stable", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	c.alertScore = canvas.NewText("", statusIdleColor)
	c.alertCross = widget.NewLabel("")
	c.newsBox = container.NewVBox()
	c.feedBox = container.NewVBox()
	c.dailySpark = monospaceLabel()

	controls := container.NewHBox(
		c.signInButton,
		c.signOutButton,
		c.horizontalGap(12),
		c.showLogsButton,
		widget.NewLabel("Status:"),
		container.NewHBox(c.statusBadge, c.statusText),
		layout.NewSpacer(),
		widget.NewLabel("Notifications"),
		c.pushToggle,
		c.pushLabel,
	)

	alertBG := canvas.NewRectangle(color.NRGBA{R: 60, G: 60, B: 60, A: 160})
	alertBG.CornerRadius = 6
	alertPanel := container.NewStack(alertBG, container.NewPadded(container.NewVBox(
		c.alertMessage,
		c.alertScore,
		c.alertCross,
	)))

	detail := container.NewVBox(
		c.detailTitle,
		c.priceText,
		c.percentText,
		c.changeText,
		c.emaText,
		c.quoteSpark,
		c.updatedText,
		c.verticalGap(8),
		alertPanel,
		c.verticalGap(8),
		widget.NewLabelWithStyle("News", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		c.newsBox,
		c.verticalGap(8),
		widget.NewLabelWithStyle("Feeds", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		c.feedBox,
		widget.NewLabelWithStyle("Daily", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		c.dailySpark,
	)
	stocksPanel := container.NewBorder(
		widget.NewLabel("Stocks"),
		nil,
		nil,
		nil,
		container.NewStack(c.stockList, container.NewCenter(c.stockEmpty)),
	)
	split := container.NewHSplit(stocksPanel, container.NewVScroll(detail))
	split.SetOffset(0.28)

	pad := func(obj fyne.CanvasObject) fyne.CanvasObject {
		return container.NewPadded(container.NewPadded(obj))
	}
	dashboardTab := container.NewTabItem("Dashboard", pad(container.NewBorder(
		container.NewPadded(controls),
		nil,
		nil,
		nil,
		split,
	)))
	accountTab := container.NewTabItem("Account", pad(container.NewVBox(
		widget.NewLabel("Base URL"),
		c.baseURL,
		c.verticalGap(8),
		widget.NewLabel("Email"),
		c.email,
		c.verticalGap(8),
		widget.NewLabel("Password"),
		c.password,
		c.verticalGap(12),
		c.debugLogs,
		c.verticalGap(8),
		container.NewHBox(c.saveSettings),
	)))
	tabs := container.NewAppTabs(dashboardTab, accountTab)
	tabs.SetTabLocation(container.TabLocationTop)
	c.win.SetContent(tabs)
	c.renderDashboard()
}

func (c *controller) applySettings(settings config.DashboardSettings) {
	c.settings = settings
	if c.baseURL != nil && strings.TrimSpace(settings.BaseURL) != "" {
		c.baseURL.SetText(settings.BaseURL)
	}
	if c.debugLogs != nil {
		c.debugLogs.SetChecked(settings.Debug)
	}
	c.logger.SetDebugEnabled(settings.Debug)
}

func (c *controller) saveDraftSettings() {
	settings, err := config.LoadSettings()
	if err != nil {
		settings = c.settings
	}
	if baseURL := strings.TrimSpace(c.baseURL.Text); baseURL != "" {
		settings.BaseURL = baseURL
	}
	settings.Debug = c.debugLogs.Checked
	if err := config.SaveSettings(settings); err != nil {
		c.showError(err)
		return
	}
	c.settings = settings
	c.logger.Info("settings saved")
}

func (c *controller) rememberSymbol(symbol string) {
	settings, err := config.LoadSettings()
	if err != nil {
		settings = c.settings
	}
	if settings.LastSymbol == symbol {
		return
	}
	settings.LastSymbol = symbol
	if err := config.SaveSettings(settings); err != nil {
		c.logger.Warn("failed to persist last symbol", logging.Field("symbol", symbol), logging.Field("error", err))
		return
	}
	c.settings = settings
}

func (c *controller) verticalGap(height float32) fyne.CanvasObject {
	spacer := canvas.NewRectangle(color.Transparent)
	spacer.SetMinSize(fyne.NewSize(1, height))
	return spacer
}

func (c *controller) horizontalGap(width float32) fyne.CanvasObject {
	spacer := canvas.NewRectangle(color.Transparent)
	spacer.SetMinSize(fyne.NewSize(width, 1))
	return spacer
}

func monospaceLabel() *widget.Label {
	label := widget.NewLabel("")
	label.TextStyle = fyne.TextStyle{Monospace: true}
	return label
}

func (c *controller) setStatus(text string, dotColor color.NRGBA, reason string) {
	c.statusText.SetText(text)
	if c.statusBadge != nil {
		c.statusBadge.SetStatus(dotColor, reason)
	}
}

func (c *controller) setRunningState(running bool) {
	c.running = running
	if running {
		c.connecting = false
	}
	if c.running || c.connecting {
		c.signInButton.Disable()
		c.signOutButton.Enable()
	} else {
		c.signInButton.Enable()
		c.signOutButton.Disable()
	}
	c.renderPushState()
	c.renderStockPlaceholder()
}

func (c *controller) renderStockPlaceholder() {
	if len(c.stocks) > 0 {
		c.stockEmpty.Hide()
		return
	}
	switch {
	case c.running:
		c.stockEmpty.SetText("No stocks available")
	case c.connecting:
		c.stockEmpty.SetText("Loading...")
	default:
		c.stockEmpty.SetText("Not signed in")
	}
	c.stockEmpty.Show()
}

func (c *controller) renderDashboard() {
	c.renderStockPlaceholder()
	c.renderQuotes()
	c.renderAlerts()
	c.renderNews()
	c.renderFeeds()
	c.renderPushState()
}

func (c *controller) renderQuotes() {
	if c.symbol == "" {
		c.detailTitle.SetText("No symbol selected")
	} else {
		c.detailTitle.SetText(detailTitle(c.stocks, c.symbol))
	}
	view := quoteSummary(c.quotes)
	c.priceText.Text = view.price
	c.priceText.Color = changeColor(view.change)
	c.percentText.Text = view.percent
	c.percentText.Color = changeColor(view.change)
	c.changeText.Text = view.changePrice
	c.changeText.Color = changeColor(view.change)
	c.priceText.Refresh()
	c.percentText.Refresh()
	c.changeText.Refresh()
	c.emaText.SetText(view.ema)
	c.quoteSpark.SetText(sparkline(c.quotes))
	c.updatedText.SetText(view.updated)
	c.dailySpark.SetText(sparkline(c.daily))
}

func (c *controller) renderAlerts() {
	view := alertSummary(c.alerts)
	c.alertMessage.SetText(view.message)
	c.alertScore.Text = view.score
	c.alertScore.Color = statusIdleColor
	if view.scoreValue != nil {
		c.alertScore.Color = changeColor(*view.scoreValue)
	}
	c.alertScore.Refresh()
	c.alertCross.SetText(view.cross)
}

func (c *controller) renderNews() {
	rows := make([]fyne.CanvasObject, 0, maxNewsRows)
	for _, item := range c.news {
		if len(rows) == maxNewsRows {
			break
		}
		rows = append(rows, c.newsRow(item))
	}
	if len(rows) == 0 {
		rows = append(rows, widget.NewLabel("No news"))
	}
	c.newsBox.Objects = rows
	c.newsBox.Refresh()
}

func (c *controller) newsRow(item client.CompanyNews) fyne.CanvasObject {
	text := newsText(item)
	if target := parseNewsURL(item.URL); target != nil {
		link := widget.NewHyperlink(text, target)
		link.Truncation = fyne.TextTruncateEllipsis
		return link
	}
	label := widget.NewLabel(text)
	label.Truncation = fyne.TextTruncateEllipsis
	return label
}

func (c *controller) renderFeeds() {
	rows := make([]fyne.CanvasObject, 0, len(c.feeds))
	for _, row := range c.feedRows() {
		badge := newStatusBadge(c.win.Canvas)
		badge.SetStatus(feedColor(row.Kind), row.Reason)
		label := widget.NewLabel(row.Name)
		label.Truncation = fyne.TextTruncateEllipsis
		rows = append(rows, container.NewBorder(nil, nil, container.NewCenter(badge), nil, label))
	}
	if len(rows) == 0 {
		rows = append(rows, widget.NewLabel("No live feeds"))
	}
	c.feedBox.Objects = rows
	c.feedBox.Refresh()
}

func (c *controller) refreshFeedHealth() {
	if c.shuttingDown {
		return
	}
	c.renderFeeds()
}

func (c *controller) feedRows() []health.Row {
	return health.Compute(sortedFeeds(c.feeds), time.Now())
}

func (c *controller) renderPushState() {
	c.pushLabel.SetText(pushStateText(c.pushState))
	c.pushToggle.Reflect(c.pushState == push.StateSubscribed || c.pushState == push.StateSubscribing)
	if !c.running || c.pushState == push.StateUnsupported {
		c.pushToggle.Disable()
		return
	}
	c.pushToggle.Enable()
}

func (c *controller) initLogWindow() {
	c.logView = widget.NewMultiLineEntry()
	c.logView.Wrapping = fyne.TextWrapWord
	c.logView.TextStyle = fyne.TextStyle{Monospace: true}
	clearButton := widget.NewButton("Clear", func() {
		c.logLines = nil
		c.logView.SetText("")
	})
	c.logWindow = c.app.NewWindow("Sun Stock Dashboard Logs")
	c.logWindow.Resize(fyne.NewSize(900, 520))
	header := container.NewHBox(clearButton, layout.NewSpacer())
	c.logWindow.SetContent(container.NewBorder(header, nil, nil, nil, c.logView))
	c.logWindow.SetCloseIntercept(func() {
		if c.shuttingDown {
			return
		}
		c.setLogVisibility(false)
		c.refreshTrayMenu()
	})
}

func (c *controller) setLogVisibility(visible bool) {
	c.logWindowOpen = visible
	if visible {
		c.logWindow.Show()
		c.logWindow.RequestFocus()
		return
	}
	c.logWindow.Hide()
}

func (c *controller) appendLog(line string) {
	c.logLines = appendLogLines(c.logLines, line, maxLogLines)
	c.logView.SetText(strings.Join(c.logLines, "\n"))
	c.logView.CursorRow = len(c.logLines)
	c.logView.Refresh()
}
