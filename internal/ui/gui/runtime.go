//go:build !headless

package gui

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"sunstock-dashboard/internal/app"
	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/push"
	"sunstock-dashboard/internal/runctx"
	"sunstock-dashboard/internal/runstatus"
	"sunstock-dashboard/internal/runtime"
	"sunstock-dashboard/internal/stream"
	"sunstock-dashboard/internal/ui/headless/health"
	"sunstock-dashboard/internal/webpush"
	"sunstock-dashboard/internal/worker"
)

func waitGroupWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	if timeout <= 0 {
		<-done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func (c *controller) startBackgroundLoop(name string, fn func(context.Context)) {
	c.bgWG.Go(func() {
		c.logger.Debug("background loop started", logging.Field("loop", name))
		fn(c.appCtx)
		c.logger.Debug("background loop stopped", logging.Field("loop", name))
	})
}

func (c *controller) bindLogs() {
	logCh := make(chan string, 256)
	c.unsubscribe = c.logger.Subscribe(func(event logging.Event) {
		line := logging.FormatEventANSI(event)
		select {
		case logCh <- line:
		default:
			select {
			case <-logCh:
			default:
			}
			logCh <- line
		}
	})

	c.startBackgroundLoop("gui log pump", func(ctx context.Context) {
		for {
			line, ok := runctx.RecvOrDone(ctx, "GUI log pump", c.logger, logCh)
			if !ok {
				return
			}
			text := line
			fyne.Do(func() {
				c.appendLog(text)
			})
		}
	})
}

func (c *controller) currentOptions() config.Options {
	opts := c.opts
	if baseURL := strings.TrimSpace(c.baseURL.Text); baseURL != "" {
		opts.BaseURL = baseURL
	}
	opts.Email = strings.TrimSpace(c.email.Text)
	opts.Password = c.password.Text
	opts.Debug = c.debugLogs.Checked
	switch {
	case c.symbol != "":
		opts.Symbol = c.symbol
	case c.settings.LastSymbol != "":
		opts.Symbol = c.settings.LastSymbol
	}
	return config.ApplyDefaults(opts)
}

// startDashboard starts the runtime. The automatic start at launch relies
// on a stored session when no credentials were entered.
func (c *controller) startDashboard(auto bool) {
	if c.running || c.connecting || c.shuttingDown {
		return
	}
	opts := c.currentOptions()
	if !auto && (opts.Email == "" || opts.Password == "") {
		c.showError(errors.New("email and password are required"))
		return
	}
	if err := config.ValidateRequired(opts); err != nil {
		c.setStatus("Error", statusErrorColor, err.Error())
		c.showError(errors.New(c.startErrorText(auto, err.Error())))
		return
	}

	if err := c.runner.Start(opts, c.logger, c.startHooks()); err != nil {
		c.setStatus("Error", statusErrorColor, err.Error())
		c.showError(errors.New(c.startErrorText(auto, err.Error())))
		return
	}
	c.password.SetText("")
	c.connecting = true
	c.setRunningState(false)
	c.setStatus("Connecting...", statusConnectingColor, "")
	c.refreshTrayMenu()
}

func (c *controller) startErrorText(auto bool, message string) string {
	if !auto {
		return message
	}
	return "Couldn't start the dashboard: " + message
}

func (c *controller) startHooks() runtime.StartHooks {
	return runtime.StartHooks{
		Callbacks: app.Callbacks{
			OnStatusChange: func(status string) {
				fyne.Do(func() {
					c.applyRuntimeStatus(status)
				})
			},
			OnStocks: func(stocks []client.Stock) {
				fyne.Do(func() {
					c.applyStocks(stocks)
				})
			},
			OnSymbol: func(symbol string) {
				fyne.Do(func() {
					c.applySymbol(symbol)
				})
			},
			OnQuotes: func(symbol string, quotes []client.StockQuote) {
				fyne.Do(func() {
					if !strings.EqualFold(symbol, c.symbol) {
						return
					}
					c.quotes = quotes
					c.touchFeed("quotes")
					c.renderQuotes()
				})
			},
			OnDaily: func(symbol string, daily []client.StockQuote) {
				fyne.Do(func() {
					if !strings.EqualFold(symbol, c.symbol) {
						return
					}
					c.daily = daily
					c.renderQuotes()
				})
			},
			OnAlerts: func(alerts []stream.Alert) {
				fyne.Do(func() {
					c.alerts = alerts
					c.touchFeed("alerts")
					c.renderAlerts()
				})
			},
			OnNews: func(symbol string, news []client.CompanyNews) {
				fyne.Do(func() {
					if !strings.EqualFold(symbol, c.symbol) {
						return
					}
					c.news = news
					c.renderNews()
				})
			},
			OnStreamState: func(name string, state stream.State) {
				at := time.Now()
				fyne.Do(func() {
					c.applyStreamState(name, state, at)
				})
			},
			OnPushState: func(state push.State) {
				fyne.Do(func() {
					c.pushState = state
					c.renderPushState()
					c.refreshTrayMenu()
				})
			},
			OnLoginNotice: func() {
				fyne.Do(func() {
					c.showNotice("Signed in", "Signed in successfully.")
				})
			},
			OnNotification: c.showNotification,
			OnOpenURL:      c.openURL,
			OnFocus: func() {
				fyne.Do(func() {
					c.win.Show()
					c.win.RequestFocus()
				})
			},
		},
		Prompter: webpush.PrompterFunc(c.promptPermission),
		OnExit: func(runErr error) {
			fyne.Do(func() {
				c.applyRunDone(runErr)
			})
		},
	}
}

func (c *controller) applyRuntimeStatus(status string) {
	switch runstatus.Key(status) {
	case runstatus.KeySigningIn, runstatus.KeyAuthenticated, runstatus.KeyReconnecting:
		c.setStatus(status, statusConnectingColor, "")
	case runstatus.KeyStocksLoaded, runstatus.KeyConnected:
		c.setRunningState(true)
		c.setStatus(status, statusRunningColor, "")
		c.refreshTrayMenu()
	case runstatus.KeyDisconnectedAuth:
		c.setStatus(status, statusErrorColor, "")
	default:
		c.setStatus(status, statusIdleColor, "")
	}
}

func (c *controller) applyRunDone(err error) {
	c.connecting = false
	c.pushState = ""
	c.feeds = map[string]health.Feed{}
	c.setRunningState(false)
	defer func() {
		c.renderDashboard()
		if !c.shuttingDown {
			c.refreshTrayMenu()
		}
	}()
	switch {
	case err == nil:
		c.setStatus(runstatus.Disconnected, statusIdleColor, "")
	case errors.Is(err, app.ErrLoggedOut):
		c.clearDashboardData()
		c.setStatus(runstatus.DisconnectedAuth, statusIdleColor, "")
	case errors.Is(err, app.ErrLoginRequired):
		c.setStatus("Sign in required", statusIdleColor, "Enter your email and password on the Account tab.")
	default:
		c.setStatus("Disconnected (error)", statusErrorColor, err.Error())
		if !c.shuttingDown {
			c.showError(err)
		}
	}
}

func (c *controller) clearDashboardData() {
	c.stocks = nil
	c.symbol = ""
	c.quotes = nil
	c.daily = nil
	c.alerts = nil
	c.news = nil
	c.lastNotification = nil
	c.stockList.UnselectAll()
	c.stockList.Refresh()
}

func (c *controller) applyStocks(stocks []client.Stock) {
	c.stocks = stocks
	c.stockList.Refresh()
	c.selectStockRow()
	c.renderStockPlaceholder()
}

func (c *controller) applySymbol(symbol string) {
	if strings.EqualFold(symbol, c.symbol) {
		return
	}
	c.symbol = symbol
	c.quotes = nil
	c.daily = nil
	c.news = nil
	c.selectStockRow()
	c.renderQuotes()
	c.renderNews()
	c.rememberSymbol(symbol)
	c.refreshTrayMenu()
}

func (c *controller) selectStockRow() {
	for i, stock := range c.stocks {
		if strings.EqualFold(stock.Symbol, c.symbol) {
			c.stockList.Select(i)
			return
		}
	}
}

func (c *controller) applyStreamState(name string, state stream.State, at time.Time) {
	feed := c.feeds[name]
	feed.Name = name
	feed.State = state
	if state == stream.StateOpen && feed.LastMessage.IsZero() {
		feed.LastMessage = at
	}
	c.feeds[name] = feed
	c.renderFeeds()
}

func (c *controller) touchFeed(name string) {
	feed, ok := c.feeds[name]
	if !ok {
		feed = health.Feed{Name: name, State: stream.StateIdle}
	}
	feed.LastMessage = time.Now()
	c.feeds[name] = feed
}

func (c *controller) selectSymbol(symbol string) {
	dashboard := c.runner.Dashboard()
	if dashboard == nil {
		return
	}
	go func() {
		if err := dashboard.SelectSymbol(c.appCtx, symbol); err != nil && c.appCtx.Err() == nil {
			c.logger.Warn("failed to select symbol", logging.Field("symbol", symbol), logging.Field("error", err))
		}
	}()
}

func (c *controller) togglePush() {
	dashboard := c.runner.Dashboard()
	if dashboard == nil {
		c.renderPushState()
		return
	}
	c.pushToggle.Disable()
	go func() {
		state, err := dashboard.TogglePush(c.appCtx)
		fyne.Do(func() {
			c.pushState = state
			c.renderPushState()
			c.refreshTrayMenu()
			if err == nil || c.shuttingDown {
				return
			}
			var permErr *push.PermissionError
			switch {
			case errors.As(err, &permErr):
				c.showNotice("Notifications blocked", "Notifications were not allowed.")
			case errors.Is(err, push.ErrOperationInProgress):
			default:
				c.showError(err)
			}
		})
	}()
}

// promptPermission blocks the calling goroutine until the dialog is answered.
func (c *controller) promptPermission(ctx context.Context) (push.Permission, error) {
	reply := make(chan push.Permission, 1)
	fyne.Do(func() {
		if c.shuttingDown {
			reply <- push.PermissionDefault
			return
		}
		c.win.Show()
		dialog.ShowConfirm(
			"Allow notifications?",
			"Sun Stock Dashboard would like to show stock alerts as notifications.",
			func(ok bool) {
				if ok {
					reply <- push.PermissionGranted
					return
				}
				reply <- push.PermissionDenied
			},
			c.win,
		)
	})
	select {
	case answer := <-reply:
		return answer, nil
	case <-ctx.Done():
		return push.PermissionDefault, ctx.Err()
	}
}

func (c *controller) showNotification(n worker.Notification) {
	fyne.Do(func() {
		note := n
		c.lastNotification = &note
		c.app.SendNotification(fyne.NewNotification(n.Title, notificationText(n)))
		c.refreshTrayMenu()
	})
}

func (c *controller) clickNotification() {
	dashboard := c.runner.Dashboard()
	if dashboard == nil || c.lastNotification == nil {
		return
	}
	note := *c.lastNotification
	go func() {
		if err := dashboard.ClickNotification(c.appCtx, note); err != nil && c.appCtx.Err() == nil {
			c.logger.Warn("failed to open notification", logging.Field("error", err))
		}
	}()
}

func (c *controller) openURL(raw string) error {
	target, err := url.Parse(raw)
	if err != nil {
		return err
	}
	return c.app.OpenURL(target)
}

func (c *controller) openInBrowser() {
	endpoints, err := config.BuildEndpoints(c.currentOptions().BaseURL, "")
	if err != nil {
		c.showError(err)
		return
	}
	target := endpoints.Origin + "/"
	if c.symbol != "" {
		target = endpoints.Origin + "/detail/daily/" + url.PathEscape(c.symbol)
	}
	if err := c.openURL(target); err != nil {
		c.showError(err)
	}
}

func (c *controller) logout() {
	dashboard := c.runner.Dashboard()
	if dashboard == nil {
		c.runner.Stop()
		return
	}
	c.setStatus("Signing out...", statusStoppingColor, "")
	dashboard.Logout()
}

func (c *controller) showError(err error) {
	if c.win == nil || err == nil {
		return
	}
	dialog.ShowError(err, c.win)
}

func (c *controller) showNotice(title, message string) {
	if c.win == nil {
		return
	}
	dialog.ShowInformation(title, message, c.win)
}

func (c *controller) cleanup() {
	c.cleanupOnce.Do(func() {
		c.shuttingDown = true
		c.logger.Debug("gui cleanup started")
		if c.appCancel != nil {
			c.logger.Debug("canceling GUI root context")
			c.appCancel()
		}
		if c.unsubscribe != nil {
			c.logger.Debug("unsubscribing GUI log listener")
			c.unsubscribe()
		}
		c.logger.Debug("waiting for GUI background loops to stop")
		if ok := waitGroupWithTimeout(&c.bgWG, 2*time.Second); !ok {
			c.logger.Warn("GUI background loops did not stop within timeout")
		}
		c.logger.Debug("stopping runtime controller")
		if ok := c.runner.StopAndWait(shutdownTimeout); !ok {
			c.logger.Warn("runtime controller did not stop within timeout")
		} else {
			c.logger.Debug("runtime controller stopped")
		}
		c.logger.Debug("gui cleanup complete")
	})
}

func (c *controller) quitApp() {
	c.quitOnce.Do(func() {
		c.logger.Debug("quit requested")
		c.cleanup()
		c.logger.Debug("calling fyne app quit")
		c.app.Quit()
	})
}

func (c *controller) requestQuit() {
	if c.shuttingDown {
		return
	}
	if !c.runner.IsRunning() {
		c.quitApp()
		return
	}
	if c.confirmingQuit {
		return
	}
	c.confirmingQuit = true
	c.win.Show()
	dialog.ShowConfirm(
		"Quit Sun Stock Dashboard?",
		"Live updates and notifications will stop.",
		func(ok bool) {
			c.confirmingQuit = false
			if !ok {
				return
			}
			c.quitApp()
		},
		c.win,
	)
}
