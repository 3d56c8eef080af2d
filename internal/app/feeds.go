package app

import (
	"context"
	"strings"
	"time"

	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/logging"
	"sunstock-dashboard/internal/runctx"
	"sunstock-dashboard/internal/runstatus"
	"sunstock-dashboard/internal/stream"
)

func (a *Dashboard) loadStocks(ctx context.Context) ([]client.Stock, error) {
	stocks, err := a.api.Stocks(ctx)
	if err != nil {
		return nil, err
	}
	stocks = orderStocks(stocks, a.watchlistSymbols())
	a.mu.Lock()
	a.stocks = stocks
	a.mu.Unlock()
	a.notifyStocks(stocks)
	return stocks, nil
}

func (a *Dashboard) watchlistSymbols() []string {
	symbols := make([]string, 0, len(a.watchlist))
	for _, entry := range a.watchlist {
		symbols = append(symbols, entry.Symbol)
	}
	return symbols
}

// orderStocks moves pinned symbols to the front in pin order. Pins the
// server does not list are skipped.
func orderStocks(stocks []client.Stock, pinned []string) []client.Stock {
	if len(pinned) == 0 {
		return stocks
	}
	bySymbol := make(map[string]int, len(stocks))
	for i, stock := range stocks {
		bySymbol[stock.Symbol] = i
	}
	used := make(map[int]bool, len(pinned))
	ordered := make([]client.Stock, 0, len(stocks))
	for _, symbol := range pinned {
		i, ok := bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		ordered = append(ordered, stocks[i])
	}
	for i, stock := range stocks {
		if !used[i] {
			ordered = append(ordered, stock)
		}
	}
	return ordered
}

func (a *Dashboard) initialSymbol(stocks []client.Stock) string {
	if symbol := strings.ToUpper(strings.TrimSpace(a.opts.Symbol)); symbol != "" {
		return symbol
	}
	if len(stocks) == 0 {
		return ""
	}
	return stocks[0].Symbol
}

// SelectSymbol points the quote and alert feeds at symbol and loads its
// daily series and news.
func (a *Dashboard) SelectSymbol(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	a.mu.Lock()
	runCtx := a.runCtx
	if runCtx == nil {
		a.mu.Unlock()
		return ErrNotRunning
	}
	if symbol == "" || symbol == a.symbol {
		a.mu.Unlock()
		return nil
	}
	previous := a.quotes
	a.symbol = symbol
	quotes := stream.NewQuoteFeed(a.api, symbol, a.feedOptions("quotes"), func(q []client.StockQuote) {
		a.notifyQuotes(symbol, q)
	}, a.logger)
	a.quotes = quotes
	alerts := a.alerts
	startAlerts := alerts == nil
	if startAlerts {
		alerts = stream.NewAlertFeed(a.api, symbol, a.feedOptions("alerts"), a.notifyAlerts, a.logger)
		a.alerts = alerts
	}
	a.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}
	a.logger.Info("symbol selected", logging.Field("symbol", symbol))
	if a.hooks.OnSymbol != nil {
		a.hooks.OnSymbol(symbol)
	}
	if startAlerts {
		alerts.Start(runCtx)
	} else {
		alerts.SetSymbol(symbol)
	}

	if err := quotes.Refresh(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	// A later selection or logout may have replaced quotes while the
	// snapshot loaded. Its Stop is a no-op on a feed that never started,
	// so check again on both sides of Start.
	if a.currentQuotes() != quotes {
		return nil
	}
	quotes.Start(runCtx)
	if a.currentQuotes() != quotes {
		quotes.Stop()
		return nil
	}
	go a.loadDetails(runCtx, symbol)
	return nil
}

func (a *Dashboard) feedOptions(name string) stream.Options {
	opts := a.feedOpts
	opts.OnState = func(state stream.State) { a.onStreamState(name, state) }
	return opts
}

func (a *Dashboard) stopFeeds() {
	a.mu.Lock()
	quotes, alerts := a.quotes, a.alerts
	a.quotes, a.alerts = nil, nil
	a.symbol = ""
	a.mu.Unlock()
	if quotes != nil {
		quotes.Stop()
	}
	if alerts != nil {
		alerts.Stop()
	}
}

func (a *Dashboard) currentQuotes() *stream.QuoteFeed {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quotes
}

func (a *Dashboard) onStreamState(name string, state stream.State) {
	if a.hooks.OnStreamState != nil {
		a.hooks.OnStreamState(name, state)
	}
	if name != "quotes" {
		return
	}
	switch state {
	case stream.StateOpen:
		a.setRuntimeStatus(runstatus.Connected)
	case stream.StateClosed:
		if !a.api.Authenticated() {
			a.setRuntimeStatus(runstatus.DisconnectedAuth)
			return
		}
		a.setRuntimeStatus(runstatus.Reconnecting)
	}
}

// runQuoteRefreshLoop reloads the quote snapshot every minute during the
// active window and sleeps until the window opens otherwise.
func (a *Dashboard) runQuoteRefreshLoop(ctx context.Context) {
	timer := time.NewTimer(stream.QuoteRefreshDelay(a.now()))
	defer timer.Stop()
	for {
		if _, ok := runctx.RecvOrDone(ctx, "quote refresh loop", a.logger, timer.C); !ok {
			return
		}
		if feed := a.currentQuotes(); feed != nil {
			if err := feed.Refresh(ctx); err != nil && ctx.Err() == nil {
				a.logger.Debug("scheduled quote refresh failed", logging.Field("error", err))
			}
		}
		timer.Reset(stream.QuoteRefreshDelay(a.now()))
	}
}

func (a *Dashboard) loadDetails(ctx context.Context, symbol string) {
	if daily, err := a.api.StockDaily(ctx, symbol); err != nil {
		if ctx.Err() == nil {
			a.logger.Warn("failed to load daily series", logging.Field("symbol", symbol), logging.Field("error", err))
		}
	} else if a.hooks.OnDaily != nil && a.Symbol() == symbol {
		a.hooks.OnDaily(symbol, daily)
	}

	news, err := a.api.CompanyNews(ctx, symbol, client.DefaultNewsRange(a.now()))
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Warn("failed to load company news", logging.Field("symbol", symbol), logging.Field("error", err))
		}
		return
	}
	if a.hooks.OnNews != nil && a.Symbol() == symbol {
		a.hooks.OnNews(symbol, news)
	}
}

func (a *Dashboard) notifyStocks(stocks []client.Stock) {
	if a.hooks.OnStocks == nil {
		return
	}
	a.hooks.OnStocks(append([]client.Stock(nil), stocks...))
}

func (a *Dashboard) notifyQuotes(symbol string, quotes []client.StockQuote) {
	if a.hooks.OnQuotes == nil || a.Symbol() != symbol {
		return
	}
	a.hooks.OnQuotes(symbol, quotes)
}

func (a *Dashboard) notifyAlerts(alerts []stream.Alert) {
	if a.hooks.OnAlerts == nil {
		return
	}
	a.hooks.OnAlerts(alerts)
}
