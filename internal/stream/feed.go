package stream

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/logging"
)

// Options are shared by the quote and alert feeds.
type Options struct {
	PollInterval time.Duration
	Dialer       *websocket.Dialer
	OnState      func(State)
}

// QuoteFeed is the live quote series for one symbol: a Session feeding a
// QuoteBuffer, with the REST quotes endpoint as fallback.
type QuoteFeed struct {
	*Session
	symbol   string
	api      *client.DashboardClient
	buffer   *QuoteBuffer
	onQuotes func([]client.StockQuote)
	logger   *logging.Logger
}

func NewQuoteFeed(api *client.DashboardClient, symbol string, opts Options, onQuotes func([]client.StockQuote), logger *logging.Logger) *QuoteFeed {
	if logger == nil {
		panic("stream.NewQuoteFeed: logger must not be nil")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	f := &QuoteFeed{
		symbol:   symbol,
		api:      api,
		buffer:   NewQuoteBuffer(symbol, DefaultQuoteLimit),
		onQuotes: onQuotes,
		logger:   logger,
	}
	f.Session = NewSession(Config{
		Name:           "quotes",
		URL:            api.Endpoints().QuotesWSURL,
		Dialer:         opts.Dialer,
		TokenSource:    api.TokenSource(),
		OnUnauthorized: api.RefreshSession,
		PollInterval:   opts.PollInterval,
		Poll:           func(ctx context.Context) { _ = f.Refresh(ctx) },
		OnMessage:      f.handle,
		OnState:        opts.OnState,
	}, logger)
	return f
}

func (f *QuoteFeed) Symbol() string {
	return f.symbol
}

func (f *QuoteFeed) Quotes() []client.StockQuote {
	return f.buffer.Snapshot()
}

// Refresh replaces the buffer with the server's current series.
func (f *QuoteFeed) Refresh(ctx context.Context) error {
	quotes, err := f.api.StockQuotes(ctx, f.symbol)
	if err != nil {
		f.logger.Warn("quote snapshot failed", logging.Field("symbol", f.symbol), logging.Field("error", err))
		return err
	}
	f.buffer.Replace(quotes)
	f.publish()
	return nil
}

func (f *QuoteFeed) handle(raw []byte) {
	quote, ok := DecodeQuote(raw)
	if !ok {
		f.logger.Debug("dropping malformed quote message", logging.Field("payload", logging.Truncate(string(raw))))
		return
	}
	if f.buffer.Merge(quote) {
		f.publish()
	}
}

func (f *QuoteFeed) publish() {
	if f.onQuotes != nil {
		f.onQuotes(f.buffer.Snapshot())
	}
}

// AlertFeed is the alerts stream filtered to the viewed symbol. Alerts have
// no snapshot endpoint, so it never polls.
type AlertFeed struct {
	*Session
	buffer   *AlertBuffer
	onAlerts func([]Alert)
	logger   *logging.Logger
}

func NewAlertFeed(api *client.DashboardClient, symbol string, opts Options, onAlerts func([]Alert), logger *logging.Logger) *AlertFeed {
	if logger == nil {
		panic("stream.NewAlertFeed: logger must not be nil")
	}
	f := &AlertFeed{
		buffer:   NewAlertBuffer(symbol, DefaultAlertLimit),
		onAlerts: onAlerts,
		logger:   logger,
	}
	f.Session = NewSession(Config{
		Name:           "alerts",
		URL:            api.Endpoints().AlertsWSURL,
		Dialer:         opts.Dialer,
		TokenSource:    api.TokenSource(),
		OnUnauthorized: api.RefreshSession,
		OnMessage:      f.handle,
		OnState:        opts.OnState,
	}, logger)
	return f
}

func (f *AlertFeed) SetSymbol(symbol string) {
	f.buffer.SetSymbol(symbol)
	if f.onAlerts != nil {
		f.onAlerts(f.buffer.Snapshot())
	}
}

func (f *AlertFeed) Alerts() []Alert {
	return f.buffer.Snapshot()
}

func (f *AlertFeed) handle(raw []byte) {
	alert, ok := DecodeAlert(raw)
	if !ok {
		f.logger.Debug("dropping malformed alert message", logging.Field("payload", logging.Truncate(string(raw))))
		return
	}
	if f.buffer.Add(alert) && f.onAlerts != nil {
		f.onAlerts(f.buffer.Snapshot())
	}
}
