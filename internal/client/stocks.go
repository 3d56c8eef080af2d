package client

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"sunstock-dashboard/internal/logging"
)

const newsDateLayout = "2006-01-02"

func (c *DashboardClient) Stocks(ctx context.Context) ([]Stock, error) {
	resp, err := DoJSON[Envelope[[]Stock]](ctx, c, http.MethodGet, c.endpoints.StocksURL, nil)
	if err != nil {
		return nil, err
	}
	stocks := normalizeStocks(resp.Data)
	c.logger.Debug("stocks loaded", logging.Field("count", len(stocks)))
	return stocks, nil
}

func (c *DashboardClient) StockQuotes(ctx context.Context, symbol string) ([]StockQuote, error) {
	return c.quotes(ctx, c.endpoints.StockQuotesURL, symbol)
}

// StockDaily returns the daily quote series for symbol.
func (c *DashboardClient) StockDaily(ctx context.Context, symbol string) ([]StockQuote, error) {
	return c.quotes(ctx, c.endpoints.StockDailyURL, symbol)
}

func (c *DashboardClient) quotes(ctx context.Context, endpoint, symbol string) ([]StockQuote, error) {
	query := url.Values{"symbol": {strings.TrimSpace(symbol)}}
	resp, err := DoJSON[Envelope[[]StockQuote]](ctx, c, http.MethodGet, endpoint, nil, WithQuery(query))
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// NewsRange is a [Start, End] window of local calendar days.
type NewsRange struct {
	Start time.Time
	End   time.Time
}

// DefaultNewsRange covers yesterday and today in now's location.
func DefaultNewsRange(now time.Time) NewsRange {
	return NewsRange{Start: now.AddDate(0, 0, -1), End: now}
}

func (c *DashboardClient) CompanyNews(ctx context.Context, symbol string, window NewsRange) ([]CompanyNews, error) {
	query := url.Values{
		"symbol": {strings.TrimSpace(symbol)},
		"start":  {window.Start.Format(newsDateLayout)},
		"end":    {window.End.Format(newsDateLayout)},
	}
	resp, err := DoJSON[Envelope[[]CompanyNews]](ctx, c, http.MethodGet, c.endpoints.CompanyNewsURL, nil, WithQuery(query))
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// normalizeStocks trims symbols, drops blanks and duplicates and sorts by
// symbol.
func normalizeStocks(stocks []Stock) []Stock {
	out := make([]Stock, 0, len(stocks))
	seen := map[string]struct{}{}
	for _, s := range stocks {
		s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
		s.Name = strings.TrimSpace(s.Name)
		if s.Symbol == "" {
			continue
		}
		if _, dup := seen[s.Symbol]; dup {
			continue
		}
		seen[s.Symbol] = struct{}{}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Stock) int {
		return strings.Compare(a.Symbol, b.Symbol)
	})
	return out
}
