//go:build !headless

package gui

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/push"
	"sunstock-dashboard/internal/stream"
	"sunstock-dashboard/internal/ui/headless/health"
	headlessview "sunstock-dashboard/internal/ui/headless/view"
	"sunstock-dashboard/internal/worker"
)

const maxLogLines = 1000

type quoteView struct {
	price       string
	percent     string
	changePrice string
	ema         string
	updated     string
	change      float64
}

func quoteSummary(quotes []client.StockQuote) quoteView {
	if len(quotes) == 0 {
		return quoteView{price: "No quotes yet"}
	}
	latest := quotes[len(quotes)-1]
	return quoteView{
		price:       fmt.Sprintf("%.2f  %s (%s%%)", latest.PriceCurrent, headlessview.FormatSigned(latest.ChangePrice), headlessview.FormatSigned(latest.ChangePercent)),
		percent:     fmt.Sprintf("Latest Change Percent: %.2f%%", latest.ChangePercent),
		changePrice: fmt.Sprintf("Latest Change Price: %g USD", latest.ChangePrice),
		ema:         fmt.Sprintf("EMA20 %.2f  EMA100 %.2f  tanh %.4f", latest.EMA20, latest.EMA100, latest.TanhEMA),
		updated:     "updated " + latest.CreatedAt,
		change:      latest.ChangePrice,
	}
}

type alertView struct {
	message    string
	score      string
	cross      string
	scoreValue *float64
}

// alertSummary describes the newest alert, or "Stable" when there is none.
func alertSummary(alerts []stream.Alert) alertView {
	view := alertView{message: "Stable"}
	var event *stream.AlertEvent
	if len(alerts) > 0 {
		if m := strings.TrimSpace(alerts[0].Message); m != "" {
			view.message = m
		}
		event = alerts[0].Event
	}
	if event == nil {
		event = &stream.AlertEvent{}
	}
	view.scoreValue = event.ScoreEMA
	view.score = fmt.Sprintf("score ema: %s (%s, %s)", formatOptional(event.ScoreEMA), formatOptional(event.TrendEMA20), formatOptional(event.TrendTanhEMA))
	view.cross = "score price cross ema: " + formatOptional(event.ScorePCrossEMA)
	return view
}

func formatOptional(value *float64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *value)
}

func sparkline(quotes []client.StockQuote) string {
	if len(quotes) == 0 {
		return ""
	}
	prices := make([]float64, 0, len(quotes))
	for _, q := range quotes {
		prices = append(prices, q.PriceCurrent)
	}
	return headlessview.Sparkline(prices, sparklineWidth)
}

func stockLabel(stock client.Stock) string {
	name := strings.TrimSpace(stock.Name)
	if name == "" {
		return stock.Symbol
	}
	return stock.Symbol + "  " + name
}

func detailTitle(stocks []client.Stock, symbol string) string {
	i := slices.IndexFunc(stocks, func(s client.Stock) bool {
		return strings.EqualFold(s.Symbol, symbol)
	})
	if i < 0 {
		return symbol
	}
	return stockLabel(stocks[i])
}

func newsText(item client.CompanyNews) string {
	text := strings.TrimSpace(item.Headline)
	if source := strings.TrimSpace(item.Source); source != "" {
		text += " (" + source + ")"
	}
	return text
}

func parseNewsURL(raw string) *url.URL {
	target, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil
	}
	return target
}

func pushStateText(state push.State) string {
	switch state {
	case push.StateSubscribed:
		return "on"
	case push.StateSubscribing, push.StateUnsubscribing:
		return string(state)
	case push.StateUnsupported, "":
		return "unavailable"
	default:
		return "off"
	}
}

func notificationText(n worker.Notification) string {
	body := strings.TrimSpace(n.Body)
	if body == "" {
		return n.Title
	}
	return body
}

func sortedFeeds(feeds map[string]health.Feed) []health.Feed {
	out := make([]health.Feed, 0, len(feeds))
	for _, feed := range feeds {
		out = append(out, feed)
	}
	slices.SortFunc(out, func(a, b health.Feed) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// appendLogLines strips ANSI styling and keeps the newest limit lines.
func appendLogLines(lines []string, text string, limit int) []string {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		lines = append(lines, ansi.Strip(line))
	}
	if limit > 0 && len(lines) > limit {
		lines = append([]string(nil), lines[len(lines)-limit:]...)
	}
	return lines
}
