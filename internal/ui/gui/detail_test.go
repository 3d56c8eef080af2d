//go:build !headless

package gui

import (
	"strings"
	"testing"
	"time"

	"sunstock-dashboard/internal/client"
	"sunstock-dashboard/internal/push"
	"sunstock-dashboard/internal/stream"
	"sunstock-dashboard/internal/ui/headless/health"
)

func TestAlertSummaryStableWithoutAlerts(t *testing.T) {
	view := alertSummary(nil)
	if view.message != "Stable" {
		t.Fatalf("message = %q, want Stable", view.message)
	}
	if view.score != "score ema: - (-, -)" {
		t.Fatalf("score = %q", view.score)
	}
	if view.cross != "score price cross ema: -" {
		t.Fatalf("cross = %q", view.cross)
	}
	if view.scoreValue != nil {
		t.Fatalf("scoreValue = %v, want nil", *view.scoreValue)
	}
}

func TestAlertSummaryUsesNewestAlert(t *testing.T) {
	score, trend, tanh, cross := -0.25, 1.5, 0.125, 0.5
	view := alertSummary([]stream.Alert{
		{
			Message: "AAPL crossed below EMA",
			Event: &stream.AlertEvent{
				Symbol:         "AAPL",
				ScoreEMA:       &score,
				TrendEMA20:     &trend,
				TrendTanhEMA:   &tanh,
				ScorePCrossEMA: &cross,
			},
		},
		{Message: "older"},
	})
	if view.message != "AAPL crossed below EMA" {
		t.Fatalf("message = %q", view.message)
	}
	if view.score != "score ema: -0.2500 (1.5000, 0.1250)" {
		t.Fatalf("score = %q", view.score)
	}
	if view.cross != "score price cross ema: 0.5000" {
		t.Fatalf("cross = %q", view.cross)
	}
	if view.scoreValue == nil || *view.scoreValue != score {
		t.Fatalf("scoreValue = %v, want %v", view.scoreValue, score)
	}
}

func TestQuoteSummaryUsesLatestQuote(t *testing.T) {
	view := quoteSummary([]client.StockQuote{
		{PriceCurrent: 10, ChangePrice: 1, ChangePercent: 10},
		{PriceCurrent: 9.5, ChangePrice: -0.5, ChangePercent: -5, CreatedAt: "2024-05-01 10:00:00"},
	})
	if view.percent != "Latest Change Percent: -5.00%" {
		t.Fatalf("percent = %q", view.percent)
	}
	if view.changePrice != "Latest Change Price: -0.5 USD" {
		t.Fatalf("changePrice = %q", view.changePrice)
	}
	if view.change != -0.5 {
		t.Fatalf("change = %v, want -0.5", view.change)
	}
	if view.updated != "updated 2024-05-01 10:00:00" {
		t.Fatalf("updated = %q", view.updated)
	}
	if empty := quoteSummary(nil); empty.price != "No quotes yet" {
		t.Fatalf("empty price = %q", empty.price)
	}
}

func TestParseNewsURLRequiresHTTP(t *testing.T) {
	if parseNewsURL("https://news.example.com/a") == nil {
		t.Fatal("https URL rejected")
	}
	for _, raw := range []string{"", "javascript:alert(1)", "file:///etc/passwd", "/relative"} {
		if parseNewsURL(raw) != nil {
			t.Fatalf("parseNewsURL(%q) accepted", raw)
		}
	}
}

func TestAppendLogLinesStripsAndTrims(t *testing.T) {
	var lines []string
	lines = appendLogLines(lines, "\x1b[31mred\x1b[0m\nplain\n", 3)
	if strings.Join(lines, "|") != "red|plain" {
		t.Fatalf("lines = %q", lines)
	}
	lines = appendLogLines(lines, "a\nb", 3)
	if strings.Join(lines, "|") != "plain|a|b" {
		t.Fatalf("trimmed lines = %q", lines)
	}
}

func TestPushStateText(t *testing.T) {
	cases := map[push.State]string{
		push.StateSubscribed:    "on",
		push.StateNotSubscribed: "off",
		push.StateSubscribing:   "subscribing",
		push.StateUnsupported:   "unavailable",
		"":                      "unavailable",
	}
	for state, want := range cases {
		if got := pushStateText(state); got != want {
			t.Fatalf("pushStateText(%q) = %q, want %q", state, got, want)
		}
	}
}

func TestSortedFeedsOrdersByName(t *testing.T) {
	now := time.Now()
	feeds := sortedFeeds(map[string]health.Feed{
		"quotes": {Name: "quotes", State: stream.StateOpen, LastMessage: now},
		"alerts": {Name: "alerts", State: stream.StateConnecting},
	})
	if len(feeds) != 2 || feeds[0].Name != "alerts" || feeds[1].Name != "quotes" {
		t.Fatalf("feeds = %+v", feeds)
	}
}
