package stream

import (
	"strings"
	"sync"
)

const DefaultAlertLimit = 5

// Alert is one message from the alerts stream. Plain string messages carry
// only Message.
type Alert struct {
	Type    string      `json:"type,omitempty"`
	Message string      `json:"message,omitempty"`
	URL     string      `json:"url,omitempty"`
	Event   *AlertEvent `json:"event,omitempty"`
}

type AlertEvent struct {
	ID             string   `json:"id,omitempty"`
	Symbol         string   `json:"symbol,omitempty"`
	TrendEMA20     *float64 `json:"trend_ema_20,omitempty"`
	TrendTanhEMA   *float64 `json:"trend_tanh_ema,omitempty"`
	ScoreEMA       *float64 `json:"score_ema,omitempty"`
	ScorePCrossEMA *float64 `json:"score_p_cross_ema,omitempty"`
	CreatedAt      string   `json:"created_at,omitempty"`
}

func (a Alert) Symbol() string {
	if a.Event == nil {
		return ""
	}
	return strings.TrimSpace(a.Event.Symbol)
}

// AlertBuffer keeps the newest alerts first, filtered to one symbol.
type AlertBuffer struct {
	mu     sync.Mutex
	limit  int
	symbol string
	items  []Alert
}

func NewAlertBuffer(symbol string, limit int) *AlertBuffer {
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	return &AlertBuffer{limit: limit, symbol: strings.TrimSpace(symbol)}
}

// SetSymbol changes the filter and drops alerts collected for the previous
// symbol.
func (b *AlertBuffer) SetSymbol(symbol string) {
	symbol = strings.TrimSpace(symbol)
	b.mu.Lock()
	defer b.mu.Unlock()
	if strings.EqualFold(symbol, b.symbol) {
		return
	}
	b.symbol = symbol
	b.items = nil
}

// Add prepends a if it matches the filter and reports whether it was kept.
// With a filter set, alerts that name no symbol are dropped.
func (b *AlertBuffer) Add(a Alert) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.symbol != "" && !strings.EqualFold(a.Symbol(), b.symbol) {
		return false
	}
	next := make([]Alert, 0, min(len(b.items)+1, b.limit))
	next = append(next, a)
	for _, existing := range b.items {
		if len(next) == b.limit {
			break
		}
		next = append(next, existing)
	}
	b.items = next
	return true
}

func (b *AlertBuffer) Snapshot() []Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Alert, len(b.items))
	copy(out, b.items)
	return out
}
