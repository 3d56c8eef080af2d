package stream

import (
	"slices"
	"strings"
	"sync"

	"sunstock-dashboard/internal/client"
)

const DefaultQuoteLimit = 1000

// QuoteBuffer holds the most recent quotes for one symbol in arrival order.
type QuoteBuffer struct {
	mu     sync.Mutex
	limit  int
	symbol string
	items  []client.StockQuote
}

func NewQuoteBuffer(symbol string, limit int) *QuoteBuffer {
	if limit <= 0 {
		limit = DefaultQuoteLimit
	}
	return &QuoteBuffer{limit: limit, symbol: strings.ToUpper(strings.TrimSpace(symbol))}
}

// Merge replaces the entry sharing q's id or created_at in place, or appends
// q, then keeps only the newest limit entries. Quotes for another symbol are
// ignored. It reports whether the buffer changed.
func (b *QuoteBuffer) Merge(q client.StockQuote) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.symbol != "" && q.Symbol != "" && !strings.EqualFold(q.Symbol, b.symbol) {
		return false
	}
	if i := slices.IndexFunc(b.items, func(existing client.StockQuote) bool {
		return sameQuote(existing, q)
	}); i >= 0 {
		b.items[i] = q
		return true
	}
	b.items = append(b.items, q)
	if over := len(b.items) - b.limit; over > 0 {
		b.items = slices.Delete(b.items, 0, over)
	}
	return true
}

// Replace swaps in a fetched snapshot, keeping its newest limit entries.
func (b *QuoteBuffer) Replace(quotes []client.StockQuote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if over := len(quotes) - b.limit; over > 0 {
		quotes = quotes[over:]
	}
	b.items = slices.Clone(quotes)
}

func (b *QuoteBuffer) Snapshot() []client.StockQuote {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items)
}

func (b *QuoteBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func sameQuote(a, b client.StockQuote) bool {
	if a.ID != "" && a.ID == b.ID {
		return true
	}
	return a.CreatedAt != "" && a.CreatedAt == b.CreatedAt
}
