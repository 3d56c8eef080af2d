package stream

import (
	"fmt"
	"testing"
	"time"

	"sunstock-dashboard/internal/client"
)

func TestQuoteBufferMergeByID(t *testing.T) {
	b := NewQuoteBuffer("BBCA", 10)
	b.Merge(client.StockQuote{ID: "q1", CreatedAt: "2026-03-02 20:00:00", PriceCurrent: 1})
	b.Merge(client.StockQuote{ID: "q2", CreatedAt: "2026-03-02 20:01:00", PriceCurrent: 2})
	b.Merge(client.StockQuote{ID: "q1", CreatedAt: "2026-03-02 20:00:30", PriceCurrent: 9})

	got := b.Snapshot()
	if len(got) != 2 || got[0].ID != "q1" || got[0].PriceCurrent != 9 || got[1].ID != "q2" {
		t.Fatalf("snapshot = %#v", got)
	}
}

func TestQuoteBufferMergeByCreatedAt(t *testing.T) {
	b := NewQuoteBuffer("", 10)
	b.Merge(client.StockQuote{CreatedAt: "2026-03-02 20:00:00", PriceCurrent: 1})
	b.Merge(client.StockQuote{ID: "late-id", CreatedAt: "2026-03-02 20:00:00", PriceCurrent: 3})

	got := b.Snapshot()
	if len(got) != 1 || got[0].ID != "late-id" || got[0].PriceCurrent != 3 {
		t.Fatalf("snapshot = %#v", got)
	}
}

func TestQuoteBufferEmptyKeysDoNotCollide(t *testing.T) {
	b := NewQuoteBuffer("", 10)
	b.Merge(client.StockQuote{ID: "a"})
	b.Merge(client.StockQuote{ID: "b"})
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}
}

func TestQuoteBufferKeepsNewestEntries(t *testing.T) {
	b := NewQuoteBuffer("", 3)
	for i := range 5 {
		b.Merge(client.StockQuote{ID: fmt.Sprintf("q%d", i)})
	}
	got := b.Snapshot()
	if len(got) != 3 || got[0].ID != "q2" || got[2].ID != "q4" {
		t.Fatalf("snapshot = %#v", got)
	}

	b.Replace([]client.StockQuote{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}, {ID: "r4"}})
	got = b.Snapshot()
	if len(got) != 3 || got[0].ID != "r2" {
		t.Fatalf("replace snapshot = %#v", got)
	}
}

func TestQuoteBufferIgnoresOtherSymbols(t *testing.T) {
	b := NewQuoteBuffer("bbca", 10)
	if b.Merge(client.StockQuote{ID: "x", Symbol: "ASII"}) {
		t.Fatalf("quote for another symbol was merged")
	}
	if !b.Merge(client.StockQuote{ID: "y", Symbol: "BBCA"}) {
		t.Fatalf("quote for the viewed symbol was rejected")
	}
}

func alertFor(symbol, message string) Alert {
	return Alert{Message: message, Event: &AlertEvent{Symbol: symbol}}
}

func TestAlertBufferFiltersAndPrepends(t *testing.T) {
	b := NewAlertBuffer("BBCA", DefaultAlertLimit)
	if b.Add(alertFor("ASII", "other")) {
		t.Fatalf("alert for another symbol kept")
	}
	if b.Add(Alert{Message: "no symbol"}) {
		t.Fatalf("alert without symbol kept while filtering")
	}
	for i := range 7 {
		if !b.Add(alertFor("bbca", fmt.Sprintf("m%d", i))) {
			t.Fatalf("case-insensitive match rejected")
		}
	}
	got := b.Snapshot()
	if len(got) != 5 || got[0].Message != "m6" || got[4].Message != "m2" {
		t.Fatalf("alerts = %#v", got)
	}
}

func TestAlertBufferWithoutFilterKeepsEverything(t *testing.T) {
	b := NewAlertBuffer("", 0)
	b.Add(Alert{Message: "plain"})
	b.Add(alertFor("ASII", "x"))
	if got := b.Snapshot(); len(got) != 2 || got[0].Message != "x" {
		t.Fatalf("alerts = %#v", got)
	}
	b.SetSymbol("TLKM")
	if got := b.Snapshot(); len(got) != 0 {
		t.Fatalf("alerts after symbol change = %#v", got)
	}
}

func TestDecodeQuote(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		wantID string
		ok     bool
	}{
		{name: "bare", raw: `{"id":"q1","symbol":"bbca","price_current":10}`, wantID: "q1", ok: true},
		{name: "data envelope", raw: `{"data":{"id":"q2"}}`, wantID: "q2", ok: true},
		{name: "quote envelope", raw: `{"type":"quote","quote":{"id":"q3"}}`, wantID: "q3", ok: true},
		{name: "created_at only", raw: `{"created_at":"2026-03-02 20:00:00"}`, ok: true},
		{name: "malformed", raw: `{"id":`},
		{name: "array", raw: `[{"id":"q1"}]`},
		{name: "string", raw: `"hello"`},
		{name: "no identity", raw: `{"price_current":1}`},
		{name: "wrong field type", raw: `{"id":"q1","price_current":"ten"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := DecodeQuote([]byte(tt.raw))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && q.ID != tt.wantID {
				t.Fatalf("id = %q, want %q", q.ID, tt.wantID)
			}
		})
	}
	if q, _ := DecodeQuote([]byte(`{"id":"q1","symbol":" bbca "}`)); q.Symbol != "BBCA" {
		t.Fatalf("symbol = %q", q.Symbol)
	}
}

func TestDecodeAlert(t *testing.T) {
	a, ok := DecodeAlert([]byte(`"market halted"`))
	if !ok || a.Message != "market halted" || a.Symbol() != "" {
		t.Fatalf("string alert = %#v, %v", a, ok)
	}
	a, ok = DecodeAlert([]byte(`{"type":"popup","message":"cross","event":{"id":"e1","symbol":"BBCA","score_ema":0.8}}`))
	if !ok || a.Symbol() != "BBCA" || a.Event.ScoreEMA == nil || *a.Event.ScoreEMA != 0.8 {
		t.Fatalf("object alert = %#v, %v", a, ok)
	}
	a, ok = DecodeAlert([]byte(`{"data":{"message":"wrapped","event":{"symbol":"ASII"}}}`))
	if !ok || a.Message != "wrapped" || a.Symbol() != "ASII" {
		t.Fatalf("envelope alert = %#v, %v", a, ok)
	}
	if _, ok := DecodeAlert([]byte(`not json`)); ok {
		t.Fatalf("malformed alert accepted")
	}
}

func TestQuoteRefreshDelay(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
	}
	tests := []struct {
		now  time.Time
		want time.Duration
	}{
		{now: at(20, 0), want: time.Minute},
		{now: at(23, 30), want: time.Minute},
		{now: at(3, 59), want: time.Minute},
		{now: at(4, 0), want: 16 * time.Hour},
		{now: at(19, 15), want: 45 * time.Minute},
	}
	for _, tt := range tests {
		if got := QuoteRefreshDelay(tt.now); got != tt.want {
			t.Fatalf("QuoteRefreshDelay(%s) = %s, want %s", tt.now.Format("15:04"), got, tt.want)
		}
	}
}
