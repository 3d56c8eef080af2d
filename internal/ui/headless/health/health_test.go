package health

import (
	"strings"
	"testing"
	"time"

	"sunstock-dashboard/internal/stream"
)

func TestCompute_ClassifiesFeedsByStateAndAge(t *testing.T) {
	now := time.Date(2026, 10, 16, 21, 0, 0, 0, time.UTC)
	feeds := []Feed{
		{Name: "quotes", State: stream.StateOpen, LastMessage: now.Add(-30 * time.Second)},
		{Name: "alerts", State: stream.StateOpen},
		{Name: "recent", State: stream.StateClosed, LastMessage: now.Add(-time.Minute)},
		{Name: "aging", State: stream.StateConnecting, LastMessage: now.Add(-5 * time.Minute)},
		{Name: "old", State: stream.StateClosed, LastMessage: now.Add(-time.Hour)},
		{Name: "never", State: stream.StateConnecting},
		{Name: "off", State: stream.StateStopped, LastMessage: now},
	}
	want := []Kind{Active, Active, Warn, Warn, Stale, Stale, Missing}

	rows := Compute(feeds, now)
	if len(rows) != len(want) {
		t.Fatalf("Compute() returned %d rows, want %d", len(rows), len(want))
	}
	for i, row := range rows {
		if row.Name != feeds[i].Name {
			t.Fatalf("row %d name = %q, want %q", i, row.Name, feeds[i].Name)
		}
		if row.Kind != want[i] {
			t.Fatalf("row %q kind = %v, want %v (%s)", row.Name, row.Kind, want[i], row.Reason)
		}
	}
	if !strings.Contains(rows[0].Reason, "30s") {
		t.Fatalf("live reason = %q, want age", rows[0].Reason)
	}
	if rows[1].Reason != "Live, waiting for data." {
		t.Fatalf("waiting reason = %q", rows[1].Reason)
	}
}
