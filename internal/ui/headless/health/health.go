package health

import (
	"fmt"
	"time"

	"sunstock-dashboard/internal/stream"
)

const RefreshRate = 5 * time.Second

const (
	warnAfter  = 2 * time.Minute
	staleAfter = 10 * time.Minute
)

type Kind int

const (
	Missing Kind = iota
	Active
	Warn
	Stale
)

// Feed is what the dashboard knows about one live stream.
type Feed struct {
	Name        string
	State       stream.State
	LastMessage time.Time
}

type Row struct {
	Name   string
	Kind   Kind
	Reason string
}

// Compute classifies each feed by connection state and data age. A feed
// that is down but still delivered recently (through polling) is a warning
// rather than stale.
func Compute(feeds []Feed, now time.Time) []Row {
	rows := make([]Row, 0, len(feeds))
	for _, feed := range feeds {
		row := Row{Name: feed.Name, Kind: Missing, Reason: "Not started."}
		age := time.Duration(-1)
		if !feed.LastMessage.IsZero() {
			age = now.Sub(feed.LastMessage).Round(time.Second)
		}
		switch feed.State {
		case stream.StateIdle, stream.StateStopped, "":
		case stream.StateOpen:
			row.Kind = Active
			if age >= 0 {
				row.Reason = fmt.Sprintf("Live, last update %s ago.", age)
			} else {
				row.Reason = "Live, waiting for data."
			}
		default:
			switch {
			case age >= 0 && age <= warnAfter:
				row.Kind = Warn
				row.Reason = fmt.Sprintf("Reconnecting, last update %s ago.", age)
			case age >= 0 && age <= staleAfter:
				row.Kind = Warn
				row.Reason = fmt.Sprintf("Reconnecting, no updates for %s.", age)
			case age >= 0:
				row.Kind = Stale
				row.Reason = fmt.Sprintf("Reconnecting, no updates for %s.", age)
			default:
				row.Kind = Stale
				row.Reason = "Connecting, no data yet."
			}
		}
		rows = append(rows, row)
	}
	return rows
}
