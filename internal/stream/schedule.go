package stream

import "time"

const (
	activeWindowStartHour = 20
	activeWindowEndHour   = 4
	activeRefreshInterval = time.Minute
)

// InActiveWindow reports whether now falls in the 20:00-04:00 local trading
// watch window.
func InActiveWindow(now time.Time) bool {
	hour := now.Hour()
	return hour >= activeWindowStartHour || hour < activeWindowEndHour
}

// QuoteRefreshDelay is how long to wait before reloading the quote series:
// one minute inside the watch window, otherwise until the window next opens.
func QuoteRefreshDelay(now time.Time) time.Duration {
	if InActiveWindow(now) {
		return activeRefreshInterval
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), activeWindowStartHour, 0, 0, 0, now.Location())
	return next.Sub(now)
}
