package worker

import (
	"context"
	"encoding/json"
)

// Notification is what the worker asks the host to display.
type Notification struct {
	Title    string
	Body     string
	Icon     string
	Badge    string
	Tag      string
	Renotify bool
	Data     NotificationData
}

// NotificationData travels with a notification and comes back on click.
type NotificationData struct {
	URL     string          `json:"url"`
	Event   json.RawMessage `json:"event"`
	Message string          `json:"message"`
}

// Notifier displays and dismisses notifications.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
	Close(n Notification)
}

// Client is one open dashboard view.
type Client interface {
	URL() string
	Focus(ctx context.Context) error
}

// Clients is the set of dashboard views the worker can reach.
type Clients interface {
	Claim(ctx context.Context) error
	MatchAll(ctx context.Context) ([]Client, error)
	OpenWindow(ctx context.Context, url string) error
}
