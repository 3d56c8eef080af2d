package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"sunstock-dashboard/internal/logging"
)

func testLogger() *logging.Logger {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

type fakeNotifier struct {
	mu     sync.Mutex
	shown  []Notification
	closed []string
}

func (f *fakeNotifier) Show(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, n)
	return nil
}

func (f *fakeNotifier) Close(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, n.Tag)
}

type fakeClient struct {
	url     string
	focused int
}

func (c *fakeClient) URL() string { return c.url }

func (c *fakeClient) Focus(context.Context) error {
	c.focused++
	return nil
}

type fakeClients struct {
	open    []*fakeClient
	claimed int
	opened  []string
}

func (f *fakeClients) Claim(context.Context) error {
	f.claimed++
	return nil
}

func (f *fakeClients) MatchAll(context.Context) ([]Client, error) {
	out := make([]Client, 0, len(f.open))
	for _, c := range f.open {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeClients) OpenWindow(_ context.Context, url string) error {
	f.opened = append(f.opened, url)
	return nil
}

func startWorker(t *testing.T, notifier Notifier, clients Clients) *Worker {
	t.Helper()
	w, err := New(notifier, clients, "http://localhost:8080", testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func TestBuildNotification(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		show     bool
		title    string
		body     string
		url      string
		tag      string
		icon     string
		hasEvent bool
	}{
		{
			name:     "full popup",
			payload:  `{"type":"popup","title":"EMA cross","message":"crossed up","icon":"/i.png","event":{"id":"e1","symbol":"BBCA","score_ema":0.75}}`,
			show:     true,
			title:    "EMA cross",
			body:     "[BBCA] crossed up (score_ema: 0.75)",
			url:      "/detail/daily/BBCA",
			tag:      "e1",
			icon:     "/i.png",
			hasEvent: true,
		},
		{
			name:     "defensive defaults",
			payload:  `{"type":"popup","message":42,"event":{"symbol":7,"score_ema":"high"}}`,
			show:     true,
			title:    "Stock Alert",
			body:     "[UNKNOWN] You have a new alert. (score_ema: -)",
			url:      "/detail/daily/7",
			icon:     "/icons/icon-192.png",
			hasEvent: true,
		},
		{
			name:     "explicit url wins",
			payload:  `{"type":"popup","url":"/detail/news/ASII","event":{"symbol":"ASII","score_ema":1}}`,
			show:     true,
			title:    "Stock Alert",
			body:     "[ASII] You have a new alert. (score_ema: 1)",
			url:      "/detail/news/ASII",
			icon:     "/icons/icon-192.png",
			hasEvent: true,
		},
		{
			name:    "no event",
			payload: `{"type":"popup","message":"hi"}`,
			show:    true,
			title:   "Stock Alert",
			body:    "[UNKNOWN] hi (score_ema: -)",
			url:     "/",
			icon:    "/icons/icon-192.png",
		},
		{name: "other type", payload: `{"type":"digest","message":"x"}`},
		{name: "no type", payload: `{"message":"x"}`},
		{name: "not json", payload: `BBCA moved`},
		{name: "empty", payload: ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := BuildNotification([]byte(tt.payload))
			if ok != tt.show {
				t.Fatalf("shown = %v, want %v", ok, tt.show)
			}
			if !ok {
				return
			}
			if n.Title != tt.title || n.Body != tt.body || n.Data.URL != tt.url || n.Tag != tt.tag || n.Icon != tt.icon {
				t.Fatalf("notification = %#v", n)
			}
			if !n.Renotify || n.Badge != "/icons/icon-32.png" {
				t.Fatalf("renotify/badge = %v %q", n.Renotify, n.Badge)
			}
			if (len(n.Data.Event) > 0) != tt.hasEvent {
				t.Fatalf("event data = %s", n.Data.Event)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:         "0",
		0.25:      "0.25",
		-1.5:      "-1.5",
		1e-6:      "0.000001",
		1e-7:      "1e-7",
		-2.5e-9:   "-2.5e-9",
		123456789: "123456789",
		1e20:      "100000000000000000000",
		1e21:      "1e+21",
		1.5e300:   "1.5e+300",
	}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Fatalf("formatNumber(%v) = %q, want %q", in, got, want)
		}
	}

	n, ok := BuildNotification([]byte(`{"type":"popup","message":"m","event":{"symbol":"BBCA","score_ema":1e-7}}`))
	if !ok || n.Body != "[BBCA] m (score_ema: 1e-7)" {
		t.Fatalf("body = %q, shown = %v", n.Body, ok)
	}
}

func TestBuildNotificationKeepsEventAndMessage(t *testing.T) {
	n, _ := BuildNotification([]byte(`{"type":"popup","message":"m","event":{"id":"e9","symbol":"TLKM"}}`))
	var event map[string]any
	if err := json.Unmarshal(n.Data.Event, &event); err != nil || event["id"] != "e9" {
		t.Fatalf("event = %s, %v", n.Data.Event, err)
	}
	if n.Data.Message != "m" {
		t.Fatalf("message = %q", n.Data.Message)
	}
}

func TestWorkerLifecycle(t *testing.T) {
	clients := &fakeClients{}
	w := startWorker(t, &fakeNotifier{}, clients)
	if w.Lifecycle() != LifecycleParsed {
		t.Fatalf("lifecycle = %s", w.Lifecycle())
	}
	if err := w.Post(context.Background(), InstallMsg{}); err != nil {
		t.Fatalf("install error = %v", err)
	}
	if w.Lifecycle() != LifecycleInstalled || !w.SkipWaiting() {
		t.Fatalf("lifecycle = %s, skipWaiting = %v", w.Lifecycle(), w.SkipWaiting())
	}
	if err := w.Post(context.Background(), ActivateMsg{}); err != nil {
		t.Fatalf("activate error = %v", err)
	}
	if w.Lifecycle() != LifecycleActivated || clients.claimed != 1 {
		t.Fatalf("lifecycle = %s, claimed = %d", w.Lifecycle(), clients.claimed)
	}
}

func TestWorkerShowsPopupPushes(t *testing.T) {
	notifier := &fakeNotifier{}
	w := startWorker(t, notifier, &fakeClients{})
	_ = w.Post(context.Background(), PushMsg{Data: []byte(`{"type":"popup","event":{"id":"e1","symbol":"BBCA"}}`)})
	_ = w.Post(context.Background(), PushMsg{Data: []byte(`not json`)})
	if !w.Dispatch(context.Background(), PushMsg{Data: []byte(`{"type":"popup","event":{"id":"e1","symbol":"BBCA"}}`)}) {
		t.Fatalf("Dispatch() = false")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		notifier.mu.Lock()
		n := len(notifier.shown)
		notifier.mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("shown = %d, want 2 (same tag re-notifies)", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotificationClickFocusesOrOpens(t *testing.T) {
	notifier := &fakeNotifier{}
	viewing := &fakeClient{url: "http://localhost:8080/detail/daily/BBCA"}
	other := &fakeClient{url: "http://localhost:8080/"}
	clients := &fakeClients{open: []*fakeClient{other, viewing}}
	w := startWorker(t, notifier, clients)

	click := func(tag, target string) {
		t.Helper()
		err := w.Post(context.Background(), NotificationClickMsg{Notification: Notification{Tag: tag, Data: NotificationData{URL: target}}})
		if err != nil {
			t.Fatalf("click error = %v", err)
		}
	}

	click("e1", "/detail/daily/BBCA")
	if viewing.focused != 1 || len(clients.opened) != 0 {
		t.Fatalf("focused = %d, opened = %v", viewing.focused, clients.opened)
	}
	click("e2", "/detail/daily/ASII")
	if len(clients.opened) != 1 || clients.opened[0] != "http://localhost:8080/detail/daily/ASII" {
		t.Fatalf("opened = %v", clients.opened)
	}
	if len(notifier.closed) != 2 || notifier.closed[0] != "e1" {
		t.Fatalf("closed = %v", notifier.closed)
	}
}

func TestPostAfterStop(t *testing.T) {
	w, _ := New(nil, nil, "http://localhost:8080", testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
	if err := w.Post(context.Background(), InstallMsg{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Post() after stop = %v", err)
	}
	if w.Dispatch(context.Background(), InstallMsg{}) {
		t.Fatalf("Dispatch() after stop = true")
	}
}
