package runtime

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sunstock-dashboard/internal/app"
	"sunstock-dashboard/internal/config"
	"sunstock-dashboard/internal/logging"
)

func testLogger() *logging.Logger {
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return logger
}

func TestPushBaseURL(t *testing.T) {
	tests := []struct {
		listen string
		want   string
	}{
		{listen: "", want: ""},
		{listen: "127.0.0.1:8765", want: "http://127.0.0.1:8765"},
		{listen: ":8765", want: "http://127.0.0.1:8765"},
		{listen: "0.0.0.0:9000", want: "http://127.0.0.1:9000"},
		{listen: "[::]:9000", want: "http://127.0.0.1:9000"},
		{listen: "push.local:80", want: "http://push.local:80"},
	}
	for _, tt := range tests {
		if got := pushBaseURL(tt.listen); got != tt.want {
			t.Fatalf("pushBaseURL(%q) = %q, want %q", tt.listen, got, tt.want)
		}
	}
}

func TestControllerStartRejectsInvalidOptions(t *testing.T) {
	controller := NewController(nil, "test")
	err := controller.Start(config.Options{BaseURL: "https://stocks.example.com", Email: "user@example.com"}, testLogger(), StartHooks{})
	if err == nil {
		t.Fatalf("Start() error = nil, want validation error")
	}
	if controller.IsRunning() {
		t.Fatalf("IsRunning() = true after rejected start")
	}
}

func TestControllerReportsLoginRequiredOnExit(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	exits := make(chan error, 1)
	controller := NewController(nil, "test")
	opts := config.ApplyDefaults(config.Options{
		BaseURL:    server.URL,
		ProfileDir: t.TempDir(),
		PushListen: "127.0.0.1:0",
	})
	if err := controller.Start(opts, testLogger(), StartHooks{OnExit: func(err error) { exits <- err }}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case err := <-exits:
		if !errors.Is(err, app.ErrLoginRequired) {
			t.Fatalf("exit error = %v, want ErrLoginRequired", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("service never exited")
	}
	if !controller.Wait(time.Second) {
		t.Fatalf("Wait() timed out")
	}
	if controller.IsRunning() || controller.Dashboard() != nil {
		t.Fatalf("controller still reports a running dashboard")
	}
}
