package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"sunstock-dashboard/internal/logging"
)

func useTempConfigDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("AppData", root)
	} else {
		t.Setenv("XDG_CONFIG_HOME", root)
	}
	return root
}

func TestSettingsSaveLoadAndPath(t *testing.T) {
	root := useTempConfigDir(t)

	path, err := SettingsPath()
	if err != nil {
		t.Fatalf("SettingsPath() error = %v", err)
	}
	if want := filepath.Join(root, "sunstock", "dashboard-settings.json"); path != want {
		t.Fatalf("SettingsPath() = %q, want %q", path, want)
	}

	in := DashboardSettings{
		BaseURL:    "https://stocks.example.com",
		LastSymbol: "BBCA",
		PushListen: "127.0.0.1:9000",
		Debug:      true,
	}
	if err := SaveSettings(in); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	out, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if out != in {
		t.Fatalf("loaded settings = %#v", out)
	}
}

func TestMergeOptionsWithSettings_PrefersCLI(t *testing.T) {
	merged := MergeOptionsWithSettings(
		Options{BaseURL: "https://cli.example.com"},
		DashboardSettings{
			BaseURL:    "https://saved.example.com",
			LastSymbol: "TLKM",
			PushListen: "127.0.0.1:9000",
			Debug:      true,
		},
	)
	if merged.BaseURL != "https://cli.example.com" {
		t.Fatalf("BaseURL = %q", merged.BaseURL)
	}
	if merged.Symbol != "TLKM" || merged.PushListen != "127.0.0.1:9000" || !merged.Debug {
		t.Fatalf("merged = %#v", merged)
	}
}

func TestSettingsFromOptionsOmitsCredentials(t *testing.T) {
	s := SettingsFromOptions(Options{BaseURL: " https://x.example ", Email: "a@b.c", Password: "pw", Symbol: "bbca"})
	if s.BaseURL != "https://x.example" || s.LastSymbol != "BBCA" {
		t.Fatalf("settings = %#v", s)
	}
}

func TestWatchSettingsReportsExternalEdit(t *testing.T) {
	useTempConfigDir(t)
	if err := SaveSettings(DashboardSettings{BaseURL: "http://localhost:8080"}); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan DashboardSettings, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchSettings(ctx, logger, func(s DashboardSettings) { changes <- s })
	}()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	if err := SaveSettings(DashboardSettings{BaseURL: "http://localhost:8080", LastSymbol: "ASII", Debug: true}); err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	select {
	case got := <-changes:
		if got.LastSymbol != "ASII" || !got.Debug {
			t.Fatalf("change = %#v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for settings change")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("WatchSettings() error = %v", err)
	}
}

func TestLoadWatchlistNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	body := "watchlist:\n  - symbol: bbca\n    name: Bank Central Asia\n  - symbol: \" tlkm \"\n  - symbol: BBCA\n  - symbol: \"\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	entries, err := LoadWatchlist(path)
	if err != nil {
		t.Fatalf("LoadWatchlist() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Symbol != "BBCA" || entries[0].Name != "Bank Central Asia" || entries[1].Symbol != "TLKM" {
		t.Fatalf("entries = %#v", entries)
	}

	if err := SaveWatchlist(path, entries[:1]); err != nil {
		t.Fatalf("SaveWatchlist() error = %v", err)
	}
	again, err := LoadWatchlist(path)
	if err != nil || len(again) != 1 || again[0].Symbol != "BBCA" {
		t.Fatalf("reloaded = %#v, %v", again, err)
	}
}

func TestLoadWatchlistEmptyPath(t *testing.T) {
	entries, err := LoadWatchlist("  ")
	if err != nil || entries != nil {
		t.Fatalf("LoadWatchlist(empty) = %#v, %v", entries, err)
	}
}
