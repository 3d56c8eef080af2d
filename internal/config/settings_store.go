package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

type DashboardSettings struct {
	BaseURL    string `json:"base_url"`
	APIBaseURL string `json:"api_base_url,omitempty"`
	LastSymbol string `json:"last_symbol,omitempty"`
	Watchlist  string `json:"watchlist,omitempty"`
	PushListen string `json:"push_listen,omitempty"`
	Debug      bool   `json:"debug"`
}

func SettingsPath() (string, error) {
	root, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "sunstock", "dashboard-settings.json"), nil
}

func LoadSettings() (DashboardSettings, error) {
	path, err := SettingsPath()
	if err != nil {
		return DashboardSettings{}, err
	}
	return loadSettingsFile(path)
}

func loadSettingsFile(path string) (DashboardSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DashboardSettings{}, err
	}
	var settings DashboardSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return DashboardSettings{}, err
	}
	return settings, nil
}

// SaveSettings writes through a temp file and rename so watchers never see a
// half-written document.
func SaveSettings(settings DashboardSettings) error {
	path, err := SettingsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// MergeOptionsWithSettings fills CLI gaps from saved settings. CLI values win.
func MergeOptionsWithSettings(cli Options, saved DashboardSettings) Options {
	if strings.TrimSpace(cli.BaseURL) == "" {
		cli.BaseURL = saved.BaseURL
	}
	if strings.TrimSpace(cli.APIBaseURL) == "" {
		cli.APIBaseURL = saved.APIBaseURL
	}
	if strings.TrimSpace(cli.Symbol) == "" {
		cli.Symbol = saved.LastSymbol
	}
	if strings.TrimSpace(cli.Watchlist) == "" {
		cli.Watchlist = saved.Watchlist
	}
	if strings.TrimSpace(cli.PushListen) == "" {
		cli.PushListen = saved.PushListen
	}
	if !cli.Debug {
		cli.Debug = saved.Debug
	}
	return cli
}

// SettingsFromOptions captures the persistable subset of opts. Credentials
// are never written to the settings file.
func SettingsFromOptions(opts Options) DashboardSettings {
	return DashboardSettings{
		BaseURL:    strings.TrimSpace(opts.BaseURL),
		APIBaseURL: strings.TrimSpace(opts.APIBaseURL),
		LastSymbol: strings.ToUpper(strings.TrimSpace(opts.Symbol)),
		Watchlist:  strings.TrimSpace(opts.Watchlist),
		PushListen: strings.TrimSpace(opts.PushListen),
		Debug:      opts.Debug,
	}
}
