package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type WatchEntry struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name,omitempty"`
}

type WatchlistFile struct {
	Watchlist []WatchEntry `yaml:"watchlist"`
}

// LoadWatchlist reads a YAML watchlist. Symbols are upper-cased and
// duplicates keep their first position.
func LoadWatchlist(path string) ([]WatchEntry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	var file WatchlistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}
	seen := map[string]struct{}{}
	out := make([]WatchEntry, 0, len(file.Watchlist))
	for _, entry := range file.Watchlist {
		symbol := strings.ToUpper(strings.TrimSpace(entry.Symbol))
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, WatchEntry{Symbol: symbol, Name: strings.TrimSpace(entry.Name)})
	}
	return out, nil
}

func SaveWatchlist(path string, entries []WatchEntry) error {
	payload, err := yaml.Marshal(WatchlistFile{Watchlist: entries})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
