package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"sunstock-dashboard/internal/logging"
)

const settingsDebounce = 200 * time.Millisecond

// WatchSettings calls onChange with the re-read settings whenever the file at
// SettingsPath changes, until ctx is done.
func WatchSettings(ctx context.Context, logger *logging.Logger, onChange func(DashboardSettings)) error {
	path, err := SettingsPath()
	if err != nil {
		return err
	}
	return watchSettingsFile(ctx, path, logger, onChange)
}

func watchSettingsFile(ctx context.Context, path string, logger *logging.Logger, onChange func(DashboardSettings)) error {
	if logger == nil {
		panic("config.WatchSettings: logger must not be nil")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: SaveSettings replaces the file by rename.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch settings directory %s: %w", dir, err)
	}
	logger.Debugf("watching settings: %s", path)

	target := filepath.Clean(path)
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			logger.Debug("stopping settings watcher: context canceled")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(settingsDebounce)
		case <-debounce:
			debounce = nil
			settings, loadErr := loadSettingsFile(path)
			if loadErr != nil {
				logger.Debug("ignoring unreadable settings update", logging.Field("error", loadErr))
				continue
			}
			onChange(settings)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("settings watcher error", logging.Field("error", watchErr))
		}
	}
}
