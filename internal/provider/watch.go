package provider

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDebounce coalesces bursts of plugin directory changes
// into a single reload.
const DefaultReloadDebounce = 500 * time.Millisecond

// WatchDirs watches the given plugin directories and calls reload after
// changes settle. Nonexistent directories are skipped. Blocks until ctx
// is cancelled; intended to run on its own goroutine.
//
// Reload failures are logged and watching continues; a broken plugin
// drop must not take down the running instance.
func WatchDirs(ctx context.Context, dirs []string, debounce time.Duration, reload func() error) error {
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := 0
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			slog.Warn("cannot watch plugin directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			continue
		}
		watched++
	}
	if watched == 0 {
		// Nothing to watch; reloads still work on demand.
		<-ctx.Done()
		return ctx.Err()
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("plugin watcher error", slog.String("error", err.Error()))

		case <-timerC:
			timer = nil
			timerC = nil
			if err := reload(); err != nil {
				slog.Warn("provider reload failed", slog.String("error", err.Error()))
			}
		}
	}
}
