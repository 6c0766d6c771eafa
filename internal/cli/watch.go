package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// WatchReplay replays the script and replays it again on every change until
// ctx is done. Step failures are reported and do not stop the watcher.
func WatchReplay(ctx context.Context, opts ReplayOptions) error {
	opts.defaults()
	logger := opts.Logger

	path, err := filepath.Abs(opts.ScriptPath)
	if err != nil {
		return err
	}
	opts.ScriptPath = path

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save, so the directory is watched.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	logger.Info("Starting Watcher", "path", path)

	replayOnce := func() {
		if _, err := Replay(ctx, opts); err != nil {
			logger.Error("Replay failed", "err", err)
			printSystemMessage(opts.Out, "Replay failed: %v", err)
		}
		printSystemMessage(opts.Out, "Waiting for changes...")
	}
	replayOnce()

	var debounce *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("Stopping watcher")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			logger.Debug("Change detected", "event", ev.Op.String())
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				debounce.Reset(watchDebounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			printSystemMessage(opts.Out, "Change detected in '%s'.", filepath.Base(path))
			replayOnce()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", "err", err)
		}
	}
}
