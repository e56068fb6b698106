package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events one editor save produces.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the config at path whenever it changes on disk and passes the
// result to onChange. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that saves
// which replace the file (write to temp, then rename) keep being seen. A
// reload that fails to parse or validate is logged and dropped; onChange only
// ever receives valid configs, and never the same config twice in a row.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return watch(ctx, path, onChange, nil)
}

// watch is Watch with a hook called once the directory watch is registered.
func watch(ctx context.Context, path string, onChange func(*Config), ready func()) error {
	path = filepath.Clean(path)
	current, err := Load(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	slog.Info("config: watching for changes", "path", path)
	if ready != nil {
		ready()
	}

	// The first event of a burst arms the timer; later events ride along, so
	// a file rewritten faster than reloadDelay still reloads.
	pending := time.NewTimer(reloadDelay)
	pending.Stop()
	defer pending.Stop()
	armed := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if armed {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending.Reset(reloadDelay)
				armed = true
			}

		case <-pending.C:
			armed = false
			next, err := Load(path)
			if err != nil {
				slog.Warn("config: reload rejected, keeping previous", "path", path, "err", err)
				continue
			}
			if *next == *current {
				slog.Debug("config: file touched, no changes", "path", path)
				continue
			}
			current = next
			slog.Info("config: reloaded", "path", path)
			onChange(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
