package app

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/featuregrid/internal/ctxlog"
)

// reloadDebounce batches the bursts of events editors produce on save.
const reloadDebounce = 100 * time.Millisecond

// watch re-evaluates a configuration whenever its file changes, until ctx
// is done. The parent directories are watched so files replaced by rename
// are picked up as well.
func (a *App) watch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	targets := make(map[string]string, len(a.config.ConfigPaths))
	dirs := make(map[string]struct{})
	for _, path := range a.config.ConfigPaths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		targets[abs] = path
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for _, dir := range slices.Sorted(maps.Keys(dirs)) {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	logger.Info("Watching for configuration changes.", "configurations", len(targets))

	pending := make(map[string]struct{})
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch stopped.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path, ok := targets[filepath.Clean(event.Name)]
			if !ok || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			logger.Debug("Configuration changed.", "path", path, "op", event.Op.String())
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerC = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("File watcher error.", "error", err)

		case <-timerC:
			timerC = nil
			for _, path := range slices.Sorted(maps.Keys(pending)) {
				a.reload(ctx, path)
			}
			clear(pending)
		}
	}
}

// reload evaluates the configuration at path again and emits the report.
func (a *App) reload(ctx context.Context, path string) {
	logger := ctxlog.FromContext(ctx)

	r, err := a.evaluateFile(ctx, path)
	if err == nil {
		err = a.emit(ctx, r)
	}
	a.metrics.ObserveReload(err)
	if err != nil {
		logger.Error("Reload failed.", "path", path, "error", err)
		return
	}
	logger.Info("Configuration reloaded.", "path", path, "valid", r.Valid)
}
