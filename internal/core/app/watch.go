package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"implementor/internal/core/config"
	"implementor/internal/core/watcher"
	"implementor/internal/engine/autoload"
	"implementor/internal/shared/util"
)

// composerLockFile changes on every install or update, even when
// composer.json does not.
const composerLockFile = "composer.lock"

// Watch keeps the autoload table current until ctx is done: edits to the
// config file go through OnConfigChange and edits to the composer manifests
// trigger a throttled refresh. An empty configPath disables config reloads.
func (a *App) Watch(ctx context.Context, configPath string) error {
	cfg := a.currentConfig()
	limiter := util.NewPerSecondLimiter(cfg.Watch.MaxRefreshPerSecond)

	manifests := &manifestWatch{
		debounce: cfg.Watch.Debounce,
		onChange: func(paths []string) {
			if !a.currentConfig().Autoload.UseComposer {
				return
			}
			if err := limiter.Wait(ctx, 1); err != nil {
				return
			}
			a.logger.Info("composer manifests changed", "paths", paths)
			_, _ = a.RefreshAutoloads(ctx)
		},
	}
	if err := manifests.arm(ctx, a.composerDir(cfg)); err != nil {
		return err
	}
	defer manifests.close()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			cw := config.NewWatcher(configPath, func(next *config.Config) {
				if err := limiter.Wait(ctx, 1); err != nil {
					return
				}
				_, _ = a.OnConfigChange(ctx, next)
				if err := manifests.arm(ctx, a.composerDir(next)); err != nil {
					a.logger.Warn("composer manifests not watched", "dir", a.composerDir(next), "error", err)
				}
			})
			if err := cw.Start(ctx); err != nil {
				return err
			}
			defer cw.Stop()
		} else {
			a.logger.Debug("config file absent, reloads disabled", "path", configPath)
		}
	}

	a.logger.Info("watching for autoload changes", "config", configPath, "composer_dir", manifests.current())
	<-ctx.Done()
	return nil
}

// manifestWatch watches the composer manifests of one directory and moves
// to another when the composer path changes.
type manifestWatch struct {
	debounce time.Duration
	onChange func([]string)

	mu  sync.Mutex
	dir string
	w   *watcher.Watcher
}

// arm watches the manifests in dir. It is a no-op when dir is already
// watched; on failure the previous directory stays watched.
func (m *manifestWatch) arm(ctx context.Context, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.w != nil && m.dir == dir {
		return nil
	}

	next, err := watcher.NewWatcher(m.debounce, m.onChange)
	if err != nil {
		return err
	}
	if err := next.Watch(ctx, []string{
		filepath.Join(dir, autoload.ManifestFile),
		filepath.Join(dir, composerLockFile),
	}); err != nil {
		_ = next.Close()
		return err
	}
	if m.w != nil {
		_ = m.w.Close()
	}
	m.w, m.dir = next, dir
	return nil
}

func (m *manifestWatch) current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir
}

func (m *manifestWatch) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.w != nil {
		_ = m.w.Close()
		m.w = nil
	}
}
