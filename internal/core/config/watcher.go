package config

import (
	"context"
	"log"
	"time"

	"implementor/internal/core/watcher"
	"implementor/internal/shared/observability"
)

// Watcher monitors a configuration file for changes.
type Watcher struct {
	path     string
	debounce time.Duration
	callback func(*Config)
	fw       *watcher.Watcher
}

// NewWatcher creates a new configuration watcher.
func NewWatcher(path string, callback func(*Config)) *Watcher {
	return &Watcher{
		path:     path,
		debounce: 100 * time.Millisecond,
		callback: callback,
	}
}

// Start begins watching the configuration file.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := watcher.NewWatcher(w.debounce, func([]string) { w.reload() })
	if err != nil {
		return err
	}
	if err := fw.Watch(ctx, []string{w.path}); err != nil {
		fw.Close()
		return err
	}
	w.fw = fw
	log.Printf("Starting config watcher on %s", w.path)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	if w.fw != nil {
		w.fw.Close()
	}
}

func (w *Watcher) reload() {
	log.Printf("Config file change detected, reloading %s", w.path)
	cfg, err := Load(w.path)
	if err != nil {
		observability.ConfigReloadsTotal.WithLabelValues("error").Inc()
		log.Printf("Failed to reload configuration: %v", err)
		return
	}
	ApplyEnvOverrides(cfg)
	observability.ConfigReloadsTotal.WithLabelValues("ok").Inc()

	if w.callback != nil {
		w.callback(cfg)
	}
}
