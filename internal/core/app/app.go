package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"implementor/internal/core/config"
	"implementor/internal/core/ports"
	"implementor/internal/data/snapshot"
	"implementor/internal/engine/autoload"
	"implementor/internal/engine/hierarchy"
)

type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	logger   *slog.Logger
	tables   *autoload.Holder
	snapshot ports.SnapshotStore

	// composerTable is the last table read from composer manifests. It is
	// only re-read when composer settings change or a refresh is requested.
	// composerStamp records the manifests it was read from.
	composerTable *autoload.Table
	composerStamp string
	lastRefresh   ports.RefreshResult
	buildMu       sync.Mutex

	// cfgGen counts configuration changes.
	cfgGen uint64
	cfgMu  sync.RWMutex
}

type Option func(*App)

func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithSnapshotStore overrides the store opened from the configuration.
func WithSnapshotStore(store ports.SnapshotStore) Option {
	return func(a *App) { a.snapshot = store }
}

func New(cfg *config.Config, paths config.ResolvedPaths, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	a := &App{
		Config: cfg,
		Paths:  paths,
		logger: slog.Default(),
		tables: autoload.NewHolder(nil),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.snapshot == nil && cfg.Snapshot.Enabled {
		store, err := snapshot.Open(paths.SnapshotPath)
		if err != nil {
			a.logger.Warn("autoload snapshot unavailable", "path", paths.SnapshotPath, "error", err)
		} else {
			a.snapshot = store
		}
	}
	return a, nil
}

// Init makes the autoload table usable. A stored snapshot is reused when it
// was built from the current autoload settings and composer manifests;
// otherwise the table is built from configuration.
func (a *App) Init(ctx context.Context) error {
	if a.snapshot != nil {
		stored, ok, err := a.snapshot.Load(ctx)
		switch {
		case err != nil:
			a.logger.Warn("failed to load autoload snapshot", "error", err)
		case ok && stored.Fingerprint == a.currentFingerprint():
			a.tables.Swap(stored.Table)
			roots, classmap := stored.Table.Len()
			a.logger.Debug("autoload snapshot loaded", "roots", roots, "classmap", classmap)
			return nil
		case ok:
			a.logger.Info("autoload snapshot is stale, rebuilding", "path", a.Paths.SnapshotPath)
		}
	}
	_, err := a.RefreshAutoloads(ctx)
	return err
}

// Table returns the active autoload table.
func (a *App) Table() *autoload.Table {
	return a.tables.Load()
}

func (a *App) currentConfig() *config.Config {
	cfg, _ := a.configState()
	return cfg
}

func (a *App) configState() (*config.Config, uint64) {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.Config, a.cfgGen
}

func (a *App) composerDir(cfg *config.Config) string {
	return config.ResolveRelative(a.Paths.WorkspaceRoot, cfg.Autoload.ComposerPath)
}

// currentFingerprint is the fingerprint a table built now would carry.
func (a *App) currentFingerprint() string {
	cfg := a.currentConfig()
	stamp := ""
	if cfg.Autoload.UseComposer {
		stamp = composerStamp(a.composerDir(cfg))
	}
	return tableFingerprint(cfg, stamp)
}

// walkerFor builds a walker bound to a single table snapshot so a refresh
// during a resolution cannot change what the resolution sees.
func (a *App) walkerFor(table *autoload.Table) (*hierarchy.Walker, error) {
	cfg := a.currentConfig()
	locator, err := autoload.NewLocator(a.Paths.WorkspaceRoot, autoload.StaticTable{T: table},
		autoload.WithLogger(a.logger),
		autoload.WithExcludeDirs(cfg.Autoload.ExcludeDirs...),
	)
	if err != nil {
		return nil, err
	}
	locate := hierarchy.LocatorFunc(func(ctx context.Context, identifier string) (hierarchy.Unit, error) {
		unit, err := locator.Locate(ctx, identifier)
		if err != nil {
			return nil, err
		}
		return unit, nil
	})
	return hierarchy.NewWalker(locate, hierarchy.WithLogger(a.logger)), nil
}

func (a *App) Close() error {
	if a.snapshot == nil {
		return nil
	}
	return a.snapshot.Close()
}
