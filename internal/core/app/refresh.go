package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"implementor/internal/core/config"
	"implementor/internal/core/ports"
	"implementor/internal/engine/autoload"
	"implementor/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	sourceManual   = "manual"
	sourceComposer = "composer"
)

// RefreshAutoloads rebuilds the autoload table, rereading composer manifests
// when composer use is enabled, and swaps it in. On failure the previous
// table stays active.
func (a *App) RefreshAutoloads(ctx context.Context) (ports.RefreshResult, error) {
	return a.rebuild(ctx, true)
}

// OnConfigChange installs cfg and rebuilds the table. Composer manifests are
// only reread when composer use was switched on or its path changed.
func (a *App) OnConfigChange(ctx context.Context, cfg *config.Config) (ports.RefreshResult, error) {
	a.cfgMu.Lock()
	old := a.Config
	a.Config = cfg
	a.cfgGen++
	a.Paths.ComposerDir = config.ResolveRelative(a.Paths.WorkspaceRoot, cfg.Autoload.ComposerPath)
	a.cfgMu.Unlock()

	reread := cfg.Autoload.UseComposer &&
		(!old.Autoload.UseComposer || old.Autoload.ComposerPath != cfg.Autoload.ComposerPath)
	a.logger.Info("configuration changed", "use_composer", cfg.Autoload.UseComposer, "reread_composer", reread)
	return a.rebuild(ctx, reread)
}

func (a *App) rebuild(ctx context.Context, rereadComposer bool) (ports.RefreshResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.RefreshAutoloads",
		trace.WithAttributes(attribute.Bool("reread_composer", rereadComposer)))
	defer span.End()
	start := time.Now()

	// A caller only joins a build that started after the configuration it
	// saw was installed and that rereads composer if it asked for that.
	_, gen := a.configState()
	key := fmt.Sprintf("%d/%t", gen, rereadComposer)
	table, err := a.tables.Refresh(ctx, key, func(ctx context.Context) (*autoload.Table, error) {
		t, fingerprint, err := a.buildTable(ctx, a.currentConfig(), rereadComposer)
		if err != nil {
			return nil, err
		}
		if a.snapshot != nil {
			if err := a.snapshot.Save(ctx, ports.StoredTable{Table: t, Fingerprint: fingerprint}); err != nil {
				a.logger.Warn("failed to persist autoload snapshot", "error", err)
			}
		}
		return t, nil
	})
	observability.AutoloadRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.AutoloadRefreshTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		a.logger.Error("autoload refresh failed, keeping previous table", "error", err)
		return ports.RefreshResult{}, err
	}
	observability.AutoloadRefreshTotal.WithLabelValues("ok").Inc()

	roots, classmap := table.Len()
	observability.AutoloadEntries.WithLabelValues(autoload.StrategyPrefix).Set(float64(roots))
	observability.AutoloadEntries.WithLabelValues(autoload.StrategyClassmap).Set(float64(classmap))

	a.buildMu.Lock()
	result := a.lastRefresh
	a.buildMu.Unlock()
	for _, w := range result.Warnings {
		a.logger.Warn("package manifest skipped", "warning", w)
	}
	span.SetAttributes(attribute.Int("roots", roots), attribute.Int("classmap", classmap))
	a.logger.Info("autoload table refreshed", "source", result.Source, "roots", roots,
		"classmap", classmap, "packages", result.Packages, "warnings", len(result.Warnings))
	return result, nil
}

// buildTable builds the table for cfg and returns it with its fingerprint.
// The prefix roots come either from composer or from the manual roots, never
// both; configured classmap entries apply to either source.
func (a *App) buildTable(ctx context.Context, cfg *config.Config, rereadComposer bool) (*autoload.Table, string, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	res := ports.RefreshResult{Source: sourceManual}
	b := autoload.NewBuilder().SetExtension(cfg.Workspace.Extension)

	if cfg.Autoload.UseComposer {
		if rereadComposer || a.composerTable == nil {
			stamp := composerStamp(a.composerDir(cfg))
			reader := autoload.NewComposerReader(a.Paths.WorkspaceRoot,
				autoload.WithComposerLogger(a.logger),
				autoload.WithComposerExtension(cfg.Workspace.Extension),
			)
			read, err := reader.Read(ctx, cfg.Autoload.ComposerPath)
			if err != nil {
				return nil, "", err
			}
			a.composerTable = read.Table
			a.composerStamp = stamp
			res.Packages = read.Packages
			for _, w := range read.Warnings {
				res.Warnings = append(res.Warnings, w.Error())
			}
		} else {
			res.Packages = a.lastRefresh.Packages
			res.Warnings = a.lastRefresh.Warnings
		}
		b.Merge(a.composerTable)
		res.Source = sourceComposer
		if len(cfg.Autoload.Roots) > 0 {
			a.logger.Warn("manual autoload roots ignored while composer is enabled", "roots", len(cfg.Autoload.Roots))
		}
	} else {
		a.composerTable = nil
		a.composerStamp = ""
		for _, r := range cfg.Autoload.Roots {
			b.AddRoot(r.Prefix, r.Dir)
		}
	}

	for _, c := range cfg.Autoload.Classmap {
		b.AddClassmap(c.Prefix, c.Globs...)
	}

	t := b.Build()
	res.Roots, res.Classmap = t.Len()
	a.lastRefresh = res
	return t, tableFingerprint(cfg, a.composerStamp), nil
}

// tableFingerprint combines the autoload settings with the state of the
// composer manifests the table was read from.
func tableFingerprint(cfg *config.Config, stamp string) string {
	return cfg.AutoloadFingerprint() + "/" + stamp
}

// composerStamp summarizes the root manifest and lock file in dir by size and
// modification time.
func composerStamp(dir string) string {
	parts := make([]string, 0, 2)
	for _, name := range []string{autoload.ManifestFile, composerLockFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			parts = append(parts, name+":-")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%d:%d", name, info.Size(), info.ModTime().UnixNano()))
	}
	return strings.Join(parts, ",")
}
