package autoload

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	domainerrors "implementor/internal/core/errors"
	"implementor/internal/engine/source"
	"implementor/internal/shared/observability"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	StrategyPrefix   = "prefix"
	StrategyClassmap = "classmap"
)

// TableSource yields the table a lookup runs against. *Holder implements it.
type TableSource interface {
	Load() *Table
}

// StaticTable adapts a fixed table to TableSource.
type StaticTable struct{ T *Table }

func (s StaticTable) Load() *Table { return s.T }

// Locator finds and loads the file backing a fully-qualified identifier.
type Locator struct {
	root        string
	tables      TableSource
	excludeDirs []glob.Glob
	logger      *slog.Logger
}

type LocatorOption func(*Locator) error

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(logger *slog.Logger) LocatorOption {
	return func(l *Locator) error {
		if logger != nil {
			l.logger = logger
		}
		return nil
	}
}

// WithExcludeDirs skips classmap candidates under any directory whose name
// matches one of patterns.
func WithExcludeDirs(patterns ...string) LocatorOption {
	return func(l *Locator) error {
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				return fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
			}
			l.excludeDirs = append(l.excludeDirs, g)
		}
		return nil
	}
}

// NewLocator resolves relative table paths against root.
func NewLocator(root string, tables TableSource, opts ...LocatorOption) (*Locator, error) {
	if tables == nil {
		return nil, domainerrors.New(domainerrors.CodeValidationError, "locator needs a table source")
	}
	l := &Locator{root: root, tables: tables, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Locate loads the unit for identifier using prefix mapping, falling back to
// the classmap only when no prefix matched.
func (l *Locator) Locate(ctx context.Context, identifier string) (*source.Unit, error) {
	ctx, span := observability.Tracer.Start(ctx, "autoload.Locate",
		trace.WithAttributes(attribute.String("identifier", identifier)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := l.tables.Load()
	unit, strategy, err := l.locate(ctx, table, identifier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "not located")
		return nil, err
	}
	span.SetAttributes(attribute.String("strategy", strategy), attribute.String("path", unit.Path()))
	observability.AncestorsLocated.WithLabelValues(strategy).Inc()
	l.logger.Debug("located ancestor", "identifier", identifier, "strategy", strategy, "path", unit.Path())
	return unit, nil
}

func (l *Locator) locate(ctx context.Context, table *Table, identifier string) (*source.Unit, string, error) {
	if rel, ok := table.MapPrefix(identifier); ok {
		full := l.abs(rel)
		content, err := os.ReadFile(full)
		if err != nil {
			return nil, "", l.notFound(identifier, full, err)
		}
		return source.NewUnitAt(full, string(content)), StrategyPrefix, nil
	}

	entry, ok := table.ClassmapFor(identifier)
	if !ok {
		return nil, "", l.notFound(identifier, "", nil)
	}
	unit, err := l.searchClassmap(ctx, entry, identifier, table.Extension())
	if err != nil {
		return nil, "", err
	}
	return unit, StrategyClassmap, nil
}

func (l *Locator) searchClassmap(ctx context.Context, entry ClassmapRoot, identifier, ext string) (*source.Unit, error) {
	namespace, name := splitIdentifier(identifier)
	fileName := name + ext

	for _, globRoot := range entry.Globs {
		candidates, err := l.candidates(globRoot, fileName, ext)
		if err != nil {
			l.logger.Debug("classmap search failed", "glob_root", globRoot, "error", err)
			continue
		}
		for _, candidate := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			content, err := os.ReadFile(candidate)
			if err != nil {
				l.logger.Debug("classmap candidate unreadable", "path", candidate, "error", err)
				continue
			}
			unit := source.NewUnitAt(candidate, string(content))
			if unit.Namespace() == namespace {
				return unit, nil
			}
		}
	}
	return nil, l.notFound(identifier, "", nil)
}

// candidates lists files named fileName under globRoot, sorted, as
// filesystem paths. A globRoot naming a single source file is its own
// candidate.
func (l *Locator) candidates(globRoot, fileName, ext string) ([]string, error) {
	base := l.abs(filepath.FromSlash(strings.TrimSuffix(globRoot, "/")))
	if strings.HasSuffix(globRoot, ext) {
		if filepath.Base(base) == fileName && !l.excluded(path.Dir(strings.TrimPrefix(globRoot, "./"))) {
			return []string{base}, nil
		}
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(base), "**/"+escapeGlobMeta(fileName), doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if l.excluded(path.Dir(m)) {
			continue
		}
		out = append(out, filepath.Join(base, filepath.FromSlash(m)))
	}
	return out, nil
}

var globMetaEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
	`{`, `\{`,
	`}`, `\}`,
)

// escapeGlobMeta quotes glob metacharacters so name matches literally.
func escapeGlobMeta(name string) string {
	return globMetaEscaper.Replace(name)
}

// excluded reports whether any directory segment of dir matches an exclude
// pattern.
func (l *Locator) excluded(dir string) bool {
	if len(l.excludeDirs) == 0 {
		return false
	}
	for _, segment := range strings.Split(dir, "/") {
		if segment == "" || segment == "." {
			continue
		}
		for _, g := range l.excludeDirs {
			if g.Match(segment) {
				return true
			}
		}
	}
	return false
}

func (l *Locator) abs(p string) string {
	if filepath.IsAbs(p) || l.root == "" {
		return p
	}
	return filepath.Join(l.root, p)
}

func (l *Locator) notFound(identifier, file string, cause error) error {
	if cause == nil {
		cause = fs.ErrNotExist
	}
	err := domainerrors.NotFound(identifier, cause)
	if file != "" {
		err = domainerrors.AddContext(err, domainerrors.CtxPath, file)
	}
	return err
}

func splitIdentifier(identifier string) (namespace, name string) {
	identifier = strings.TrimPrefix(identifier, `\`)
	if i := strings.LastIndex(identifier, `\`); i >= 0 {
		return identifier[:i], identifier[i+1:]
	}
	return "", identifier
}
