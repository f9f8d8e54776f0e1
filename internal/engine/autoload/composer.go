package autoload

import (
	"context"
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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	ManifestFile     = "composer.json"
	defaultVendorDir = "vendor"
)

// ComposerReader builds a Table from a root composer.json and the manifests
// of the packages it requires, following each package's own requirements.
type ComposerReader struct {
	root      string
	extension string
	logger    *slog.Logger
}

type ComposerOption func(*ComposerReader)

func WithComposerLogger(logger *slog.Logger) ComposerOption {
	return func(r *ComposerReader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithComposerExtension(ext string) ComposerOption {
	return func(r *ComposerReader) { r.extension = ext }
}

// NewComposerReader reads manifests below the workspace root.
func NewComposerReader(root string, opts ...ComposerOption) *ComposerReader {
	r := &ComposerReader{root: root, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ComposerResult is a built table plus the per-package manifest errors that
// were skipped while building it.
type ComposerResult struct {
	Table    *Table
	Packages int
	Warnings []error
}

type composerBuild struct {
	reader    *ComposerReader
	builder   *Builder
	vendorDir string
	visited   map[string]bool
	result    *ComposerResult
}

// Read builds the table for the composer.json in composerDir, relative to the
// workspace root. A missing or malformed root manifest is an error; broken
// package manifests become warnings.
func (r *ComposerReader) Read(ctx context.Context, composerDir string) (*ComposerResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "autoload.ComposerReader.Read",
		trace.WithAttributes(attribute.String("composer_dir", composerDir)))
	defer span.End()

	composerDir = cleanRel(composerDir)
	rootPath := r.abs(path.Join(composerDir, ManifestFile))
	data, err := os.ReadFile(rootPath)
	if err != nil {
		return nil, domainerrors.Manifest("root", rootPath, err)
	}
	root, err := parseManifest(data)
	if err != nil {
		return nil, domainerrors.Manifest("root", rootPath, err)
	}

	b := &composerBuild{
		reader:    r,
		builder:   NewBuilder().SetExtension(r.extension),
		vendorDir: path.Join(composerDir, defaultVendorDir),
		visited:   make(map[string]bool),
		result:    &ComposerResult{},
	}
	if root.Config.VendorDir != "" {
		b.vendorDir = path.Join(composerDir, root.Config.VendorDir)
	}

	b.addPSR4(root.Autoload.PSR4, composerDir, "root")
	b.addPSR4(root.AutoloadDev.PSR4, composerDir, "root")
	if len(root.Autoload.Classmap) > 0 {
		b.addClassmap(root.Autoload.Classmap, composerDir)
	}

	if err := b.requirePackages(ctx, root.Require); err != nil {
		return nil, err
	}
	if err := b.requirePackages(ctx, root.RequireDev); err != nil {
		return nil, err
	}

	b.result.Table = b.builder.Build()
	roots, classmap := b.result.Table.Len()
	span.SetAttributes(
		attribute.Int("roots", roots),
		attribute.Int("classmap", classmap),
		attribute.Int("packages", b.result.Packages),
		attribute.Int("warnings", len(b.result.Warnings)),
	)
	r.logger.Debug("composer autoloads read", "roots", roots, "classmap", classmap,
		"packages", b.result.Packages, "warnings", len(b.result.Warnings))
	return b.result, nil
}

func (b *composerBuild) requirePackages(ctx context.Context, packages orderedObject) error {
	for _, member := range packages {
		if err := ctx.Err(); err != nil {
			return err
		}
		pkg := member.Key
		if isPlatformPackage(pkg) || b.visited[pkg] {
			continue
		}
		b.visited[pkg] = true

		pkgDir := path.Join(b.vendorDir, pkg)
		manifestPath := b.reader.abs(path.Join(pkgDir, ManifestFile))
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			b.warn(pkg, manifestPath, err)
			continue
		}
		m, err := parseManifest(data)
		if err != nil {
			b.warn(pkg, manifestPath, err)
			continue
		}

		b.result.Packages++
		b.addPSR4(m.Autoload.PSR4, pkgDir, pkg)
		if len(m.Autoload.Classmap) > 0 {
			b.addClassmap(m.Autoload.Classmap, pkgDir)
		}
		if err := b.requirePackages(ctx, m.Require); err != nil {
			return err
		}
	}
	return nil
}

func (b *composerBuild) addPSR4(psr4 orderedObject, baseDir, pkg string) {
	for _, member := range psr4 {
		dir, err := firstDir(member.Value)
		if err != nil {
			b.reader.logger.Debug("skipping psr-4 entry", "package", pkg, "prefix", member.Key, "error", err)
			continue
		}
		b.builder.AddRoot(member.Key, path.Join(baseDir, dir))
	}
}

// addClassmap registers a package's classmap globs under the namespace
// declared by the first source file in its src directory.
func (b *composerBuild) addClassmap(entries []string, baseDir string) {
	globs := make([]string, 0, len(entries))
	for _, e := range entries {
		g := path.Join(baseDir, e)
		if strings.HasSuffix(e, "/") {
			g += "/"
		}
		globs = append(globs, g)
	}
	prefix := b.packageNamespace(baseDir)
	b.builder.AddClassmap(prefix, globs...)
}

func (b *composerBuild) packageNamespace(baseDir string) string {
	dir := b.reader.abs(baseDir)
	matches, err := doublestar.Glob(os.DirFS(dir), "src/*"+b.builder.extensionOrDefault(), doublestar.WithFilesOnly())
	if err != nil || len(matches) == 0 {
		b.reader.logger.Debug("no source file to derive classmap namespace", "dir", baseDir)
		return ""
	}
	sort.Strings(matches)
	content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(matches[0])))
	if err != nil {
		return ""
	}
	return source.NewUnit(string(content)).Namespace()
}

func (b *composerBuild) warn(pkg, manifestPath string, err error) {
	observability.ManifestErrorsTotal.Inc()
	b.reader.logger.Warn("skipping package manifest", "package", pkg, "path", manifestPath, "error", err)
	b.result.Warnings = append(b.result.Warnings, domainerrors.Manifest(pkg, manifestPath, err))
}

func (r *ComposerReader) abs(p string) string {
	if filepath.IsAbs(p) || r.root == "" {
		return filepath.FromSlash(p)
	}
	return filepath.Join(r.root, filepath.FromSlash(p))
}

// isPlatformPackage reports requirements that have no vendor directory.
func isPlatformPackage(name string) bool {
	if name == "php" || !strings.Contains(name, "/") {
		return true
	}
	for _, prefix := range []string{"ext-", "lib-", "composer-"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func cleanRel(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return p
}
