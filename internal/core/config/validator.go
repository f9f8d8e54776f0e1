package config

import (
	"fmt"
	"net"
	"strings"

	domainerrors "implementor/internal/core/errors"

	"github.com/gobwas/glob"
)

func validationError(format string, args ...interface{}) error {
	return domainerrors.New(domainerrors.CodeValidationError, fmt.Sprintf(format, args...))
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return validationError("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateAutoload(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Autoload.Roots))
	for i, r := range cfg.Autoload.Roots {
		ref := fmt.Sprintf("autoload.roots[%d]", i)
		if r.Prefix == "" {
			return validationError("%s.prefix must not be empty", ref)
		}
		if seen[r.Prefix] {
			return validationError("duplicate autoload prefix %q", r.Prefix)
		}
		seen[r.Prefix] = true
	}

	seenClassmap := make(map[string]bool, len(cfg.Autoload.Classmap))
	for i, c := range cfg.Autoload.Classmap {
		ref := fmt.Sprintf("autoload.classmap[%d]", i)
		if len(c.Globs) == 0 {
			return validationError("%s.globs must list at least one search root", ref)
		}
		if seenClassmap[c.Prefix] {
			return validationError("duplicate classmap prefix %q", c.Prefix)
		}
		seenClassmap[c.Prefix] = true
	}

	for _, pattern := range cfg.Autoload.ExcludeDirs {
		if _, err := glob.Compile(pattern); err != nil {
			return validationError("invalid autoload.exclude_dirs pattern %q: %v", pattern, err)
		}
	}

	if cfg.Autoload.UseComposer && strings.HasSuffix(cfg.Autoload.ComposerPath, ".json") {
		return validationError("autoload.composer_path names the directory holding composer.json, got %q", cfg.Autoload.ComposerPath)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return validationError("watch.debounce must not be negative")
	}
	if cfg.Watch.MaxRefreshPerSecond < 0 {
		return validationError("watch.max_refresh_per_second must not be negative")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if !cfg.Observability.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Observability.Address); err != nil {
		return validationError("observability.address %q: %v", cfg.Observability.Address, err)
	}
	return nil
}
