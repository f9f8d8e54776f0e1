package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	WorkspaceRoot string
	ComposerDir   string
	SnapshotPath  string
}

// ResolvePaths anchors the configured paths. An explicit workspace root is
// taken relative to cwd; otherwise the root is detected from cwd upwards.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	root := strings.TrimSpace(cfg.Workspace.Root)
	if root != "" {
		root = ResolveRelative(cwd, root)
	} else {
		detected, err := DetectProjectRoot([]string{cwd})
		if err != nil {
			return ResolvedPaths{}, err
		}
		root = detected
	}

	return ResolvedPaths{
		WorkspaceRoot: filepath.Clean(root),
		ComposerDir:   ResolveRelative(root, cfg.Autoload.ComposerPath),
		SnapshotPath:  ResolveRelative(root, cfg.Snapshot.Path),
	}, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DetectProjectRoot walks up from each candidate until a directory holding a
// project marker is found, falling back to the working directory.
func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{
		FileName,
		"composer.json",
		".git",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}
