package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	coreapp "implementor/internal/core/app"
	"implementor/internal/core/config"
	"implementor/internal/shared/observability"

	"github.com/urfave/cli/v2"
)

func Run(args []string) int {
	return run(args, os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if err := newApp(stdin, stdout, stderr).Run(args); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func configureLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

type session struct {
	app        *coreapp.App
	configPath string
	cleanup    []func()
}

func (r *session) Close() {
	for i := len(r.cleanup) - 1; i >= 0; i-- {
		r.cleanup[i]()
	}
}

// loadRuntime resolves config and paths and builds the app. When initTable
// is set the autoload table is made ready from the snapshot or a refresh.
func loadRuntime(c *cli.Context, initTable bool) (*session, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("detect working directory: %w", err)
	}
	rootFlag := strings.TrimSpace(c.String("root"))
	if rootFlag != "" {
		if cwd, err = filepath.Abs(rootFlag); err != nil {
			return nil, fmt.Errorf("resolve root path %q: %w", rootFlag, err)
		}
	}

	cfg, cfgPath, err := loadConfig(c.String("config"), cwd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if rootFlag != "" {
		cfg.Workspace.Root = cwd
	}

	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, fmt.Errorf("resolve runtime paths: %w", err)
	}

	rt := &session{configPath: cfgPath}
	if cfg.Observability.EnableTracing {
		shutdown, err := observability.SetupTracing(c.Context, cfg.Observability.OTLPEndpoint)
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			rt.cleanup = append(rt.cleanup, func() { _ = shutdown(context.Background()) })
		}
	}

	a, err := coreapp.New(cfg, paths, coreapp.WithLogger(slog.Default()))
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.app = a
	rt.cleanup = append(rt.cleanup, func() { _ = a.Close() })

	if initTable {
		if err := a.Init(c.Context); err != nil {
			rt.Close()
			return nil, fmt.Errorf("initialize autoload table: %w", err)
		}
	}
	return rt, nil
}

// loadConfig reads an explicit path strictly; otherwise the workspace's
// implementor.toml is used when present.
func loadConfig(explicit, cwd string) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if strings.TrimSpace(explicit) != "" {
		path = config.ResolveRelative(cwd, explicit)
		cfg, err = config.Load(path)
	} else {
		root, detectErr := config.DetectProjectRoot([]string{cwd})
		if detectErr != nil {
			return nil, "", detectErr
		}
		path = filepath.Join(root, config.FileName)
		cfg, err = config.LoadOrDefault(path)
	}
	if err != nil {
		return nil, "", err
	}
	config.ApplyEnvOverrides(cfg)
	return cfg, path, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
