package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalizeAutoload(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateAutoload(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to DefaultConfig
// otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Workspace.Extension) == "" {
		cfg.Workspace.Extension = ".php"
	}

	if strings.TrimSpace(cfg.Snapshot.Path) == "" {
		cfg.Snapshot.Path = ".implementor/autoload.db"
	}

	if cfg.Stub.Body == "" {
		cfg.Stub.Body = DefaultStubBody
	}
	if cfg.Stub.Indent == "" {
		cfg.Stub.Indent = DefaultIndent
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 100 * time.Millisecond
	}
	if cfg.Watch.MaxRefreshPerSecond == 0 {
		cfg.Watch.MaxRefreshPerSecond = 2
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
}

func normalizeAutoload(cfg *Config) {
	ext := strings.TrimSpace(cfg.Workspace.Extension)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	cfg.Workspace.Extension = ext

	cfg.Autoload.ComposerPath = strings.TrimSpace(cfg.Autoload.ComposerPath)
	for i := range cfg.Autoload.Roots {
		r := &cfg.Autoload.Roots[i]
		r.Prefix = strings.TrimLeft(strings.TrimSpace(r.Prefix), `\`)
		r.Dir = strings.TrimSpace(r.Dir)
	}
	for i := range cfg.Autoload.Classmap {
		c := &cfg.Autoload.Classmap[i]
		c.Prefix = strings.TrimLeft(strings.TrimSpace(c.Prefix), `\`)
		globs := c.Globs[:0]
		for _, g := range c.Globs {
			if g = strings.TrimSpace(g); g != "" {
				globs = append(globs, g)
			}
		}
		c.Globs = globs
	}
}
