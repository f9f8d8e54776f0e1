package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up in the workspace root.
const FileName = "implementor.toml"

type Config struct {
	Version       int           `toml:"version"`
	Workspace     Workspace     `toml:"workspace"`
	Autoload      Autoload      `toml:"autoload"`
	Snapshot      Snapshot      `toml:"snapshot"`
	Stub          Stub          `toml:"stub"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Workspace struct {
	Root      string `toml:"root"`
	Extension string `toml:"extension"`
}

// Autoload describes where ancestor files are looked up. Roots and Classmap
// are arrays of tables so their order, which decides precedence, survives
// decoding.
type Autoload struct {
	UseComposer  bool            `toml:"use_composer"`
	ComposerPath string          `toml:"composer_path"`
	Roots        []AutoloadRoot  `toml:"roots"`
	Classmap     []ClassmapEntry `toml:"classmap"`
	ExcludeDirs  []string        `toml:"exclude_dirs"`
}

type AutoloadRoot struct {
	Prefix string `toml:"prefix"`
	Dir    string `toml:"dir"`
}

type ClassmapEntry struct {
	Prefix string   `toml:"prefix"`
	Globs  []string `toml:"globs"`
}

type Snapshot struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Stub struct {
	Body   string `toml:"body"`
	Indent string `toml:"indent"`
}

type Watch struct {
	Debounce            time.Duration `toml:"debounce"`
	MaxRefreshPerSecond int           `toml:"max_refresh_per_second"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Address       string `toml:"address"`
	EnableTracing bool   `toml:"enable_tracing"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
}

const (
	DefaultStubBody = `throw new \Exception("Method not implemented");`
	DefaultIndent   = "\t"
)

// DefaultConfig is the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// AutoloadFingerprint identifies the settings an autoload table is built
// from. Two configs with equal fingerprints produce the same table from the
// same manifests.
func (c *Config) AutoloadFingerprint() string {
	var buf bytes.Buffer
	_ = toml.NewEncoder(&buf).Encode(struct {
		Extension string   `toml:"extension"`
		Autoload  Autoload `toml:"autoload"`
	}{c.Workspace.Extension, c.Autoload})
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}
