package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: IMPLEMENTOR_[SECTION]_[KEY] (e.g., IMPLEMENTOR_AUTOLOAD_USE_COMPOSER).
func ApplyEnvOverrides(cfg *Config) {
	// Workspace
	setEnvString(&cfg.Workspace.Root, "IMPLEMENTOR_WORKSPACE_ROOT")
	setEnvString(&cfg.Workspace.Extension, "IMPLEMENTOR_WORKSPACE_EXTENSION")

	// Autoload
	setEnvBool(&cfg.Autoload.UseComposer, "IMPLEMENTOR_AUTOLOAD_USE_COMPOSER")
	setEnvString(&cfg.Autoload.ComposerPath, "IMPLEMENTOR_AUTOLOAD_COMPOSER_PATH")

	// Snapshot
	setEnvBool(&cfg.Snapshot.Enabled, "IMPLEMENTOR_SNAPSHOT_ENABLED")
	setEnvString(&cfg.Snapshot.Path, "IMPLEMENTOR_SNAPSHOT_PATH")

	// Stub
	setEnvString(&cfg.Stub.Body, "IMPLEMENTOR_STUB_BODY")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "IMPLEMENTOR_WATCH_DEBOUNCE")
	setEnvInt(&cfg.Watch.MaxRefreshPerSecond, "IMPLEMENTOR_WATCH_MAX_REFRESH_PER_SECOND")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "IMPLEMENTOR_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "IMPLEMENTOR_OBSERVABILITY_ADDRESS")
	setEnvBool(&cfg.Observability.EnableTracing, "IMPLEMENTOR_OBSERVABILITY_ENABLE_TRACING")
	setEnvString(&cfg.Observability.OTLPEndpoint, "IMPLEMENTOR_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = d
		}
	}
}
