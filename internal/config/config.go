// Package config loads server configuration. Values resolve in three
// layers: compiled defaults, then an optional TOML file, then
// BLOCKPRESS_* environment variables. Later layers win.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid marks configuration that fails validation.
var ErrInvalid = errors.New("invalid config")

// Config is the full server configuration.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string `toml:"listen_addr" env:"LISTEN_ADDR"`

	// DBPath is the SQLite database file. Empty selects the in-memory
	// revision store, which loses history on restart.
	DBPath string `toml:"db_path" env:"DB_PATH"`

	// PluginDirs are scanned for *.lua scripts and *.yaml manifests.
	PluginDirs []string `toml:"plugin_dirs" env:"PLUGIN_DIRS" envSeparator:":"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`

	// WatchPlugins enables the plugin directory watcher. Changes are
	// reported, not hot-reloaded.
	WatchPlugins bool `toml:"watch_plugins" env:"WATCH_PLUGINS"`
}

// Default returns the compiled-in defaults.
func Default() Config {
	return Config{
		ListenAddr: ":8470",
		DBPath:     "blockpress.db",
		LogLevel:   "info",
	}
}

// Load resolves configuration from defaults, the TOML file at path, and
// the environment. An empty path skips the file layer; a non-empty path
// that does not exist is an error, on the grounds that an explicitly
// requested file should not be silently ignored.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "BLOCKPRESS_"}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr must not be empty", ErrInvalid)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}
