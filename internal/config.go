package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Store types
const (
	StoreTypeSQLite = "sqlite"
	StoreTypePebble = "pebble"
)

// Config is the doc-history configuration file
type Config struct {
	Store       StoreConfig      `toml:"store"`
	Hasher      string           `toml:"hasher"`
	Workers     int              `toml:"workers"`
	BatchWindow Duration         `toml:"batch_window"`
	Cache       CacheConfig      `toml:"cache"`
	Encryption  EncryptionConfig `toml:"encryption"`
}

// StoreConfig selects the commit store.
// Type determines how Path is interpreted.
type StoreConfig struct {
	Type string `toml:"type"` // "sqlite" (default) or "pebble"
	Path string `toml:"path"` // database file or pebble directory
}

// CacheConfig controls the timeline cache
type CacheConfig struct {
	Dir     string `toml:"dir"`
	Enabled bool   `toml:"enabled"`
}

// EncryptionConfig points at the age identities used to open sealed messages
type EncryptionConfig struct {
	IdentityPath string `toml:"identity_path,omitempty"`
}

// Duration is a time.Duration written as a Go duration string
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig(paths Paths) *Config {
	return &Config{
		Store: StoreConfig{
			Type: StoreTypeSQLite,
			Path: paths.StorePath(StoreTypeSQLite),
		},
		Hasher:      DefaultHasher,
		Workers:     0,
		BatchWindow: Duration{DefaultBatchWindow},
		Cache: CacheConfig{
			Dir:     paths.CacheDir,
			Enabled: true,
		},
	}
}

// ReadConfig decodes a config from r on top of base. Keys missing from r
// keep their value in base.
func ReadConfig(r io.Reader, base *Config) (*Config, error) {
	cfg := *base
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		LogWarn("Ignoring unknown config keys: %v", undecoded)
	}
	return &cfg, nil
}

// LoadConfig reads the config file at path. A missing file yields the
// defaults.
func LoadConfig(path string, paths Paths) (*Config, error) {
	base := DefaultConfig(paths)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		LogDebug("No config file at %s, using defaults", path)
		return base, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := ReadConfig(f, base)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	// a store type switch without a path moves to that type's default location
	if cfg.Store.Type != base.Store.Type && cfg.Store.Path == base.Store.Path {
		cfg.Store.Path = paths.StorePath(cfg.Store.Type)
	}

	return cfg, nil
}

// WriteConfig encodes cfg to path, creating parent directories
func WriteConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks every key and reports the first invalid one
func (c *Config) Validate() error {
	switch c.Store.Type {
	case StoreTypeSQLite, StoreTypePebble:
	default:
		return &ConfigError{Key: "store.type", Err: fmt.Errorf("unsupported store type %q (supported: %s, %s)", c.Store.Type, StoreTypeSQLite, StoreTypePebble)}
	}
	if c.Store.Path == "" {
		return &ConfigError{Key: "store.path", Err: errors.New("must not be empty")}
	}
	if _, err := NewHasher(c.Hasher); err != nil {
		return err
	}
	if c.Workers < 0 {
		return &ConfigError{Key: "workers", Err: fmt.Errorf("must not be negative, got %d", c.Workers)}
	}
	if c.BatchWindow.Duration < 0 {
		return &ConfigError{Key: "batch_window", Err: fmt.Errorf("must not be negative, got %s", c.BatchWindow)}
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		return &ConfigError{Key: "cache.dir", Err: errors.New("must be set when the cache is enabled")}
	}
	if c.Encryption.IdentityPath != "" {
		if _, err := os.Stat(c.Encryption.IdentityPath); err != nil {
			return &ConfigError{Key: "encryption.identity_path", Err: err}
		}
	}
	return nil
}
