package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "doc-history"

// Paths holds the default locations for config, data and cache
type Paths struct {
	ConfigDir string // holds config.toml
	DataDir   string // holds the commit store
	CacheDir  string // holds cached timelines
}

// DetectPaths resolves the default directories, honoring the XDG
// environment variables on Linux
func DetectPaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to get home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		base := filepath.Join(home, "Library", "Application Support", appName)
		return Paths{
			ConfigDir: base,
			DataDir:   filepath.Join(base, "data"),
			CacheDir:  filepath.Join(home, "Library", "Caches", appName),
		}, nil
	case "linux":
		return Paths{
			ConfigDir: filepath.Join(xdgDir("XDG_CONFIG_HOME", filepath.Join(home, ".config")), appName),
			DataDir:   filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(home, ".local", "share")), appName),
			CacheDir:  filepath.Join(xdgDir("XDG_CACHE_HOME", filepath.Join(home, ".cache")), appName),
		}, nil
	default:
		return Paths{}, fmt.Errorf("unsupported OS: %s (only macOS and Linux are supported)", runtime.GOOS)
	}
}

// xdgDir returns the value of env when it holds an absolute path
func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); filepath.IsAbs(dir) {
		return dir
	}
	return fallback
}

// ConfigPath returns the default config file path
func (p Paths) ConfigPath() string {
	return filepath.Join(p.ConfigDir, "config.toml")
}

// StorePath returns the default store location for the given store type
func (p Paths) StorePath(storeType string) string {
	if storeType == StoreTypePebble {
		return filepath.Join(p.DataDir, "history.pebble")
	}
	return filepath.Join(p.DataDir, "history.db")
}

// StoreExists reports whether something exists at path
func StoreExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
