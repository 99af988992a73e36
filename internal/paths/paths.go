// Package paths resolves the configuration directory and the catalog
// database location.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// appName names the per-user directories.
const appName = "booklib"

// Default file names.
const (
	DefaultDBName     = "library.json"
	ConfigFileName    = "config.yaml"
	DefaultConfigType = "yaml"
)

// Environment variable names for location overrides.
const (
	EnvConfigDir = "BOOKLIB_CONFIG_DIR"
	EnvDB        = "BOOKLIB_DB"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/booklib (fallback ~/.config/booklib)
// macOS:   ~/Library/Application Support/booklib
// Windows: %APPDATA%/booklib
func DefaultConfigDir() (string, error) {
	if platformDir.goos == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/booklib (fallback ~/.local/share/booklib)
// macOS and Windows: same as the config directory.
func DefaultDataDir() (string, error) {
	if platformDir.goos == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	return DefaultConfigDir()
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > BOOKLIB_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return absPath(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return absPath(env)
	}
	return DefaultConfigDir()
}

// ResolveDBPath returns the catalog database path following the precedence
// chain: flag > config value > BOOKLIB_DB env > DefaultDataDir()/library.json.
func ResolveDBPath(flag, configValue string) (string, error) {
	for _, p := range []string{flag, configValue, os.Getenv(EnvDB)} {
		if p != "" {
			return absPath(p)
		}
	}
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultDBName), nil
}

// ConfigFile returns the config file path inside dir.
func ConfigFile(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// absPath expands a leading ~ and makes p absolute.
func absPath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}
