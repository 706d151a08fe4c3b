// Package config handles the configuration directory and user settings.
package config

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

const (
	// AppName is the application directory name.
	AppName = "wip"

	// SettingsFile is the user settings filename.
	SettingsFile = "config.yaml"

	// LogFile is the rotating log filename.
	LogFile = "wip.log"

	// StoreDir holds persisted credentials and the last viewer snapshot.
	StoreDir = "store"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging to stderr.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Settings are the user settings read from SettingsFile.
	Settings *Settings
}

// New creates a Config rooted at configDir and loads its settings.
// If configDir is empty, uses XDG_CONFIG_HOME/wip or ~/.config/wip.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, err
	}

	settings, err := LoadSettings(filepath.Join(dir, SettingsFile))
	if err != nil {
		return nil, err
	}
	return &Config{Dir: dir, Settings: settings}, nil
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := homedir.Dir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// StorePath returns the directory of the on-disk store.
func (c *Config) StorePath() string {
	return filepath.Join(c.Dir, StoreDir)
}

// LogPath returns the path of the log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Dir, LogFile)
}

// EnsureDir creates the config directory with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}
