package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Setting keys.
const (
	KeySyncInterval   = "sync_interval"
	KeyDevelopment    = "development"
	KeyRequestTimeout = "request_timeout"
)

const (
	// DefaultSyncInterval is the refresh interval in minutes.
	DefaultSyncInterval = 15

	// DefaultRequestTimeout bounds a single remote call.
	DefaultRequestTimeout = 30 * time.Second
)

// Settings are user preferences stored as YAML and overridable with WIP_*
// environment variables.
type Settings struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// LoadSettings reads path. A missing file yields the defaults.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault(KeySyncInterval, DefaultSyncInterval)
	v.SetDefault(KeyDevelopment, false)
	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	v.SetEnvPrefix("WIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}
	return &Settings{v: v, path: path}, nil
}

// Path returns the settings file path.
func (s *Settings) Path() string {
	return s.path
}

// SyncInterval returns the refresh interval. Values below one minute fall
// back to the default.
func (s *Settings) SyncInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.v.GetInt(KeySyncInterval)
	if m < 1 {
		m = DefaultSyncInterval
	}
	return time.Duration(m) * time.Minute
}

// Development reports whether the development origin is selected.
func (s *Settings) Development() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetBool(KeyDevelopment)
}

// RequestTimeout returns the per-call timeout.
func (s *Settings) RequestTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.v.GetDuration(KeyRequestTimeout)
	if d <= 0 {
		return DefaultRequestTimeout
	}
	return d
}

// SetSyncInterval stores a new interval in minutes.
func (s *Settings) SetSyncInterval(minutes int) error {
	if minutes < 1 {
		return fmt.Errorf("interval must be at least 1 minute, got %d", minutes)
	}
	return s.set(KeySyncInterval, minutes)
}

// SetDevelopment stores the endpoint selection.
func (s *Settings) SetDevelopment(enabled bool) error {
	return s.set(KeyDevelopment, enabled)
}

func (s *Settings) set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
	return s.write()
}

// EnsureFile writes the current settings if the file does not exist yet.
func (s *Settings) EnsureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

func (s *Settings) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Watch calls fn after the settings file changes on disk. The file must exist.
func (s *Settings) Watch(fn func(*Settings)) {
	s.v.OnConfigChange(func(fsnotify.Event) {
		fn(s)
	})
	s.v.WatchConfig()
}
