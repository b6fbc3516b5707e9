package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "kudos4me"

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Run      RunConfig      `toml:"run"`
	Browser  BrowserConfig  `toml:"browser"`
	LazyLoad LazyLoadConfig `toml:"lazy_load"`
	Session  SessionConfig  `toml:"session"`
	Site     SiteConfig     `toml:"site"`
	History  HistoryConfig  `toml:"history"`
}

type RunConfig struct {
	MaxRunDurationSeconds int `toml:"max_run_duration_seconds"`
	NumEntries            int `toml:"num_entries"`
	ClickPauseMS          int `toml:"click_pause_ms"`
}

type BrowserConfig struct {
	Headless           bool   `toml:"headless"`
	WaitTimeoutSeconds int    `toml:"wait_timeout_seconds"`
	Lang               string `toml:"lang"`
	UserAgent          string `toml:"user_agent"` // empty uses the built-in desktop Chrome UA
}

// LazyLoadConfig controls the PageDown/PageUp sweep used to force the feed to render
type LazyLoadConfig struct {
	Iterations int `toml:"iterations"`
	PauseMS    int `toml:"pause_ms"`
}

type SessionConfig struct {
	Path          string `toml:"path"`
	MinValidBytes int64  `toml:"min_valid_bytes"`
}

type SiteConfig struct {
	BaseURL string `toml:"base_url"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Run: RunConfig{
			MaxRunDurationSeconds: 540,
			NumEntries:            100,
			ClickPauseMS:          1000,
		},
		Browser: BrowserConfig{
			Headless:           true,
			WaitTimeoutSeconds: 15,
			Lang:               "en-US",
		},
		LazyLoad: LazyLoadConfig{
			Iterations: 5,
			PauseMS:    500,
		},
		Session: SessionConfig{
			Path:          "session.json",
			MinValidBytes: 250,
		},
		Site: SiteConfig{
			BaseURL: "https://www.strava.com/",
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Validate checks that numeric settings are usable
func (c *Config) Validate() error {
	var errs []error
	if c.Run.MaxRunDurationSeconds <= 0 {
		errs = append(errs, fmt.Errorf("run.max_run_duration_seconds must be positive, got %d", c.Run.MaxRunDurationSeconds))
	}
	if c.Run.NumEntries <= 0 {
		errs = append(errs, fmt.Errorf("run.num_entries must be positive, got %d", c.Run.NumEntries))
	}
	if c.Run.ClickPauseMS < 0 {
		errs = append(errs, fmt.Errorf("run.click_pause_ms must not be negative, got %d", c.Run.ClickPauseMS))
	}
	if c.Browser.WaitTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("browser.wait_timeout_seconds must be positive, got %d", c.Browser.WaitTimeoutSeconds))
	}
	if c.LazyLoad.Iterations < 0 || c.LazyLoad.PauseMS < 0 {
		errs = append(errs, errors.New("lazy_load values must not be negative"))
	}
	if c.Session.Path == "" {
		errs = append(errs, errors.New("session.path must be set"))
	}
	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("site.base_url must be set"))
	}
	return errors.Join(errs...)
}

// MaxRunDuration is the wall-clock budget of a single run
func (c *Config) MaxRunDuration() time.Duration {
	return time.Duration(c.Run.MaxRunDurationSeconds) * time.Second
}

func (c *Config) ClickPause() time.Duration {
	return time.Duration(c.Run.ClickPauseMS) * time.Millisecond
}

func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Browser.WaitTimeoutSeconds) * time.Second
}

func (c *Config) LazyLoadPause() time.Duration {
	return time.Duration(c.LazyLoad.PauseMS) * time.Millisecond
}

// HistoryPath returns the sqlite path, falling back to the cache directory
func (c *Config) HistoryPath() (string, error) {
	if c.History.DBPath != "" {
		return c.History.DBPath, nil
	}
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from the default location
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from path. Keys missing from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the default location
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to path
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
