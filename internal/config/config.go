// Package config loads and validates the beam configuration.
//
// Configuration is resolved in three layers, later layers win:
//  1. Built-in defaults
//  2. Config file (~/.config/beam/config.yaml)
//  3. Environment variables (BEAM_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete beam configuration.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Query   QueryConfig   `yaml:"query"`
	Ranking RankingConfig `yaml:"ranking"`
	Gateway GatewayConfig `yaml:"gateway"`
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	// CacheDir holds the rendezvous socket, instance lock and usage database.
	// Default: <UserCacheDir>/beam.
	CacheDir string `yaml:"cache_dir"`

	// PluginDirs are the directories scanned for provider plugins.
	PluginDirs []string `yaml:"plugin_dirs"`
}

// QueryConfig configures query orchestration.
type QueryConfig struct {
	// ProviderTimeout bounds a single provider's work for one query.
	// Providers exceeding it are excluded from the merge and recorded
	// as failed runtime samples.
	ProviderTimeout time.Duration `yaml:"provider_timeout"`

	// MaxResults caps the published ranked sequence length. 0 means unlimited.
	MaxResults int `yaml:"max_results"`
}

// RankingConfig configures the usage-based ranking boost.
type RankingConfig struct {
	// BoostWeight scales the usage boost added to provider scores.
	// Zero disables history-based ranking entirely.
	BoostWeight float64 `yaml:"boost_weight"`

	// BoostCacheSize is the number of (input, item) boost values cached
	// between keystrokes.
	BoostCacheSize int `yaml:"boost_cache_size"`
}

// GatewayConfig configures the single-instance gateway.
type GatewayConfig struct {
	// DialTimeout bounds the connection attempt to a running instance.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// ReplyTimeout bounds the wait for a command acknowledgement.
	ReplyTimeout time.Duration `yaml:"reply_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			CacheDir: defaultCacheDir(),
		},
		Query: QueryConfig{
			ProviderTimeout: time.Second,
			MaxResults:      50,
		},
		Ranking: RankingConfig{
			BoostWeight:    0.5,
			BoostCacheSize: 1024,
		},
		Gateway: GatewayConfig{
			DialTimeout:  500 * time.Millisecond,
			ReplyTimeout: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "beam", "config.yaml")
	}
	return filepath.Join(dir, "beam", "config.yaml")
}

// Load reads configuration from the given path, applies environment
// overrides and validates the result. A missing file is not an error;
// defaults are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values and fills
// zero values with defaults.
func (c *Config) Validate() error {
	if c.Paths.CacheDir == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Query.ProviderTimeout <= 0 {
		c.Query.ProviderTimeout = time.Second
	}
	if c.Query.MaxResults < 0 {
		return fmt.Errorf("query.max_results must be >= 0, got %d", c.Query.MaxResults)
	}
	if c.Ranking.BoostWeight < 0 {
		return fmt.Errorf("ranking.boost_weight must be >= 0, got %v", c.Ranking.BoostWeight)
	}
	if c.Ranking.BoostCacheSize <= 0 {
		c.Ranking.BoostCacheSize = 1024
	}
	if c.Gateway.DialTimeout <= 0 {
		c.Gateway.DialTimeout = 500 * time.Millisecond
	}
	if c.Gateway.ReplyTimeout <= 0 {
		c.Gateway.ReplyTimeout = 500 * time.Millisecond
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// SocketPath returns the rendezvous endpoint path.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.CacheDir, "socket")
}

// DatabasePath returns the usage store path.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.CacheDir, "core.db")
}

// LockPath returns the instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.CacheDir, "instance.lock")
}

// RunningMarkerPath returns the unclean-shutdown indicator path.
func (c *Config) RunningMarkerPath() string {
	return filepath.Join(c.Paths.CacheDir, "running")
}

// applyEnv applies BEAM_* environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("BEAM_CACHE_DIR"); v != "" {
		c.Paths.CacheDir = v
	}
	if v := os.Getenv("BEAM_PLUGIN_DIRS"); v != "" {
		c.Paths.PluginDirs = filepath.SplitList(v)
	}
	if v := os.Getenv("BEAM_PROVIDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Query.ProviderTimeout = d
		}
	}
	if v := os.Getenv("BEAM_BOOST_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Ranking.BoostWeight = f
		}
	}
	if v := os.Getenv("BEAM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "beam")
	}
	return filepath.Join(dir, "beam")
}
