package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// Application configuration
	App AppConfig `toml:"app"`

	// Synergy rule table
	Registry RegistryConfig `toml:"registry"`

	// Draw model parameters
	Evaluation EvaluationConfig `toml:"evaluation"`

	// Batch analysis
	Analysis AnalysisConfig `toml:"analysis"`

	// Database settings
	Storage StorageConfig `toml:"storage"`

	// HTTP API settings
	Server ServerConfig `toml:"server"`

	// Deck directory watcher
	Watch WatchConfig `toml:"watch"`
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool   `toml:"debug_mode"` // Force debug logging
	LogLevel  string `toml:"log_level"`  // debug, info, warn, error
}

// RegistryConfig selects the synergy rule table.
type RegistryConfig struct {
	File string `toml:"file"` // Optional TOML rule table; empty uses the built-in one
}

// EvaluationConfig contains the hypergeometric draw model settings.
type EvaluationConfig struct {
	PoolSize   int `toml:"pool_size"`   // Cards in the pool on the first turn
	PoolShrink int `toml:"pool_shrink"` // Cards removed from the pool each turn
	DrawSize   int `toml:"draw_size"`   // Cards drawn per turn
	Turns      int `toml:"turns"`       // Draw turns considered
}

// AnalysisConfig contains batch analysis settings.
type AnalysisConfig struct {
	Workers int `toml:"workers"` // Decks analyzed concurrently
}

// StorageConfig contains database settings.
type StorageConfig struct {
	Path        string `toml:"path"`         // SQLite file; empty uses ~/.solmdb/solmdb.db
	AutoMigrate bool   `toml:"auto_migrate"` // Apply migrations on open
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Port           int      `toml:"port"`
	RateLimit      float64  `toml:"rate_limit"` // Requests per second per client, 0 disables
	RateBurst      int      `toml:"rate_burst"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// WatchConfig contains deck directory watcher settings.
type WatchConfig struct {
	Dir      string `toml:"dir"`
	Debounce string `toml:"debounce"` // e.g. "500ms"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			DebugMode: false,
			LogLevel:  "info",
		},
		Evaluation: EvaluationConfig{
			PoolSize:   20,
			PoolShrink: 5,
			DrawSize:   5,
			Turns:      3,
		},
		Analysis: AnalysisConfig{
			Workers: 4,
		},
		Storage: StorageConfig{
			Path:        "",
			AutoMigrate: true,
		},
		Server: ServerConfig{
			Port:           8080,
			RateLimit:      20,
			RateBurst:      40,
			AllowedOrigins: []string{"http://localhost:*"},
		},
		Watch: WatchConfig{
			Dir:      "",
			Debounce: "500ms",
		},
	}
}

// Dir returns the application data directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".solmdb")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default location.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from path. Returns default config if the
// file doesn't exist. Keys missing from the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// Save saves the configuration to the default location.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if _, err := c.GetLogLevel(); err != nil {
		return err
	}

	e := c.Evaluation
	if e.PoolSize <= 0 {
		return fmt.Errorf("pool size must be positive: %d", e.PoolSize)
	}
	if e.DrawSize <= 0 || e.DrawSize > e.PoolSize {
		return fmt.Errorf("draw size must be in 1..%d: %d", e.PoolSize, e.DrawSize)
	}
	if e.PoolShrink < 0 {
		return fmt.Errorf("pool shrink cannot be negative: %d", e.PoolShrink)
	}
	if e.Turns <= 0 {
		return fmt.Errorf("turns must be positive: %d", e.Turns)
	}

	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("analysis workers must be positive: %d", c.Analysis.Workers)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative: %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		return fmt.Errorf("rate burst must be positive when rate limiting: %d", c.Server.RateBurst)
	}

	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("invalid watch debounce %q: %w", c.Watch.Debounce, err)
	}

	return nil
}

// GetLogLevel returns the slog level. DebugMode overrides LogLevel.
func (c *Config) GetLogLevel() (slog.Level, error) {
	if c.App.DebugMode {
		return slog.LevelDebug, nil
	}
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.App.LogLevel)
}

// GetWatchDebounce returns the watcher debounce as a duration.
func (c *Config) GetWatchDebounce() (time.Duration, error) {
	return time.ParseDuration(c.Watch.Debounce)
}

// GetStoragePath returns the database path, defaulting to ~/.solmdb/solmdb.db.
func (c *Config) GetStoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "solmdb.db"), nil
}
