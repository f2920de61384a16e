package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values read from the config file.
const (
	EnvSessionToken = "LIBRIX_SESSION_TOKEN"
	EnvBaseURL      = "LIBRIX_BASE_URL"
	EnvDatabasePath = "LIBRIX_DATABASE_PATH"
	EnvCachePath    = "LIBRIX_CACHE_PATH"
	EnvLocale       = "LIBRIX_LOCALE"
	EnvPageSize     = "LIBRIX_PAGE_SIZE"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API         APIConfig         `toml:"api"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Cache       CacheConfig       `toml:"cache"`
	Sync        SyncConfig        `toml:"sync"`
}

// APIConfig contains remote catalog API settings.
type APIConfig struct {
	BaseURL        string  `toml:"base_url"`
	PageSize       int     `toml:"page_size"`
	RateLimit      float64 `toml:"rate_limit"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	UserAgent      string  `toml:"user_agent"`
}

// Timeout returns the configured request timeout, defaulting to one minute.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CredentialsConfig contains the user session used for favorites.
type CredentialsConfig struct {
	SessionToken string `toml:"session_token"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CacheConfig contains settings for the poster file cache.
type CacheConfig struct {
	Path    string `toml:"path"`
	Workers int    `toml:"workers"`
}

// SyncConfig contains scheduler and notification settings.
type SyncConfig struct {
	IntervalMinutes int    `toml:"interval_minutes"`
	Favorites       bool   `toml:"favorites"`
	Locale          string `toml:"locale"`
}

// Interval returns the scheduler period, defaulting to thirty minutes.
func (c SyncConfig) Interval() time.Duration {
	if c.IntervalMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("%w: api.base_url is empty", ErrInvalidConfig)
	case c.API.PageSize <= 0:
		return fmt.Errorf("%w: api.page_size must be positive, got %d", ErrInvalidConfig, c.API.PageSize)
	case c.API.RateLimit < 0:
		return fmt.Errorf("%w: api.rate_limit must not be negative", ErrInvalidConfig)
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path is empty", ErrInvalidConfig)
	}
	return nil
}

// ApplyEnv loads the given dotenv files (missing files are ignored) and then applies LIBRIX_* overrides.
func (c *Config) ApplyEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if v, ok := os.LookupEnv(EnvSessionToken); ok {
		c.Credentials.SessionToken = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvCachePath); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv(EnvLocale); v != "" {
		c.Sync.Locale = v
	}
	if v := os.Getenv(EnvPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvPageSize, v)
		}
		c.API.PageSize = n
	}
	return nil
}
