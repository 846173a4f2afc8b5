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

// Environment variables that override the config file.
const (
	EnvAPIURL  = "VIBE_API_URL"
	EnvDBPath  = "VIBE_DB_PATH"
	EnvLogFile = "VIBE_LOG_FILE"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Player   PlayerConfig   `toml:"player"`
	Logging  LoggingConfig  `toml:"logging"`
	Export   ExportConfig   `toml:"export"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PageLimit      int    `toml:"page_limit"`
}

// Timeout returns the HTTP client timeout; zero means none.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains local state database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PlayerConfig contains playback transport settings.
type PlayerConfig struct {
	TickMillis int `toml:"tick_ms"`
	SampleRate int `toml:"sample_rate"`
}

// Tick returns the position reporting interval.
func (c PlayerConfig) Tick() time.Duration {
	if c.TickMillis <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(c.TickMillis) * time.Millisecond
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// ExportConfig contains catalogue export settings.
type ExportConfig struct {
	RateLimit float64 `toml:"rate_limit"`
	OutputDir string  `toml:"output_dir"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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

// ResolveConfig loads the config file at path when present, falling back to defaults,
// then applies a .env file (if any) and environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	// A missing .env is the common case.
	_ = godotenv.Load()

	config.ApplyEnv()
	return config, nil
}

// ApplyEnv overrides config values from the process environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("VIBE_API_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.TimeoutSeconds = n
		}
	}
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
