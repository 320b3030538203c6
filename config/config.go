package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Default client settings, applied by Validate when a value is omitted.
const (
	DefaultBaseURL       = "http://localhost:8080"
	DefaultTimeoutMs     = 30000
	DefaultRetryAttempts = 3
	DefaultRetryDelayMs  = 1000
)

// Config represents the application configuration
type Config struct {
	Client  ClientConfig  `json:"client"`
	Stub    StubConfig    `json:"stub"`
	Logging LoggingConfig `json:"logging"`
}

// ClientConfig contains API client settings
type ClientConfig struct {
	BaseURL         string `json:"base_url"`
	TimeoutMs       int    `json:"timeout_ms"`
	RetryAttempts   int    `json:"retry_attempts"`
	RetryDelayMs    int    `json:"retry_delay_ms"`
	CredentialsPath string `json:"credentials_path"` // SQLite credential store; empty keeps credentials in memory only
}

// StubConfig contains local stub server settings
type StubConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Format string `json:"format"` // "json" or "text"
	Level  string `json:"level"`
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.Client.TimeoutMs < 0 || c.Client.RetryAttempts < 0 || c.Client.RetryDelayMs < 0 {
		return fmt.Errorf("%w: negative timeout or retry settings", ErrInvalidConfig)
	}

	if c.Client.BaseURL == "" {
		c.Client.BaseURL = DefaultBaseURL
	}
	if c.Client.TimeoutMs == 0 {
		c.Client.TimeoutMs = DefaultTimeoutMs
	}
	if c.Client.RetryAttempts == 0 {
		c.Client.RetryAttempts = DefaultRetryAttempts
	}
	if c.Client.RetryDelayMs == 0 {
		c.Client.RetryDelayMs = DefaultRetryDelayMs
	}

	if c.Stub.Port < 0 || c.Stub.Port > 65535 {
		return fmt.Errorf("%w: invalid stub port", ErrInvalidConfig)
	}
	if c.Stub.Port == 0 {
		c.Stub.Port = 8080
	}
	if c.Stub.Host == "" {
		c.Stub.Host = "0.0.0.0"
	}

	return nil
}

// Load loads configuration from a JSON file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables
// This is useful for CI and containerized deployments
func LoadFromEnv() (*Config, error) {
	config := &Config{
		Client: ClientConfig{
			BaseURL:         getEnv("GUARDIAN_BASE_URL", DefaultBaseURL),
			TimeoutMs:       getEnvInt("GUARDIAN_TIMEOUT_MS", DefaultTimeoutMs),
			RetryAttempts:   getEnvInt("GUARDIAN_RETRY_ATTEMPTS", DefaultRetryAttempts),
			RetryDelayMs:    getEnvInt("GUARDIAN_RETRY_DELAY_MS", DefaultRetryDelayMs),
			CredentialsPath: getEnv("GUARDIAN_CREDENTIALS_PATH", ""),
		},
		Stub: StubConfig{
			Host: getEnv("GUARDIAN_STUB_HOST", "0.0.0.0"),
			Port: getEnvInt("GUARDIAN_STUB_PORT", 8080),
		},
		Logging: LoggingConfig{
			Format: getEnv("GUARDIAN_LOG_FORMAT", "json"),
			Level:  getEnv("GUARDIAN_LOG_LEVEL", "info"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		fmt.Sscanf(value, "%d", &intVal)
		return intVal
	}
	return defaultValue
}
