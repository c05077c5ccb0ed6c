package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"casebox/database"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// HTTP configuration
	HTTPHost string `envconfig:"HTTP_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`

	// Database configuration
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	DatabaseName string `envconfig:"DATABASE_NAME"`
	DBMaxConns   int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns   int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// StoreTimeout bounds every store round trip made on behalf of a request
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`

	// Opening engine
	OpenMaxRetries   int           `envconfig:"OPEN_MAX_RETRIES" default:"3"`
	OpenRetryBackoff time.Duration `envconfig:"OPEN_RETRY_BACKOFF" default:"20ms"`

	// Users
	StartingBalance int64 `envconfig:"STARTING_BALANCE" default:"0"`

	// Admin surface
	AdminJWTSecret string `envconfig:"ADMIN_JWT_SECRET"`

	// NATS configuration, empty disables event fan-out
	NATSURL string `envconfig:"NATS_URL"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Environment
	Environment string `envconfig:"ENVIRONMENT" default:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = Load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required settings and value ranges
func (c *Config) Validate() error {
	if c.Environment != "test" {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.OpenMaxRetries < 0 {
		return fmt.Errorf("OPEN_MAX_RETRIES cannot be negative")
	}
	if c.StartingBalance < 0 {
		return fmt.Errorf("STARTING_BALANCE cannot be negative")
	}
	return nil
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// HTTPAddr returns the listen address for the API server
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		HTTPHost:         "127.0.0.1",
		HTTPPort:         8080,
		DBMaxConns:       10,
		DBMinConns:       1,
		StoreTimeout:     5 * time.Second,
		OpenMaxRetries:   3,
		OpenRetryBackoff: time.Millisecond,
		AdminJWTSecret:   "test-secret",
		LogLevel:         "debug",
		Environment:      "test",
	}
}
