package config

import (
	"fmt"

	pkgconfig "github.com/avelane/storefront-session/pkg/config"
)

// Config holds all configuration for the session daemon.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP facade
	HTTPPort int `env:"HTTP_PORT" envDefault:"8090"`

	// Commerce backend
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080/api"`

	// Local store. With USE_MEMORY_STORE set, state lives in process memory
	// and Redis settings are ignored.
	UseMemoryStore bool   `env:"USE_MEMORY_STORE" envDefault:"false"`
	RedisHost      string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort      int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass      string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	StorePrefix    string `env:"STORE_PREFIX" envDefault:"session"`

	// Store entry TTL in hours (default: 30 days)
	StoreTTL int `env:"STORE_TTL_HOURS" envDefault:"720"`

	// Catalog mirror
	CatalogRefreshMinutes int `env:"CATALOG_REFRESH_MINUTES" envDefault:"15"`
	CatalogPageSize       int `env:"CATALOG_PAGE_SIZE" envDefault:"50"`

	// Kafka activity events. Empty brokers disable publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"" envSeparator:","`

	// Circuit breaker for backend calls
	CBTimeoutSeconds int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio   float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests    uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load session config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL must be set")
	}
	if c.CatalogRefreshMinutes < 1 {
		return fmt.Errorf("catalog refresh interval must be at least a minute")
	}
	if c.CatalogPageSize < 1 {
		return fmt.Errorf("catalog page size must be positive")
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1 {
		return fmt.Errorf("circuit breaker failure ratio must be in (0, 1]")
	}
	return nil
}
