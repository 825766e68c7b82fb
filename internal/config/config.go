package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for every environment variable read by Load
const EnvPrefix = "bidwar"

// Config holds the runtime settings of the bidding server
type Config struct {
	Port              string        `envconfig:"PORT" default:"8080"`
	LogLevel          string        `split_words:"true" default:"info"`
	DatabasePath      string        `split_words:"true"`
	DefaultCoolingOff time.Duration `split_words:"true" default:"24h"`
	BidCooldown       time.Duration `split_words:"true" default:"2s"`
	SubscriberBuffer  int           `split_words:"true" default:"64"`
	MetricsEnabled    bool          `split_words:"true" default:"true"`
	SeedDemo          bool          `split_words:"true" default:"false"`
}

// Load reads the configuration from BIDWAR_* environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: port must not be empty")
	}
	if c.DefaultCoolingOff < 0 {
		return fmt.Errorf("config: default cooling-off %s is negative", c.DefaultCoolingOff)
	}
	if c.BidCooldown < 0 {
		return fmt.Errorf("config: bid cooldown %s is negative", c.BidCooldown)
	}
	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("config: subscriber buffer must be positive, got %d", c.SubscriberBuffer)
	}
	return nil
}

// ListenAddr returns the address passed to the HTTP server
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}
