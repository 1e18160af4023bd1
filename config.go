package sluice

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values for the Processor.
const (
	// DefaultConsumerGroup is used when no consumer group is configured.
	DefaultConsumerGroup = "$Default"

	// DefaultLoadBalancingInterval is the pause between coordination rounds.
	DefaultLoadBalancingInterval = 10 * time.Second

	// DefaultOwnershipInactiveLimit is how long an ownership record may go
	// unrefreshed before peers treat its owner as dead.
	DefaultOwnershipInactiveLimit = 60 * time.Second

	// DefaultOperationTimeout bounds individual store operations issued
	// outside the run loop (e.g. abandonment during Stop).
	DefaultOperationTimeout = 10 * time.Second
)

// PumpConfig tunes the per-partition receive pumps.
type PumpConfig struct {
	// MaxBatchSize is the maximum number of events requested per receive.
	MaxBatchSize int `yaml:"maxBatchSize"`

	// MaxRetries is the number of consecutive transient receive failures a
	// pump tolerates before closing itself with PumpError.
	MaxRetries int `yaml:"maxRetries"`

	// RetryBackoffBase is the initial backoff delay after a receive failure.
	RetryBackoffBase time.Duration `yaml:"retryBackoffBase"`

	// RetryBackoffCap bounds the backoff delay.
	RetryBackoffCap time.Duration `yaml:"retryBackoffCap"`
}

// Config is the configuration for a Processor.
//
// All duration fields accept standard Go duration strings like "30s", "5m"
// when loaded from yaml.
type Config struct {
	// ConsumerGroup is the consumer group this processor consumes.
	// Defaults to DefaultConsumerGroup.
	ConsumerGroup string `yaml:"consumerGroup"`

	// LoadBalancingInterval is how long the processor sleeps between
	// coordination rounds. Shorter intervals converge faster but increase
	// store traffic. Recommended: 10 seconds.
	LoadBalancingInterval time.Duration `yaml:"loadBalancingInterval"`

	// OwnershipInactiveLimit is how long an ownership record may go without
	// a refresh before it is treated as reclaimable. This is the fleet's
	// crash-recovery mechanism: rows are only released explicitly on
	// graceful stop. Must be greater than LoadBalancingInterval.
	// Recommended: 60 seconds.
	OwnershipInactiveLimit time.Duration `yaml:"ownershipInactiveLimit"`

	// OperationTimeout bounds store operations issued outside the run loop.
	// Recommended: 10 seconds.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// Pump tunes the per-partition receive pumps.
	Pump PumpConfig `yaml:"pump"`
}

// SetDefaults fills in missing configuration values with defaults.
//
// Called automatically by NewProcessor; exposed so tests and config tooling
// can normalize a Config the same way.
func SetDefaults(cfg *Config) {
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = DefaultConsumerGroup
	}
	if cfg.LoadBalancingInterval <= 0 {
		cfg.LoadBalancingInterval = DefaultLoadBalancingInterval
	}
	if cfg.OwnershipInactiveLimit <= 0 {
		cfg.OwnershipInactiveLimit = DefaultOwnershipInactiveLimit
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultOperationTimeout
	}
}

// Validate checks the configuration for consistency.
//
// Returns:
//   - error: description of the first violation found, nil when valid
func (c *Config) Validate() error {
	if c.ConsumerGroup == "" {
		return fmt.Errorf("%w: consumer group must not be empty", ErrInvalidConfig)
	}
	if c.LoadBalancingInterval <= 0 {
		return fmt.Errorf("%w: load balancing interval must be positive", ErrInvalidConfig)
	}
	if c.OwnershipInactiveLimit <= c.LoadBalancingInterval {
		return fmt.Errorf("%w: ownership inactive limit (%s) must exceed load balancing interval (%s), or live owners expire between refreshes",
			ErrInvalidConfig, c.OwnershipInactiveLimit, c.LoadBalancingInterval)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("%w: operation timeout must be positive", ErrInvalidConfig)
	}

	return nil
}

// LoadConfig reads a yaml configuration file, applies defaults, and
// validates the result.
//
// Parameters:
//   - path: yaml file path
//
// Returns:
//   - *Config: parsed configuration
//   - error: read, parse, or validation failure
//
// Example:
//
//	cfg, err := sluice.LoadConfig("processor.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
