package pump

import (
	"time"

	"github.com/driftlock/sluice/internal/logging"
	"github.com/driftlock/sluice/internal/metrics"
	"github.com/driftlock/sluice/types"
)

// Config describes one partition pump.
//
// Required fields:
//   - PartitionID
//   - ConsumerGroup
//   - Client
//   - Store
//   - Handlers.ProcessEvents
//
// Optional tuning fields are documented inline below. Zero values are
// replaced by package defaults via applyDefaults().
type Config struct {
	// PartitionID is the partition this pump receives from.
	PartitionID string

	// ConsumerGroup is the consumer group the receiver is opened for.
	ConsumerGroup string

	// Start is the position the receiver is opened at.
	// A zero value means latest.
	Start types.StartPosition

	// Client opens the partition receiver.
	Client types.ConsumerClient

	// Store receives checkpoints forwarded from the user's handler.
	Store types.CheckpointStore

	// Handlers are the user callbacks driven by this pump.
	Handlers types.EventHandlers

	// MaxBatchSize is the maximum number of events requested per receive.
	MaxBatchSize int

	// MaxRetries is the number of consecutive transient receive failures
	// tolerated before the pump terminates with PumpError.
	MaxRetries int

	// RetryBackoffBase is the initial backoff delay after a failure.
	RetryBackoffBase time.Duration

	// RetryBackoffCap bounds the backoff delay.
	RetryBackoffCap time.Duration

	// RetryBackoffMultiplier is the backoff growth factor.
	RetryBackoffMultiplier float64

	// RetrySeed seeds the backoff jitter RNG for deterministic tests.
	// Zero selects the package-level PRNG.
	RetrySeed int64

	Logger  types.Logger
	Metrics types.MetricsCollector
}

// applyDefaults fills unset optional fields with package defaults.
func (cfg *Config) applyDefaults() {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBackoffBase <= 0 {
		cfg.RetryBackoffBase = DefaultRetryBackoffBase
	}
	if cfg.RetryBackoffCap <= 0 {
		cfg.RetryBackoffCap = DefaultRetryBackoffCap
	}
	if cfg.RetryBackoffMultiplier < 1.0 {
		cfg.RetryBackoffMultiplier = DefaultRetryBackoffMultiplier
	}
	if cfg.Start.IsZero() {
		cfg.Start = types.LatestPosition()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNop()
	}
}
