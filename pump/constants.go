package pump

import "time"

// Default configuration values for pumps.
const (
	// DefaultMaxBatchSize is the default maximum number of events requested
	// per receive call.
	DefaultMaxBatchSize = 100

	// DefaultMaxRetries is the default number of consecutive transient
	// receive failures tolerated before the pump closes with PumpError.
	DefaultMaxRetries = 5

	// DefaultRetryBackoffBase is the default initial backoff delay.
	DefaultRetryBackoffBase = 250 * time.Millisecond

	// DefaultRetryBackoffCap is the default upper bound on backoff delays.
	DefaultRetryBackoffCap = 10 * time.Second

	// DefaultRetryBackoffMultiplier is the default backoff growth factor.
	DefaultRetryBackoffMultiplier = 2.0

	// defaultCloseTimeout bounds receiver cleanup when a pump terminates.
	defaultCloseTimeout = 5 * time.Second
)
