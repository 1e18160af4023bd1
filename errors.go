package sluice

import "github.com/driftlock/sluice/types"

// Sentinel errors returned by the Processor, re-exported from the types
// subpackage so callers can match with errors.Is against either package.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrConsumerClientRequired is returned when the consumer client is nil.
	ErrConsumerClientRequired = types.ErrConsumerClientRequired

	// ErrCheckpointStoreRequired is returned when the checkpoint store is nil.
	ErrCheckpointStoreRequired = types.ErrCheckpointStoreRequired

	// ErrProcessEventsRequired is returned when the ProcessEvents handler is nil.
	ErrProcessEventsRequired = types.ErrProcessEventsRequired

	// ErrNotStarted is returned when Stop is called on a processor that was
	// never started.
	ErrNotStarted = types.ErrNotStarted
)
