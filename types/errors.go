package types

import (
	"context"
	"errors"
)

// Sentinel errors for the sluice library.
//
// These errors provide type-safe error checking using errors.Is() and
// errors.As(). Components use these sentinels for known conditions and wrap
// external errors with context using fmt.Errorf("...: %w", err).

// Processor errors - public API errors returned by the Processor.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConsumerClientRequired is returned when the consumer client is nil.
	ErrConsumerClientRequired = errors.New("consumer client is required")

	// ErrCheckpointStoreRequired is returned when the checkpoint store is nil.
	ErrCheckpointStoreRequired = errors.New("checkpoint store is required")

	// ErrProcessEventsRequired is returned when the ProcessEvents handler is nil.
	ErrProcessEventsRequired = errors.New("ProcessEvents handler is required")

	// ErrNotStarted is returned when Stop is called on a processor that was
	// never started.
	ErrNotStarted = errors.New("processor not started")
)

// Pump errors - returned by the pump manager.
var (
	// ErrPumpExists is returned when a pump is created for a partition that
	// already has a live pump.
	ErrPumpExists = errors.New("pump already exists for partition")
)

// Store errors - shared by checkpoint store implementations.
var (
	// ErrOwnershipIncomplete is returned when a claim request is missing a
	// composite key component.
	ErrOwnershipIncomplete = errors.New("ownership record is missing key fields")

	// ErrCheckpointIncomplete is returned when a checkpoint is missing a
	// composite key component.
	ErrCheckpointIncomplete = errors.New("checkpoint record is missing key fields")
)

// IsCancellation reports whether err is (or wraps) a context cancellation or
// deadline signal.
//
// The processor uses this to keep cancellation out of the user's error
// handler: a stop sequence must never surface as a processing failure.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
