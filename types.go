package sluice

import "github.com/driftlock/sluice/types"

// Re-export types from the types subpackage.
//
// This file provides a stable public API for the library's core types and
// interfaces via type aliases. Internal packages depend on the types
// subpackage directly, which avoids an import cycle on the root package
// while keeping sluice.Ownership, sluice.EventHandlers, etc. convenient for
// users.
type (
	Ownership        = types.Ownership
	Checkpoint       = types.Checkpoint
	Event            = types.Event
	StartPosition    = types.StartPosition
	StartPositions   = types.StartPositions
	PartitionContext = types.PartitionContext
	EventHandlers    = types.EventHandlers
	CloseReason      = types.CloseReason
)

// Re-export interfaces from the types subpackage for convenience.
type (
	CheckpointStore   = types.CheckpointStore
	ConsumerClient    = types.ConsumerClient
	PartitionReceiver = types.PartitionReceiver
	LoadBalancer      = types.LoadBalancer
	Logger            = types.Logger
	MetricsCollector  = types.MetricsCollector
)

// Re-export CloseReason constants from the types subpackage.
const (
	CloseReasonShutdown      = types.CloseReasonShutdown
	CloseReasonOwnershipLost = types.CloseReasonOwnershipLost
	CloseReasonPumpError     = types.CloseReasonPumpError
)

// Re-export StartPosition constructors from the types subpackage.
var (
	LatestPosition             = types.LatestPosition
	EarliestPosition           = types.EarliestPosition
	PositionFromOffset         = types.PositionFromOffset
	PositionFromSequenceNumber = types.PositionFromSequenceNumber
	PositionFromEnqueuedTime   = types.PositionFromEnqueuedTime
)
