package types

import "context"

// CloseReason explains why a pump stopped receiving from its partition.
type CloseReason int

const (
	// CloseReasonShutdown means the processor is stopping.
	CloseReasonShutdown CloseReason = iota

	// CloseReasonOwnershipLost means another instance claimed the partition.
	CloseReasonOwnershipLost

	// CloseReasonPumpError means the pump hit a terminal receive error.
	CloseReasonPumpError
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonShutdown:
		return "Shutdown"
	case CloseReasonOwnershipLost:
		return "OwnershipLost"
	case CloseReasonPumpError:
		return "PumpError"
	default:
		return "Unknown"
	}
}

// PartitionContext identifies the partition a handler invocation refers to
// and carries the checkpoint sink for that partition.
//
// Contexts passed to ProcessEvents are bound to the owning pump and persist
// checkpoints through the processor's store. Contexts passed to ProcessError
// for coordination-level failures have an empty PartitionID and a no-op
// checkpoint sink.
type PartitionContext struct {
	// FullyQualifiedNamespace is the host name of the namespace.
	FullyQualifiedNamespace string

	// EventHubName is the event hub being consumed.
	EventHubName string

	// ConsumerGroup is the consumer group being consumed.
	ConsumerGroup string

	// PartitionID is the partition this context refers to.
	// Empty for errors not scoped to a partition.
	PartitionID string

	updateCheckpoint func(ctx context.Context, event *Event) error
}

// NewPartitionContext builds a context with the given checkpoint sink.
// A nil sink yields a no-op UpdateCheckpoint.
//
// Parameters:
//   - namespace, eventHub, consumerGroup, partitionID: composite key fields
//   - update: checkpoint sink invoked by UpdateCheckpoint (may be nil)
//
// Returns:
//   - *PartitionContext: initialized context
func NewPartitionContext(namespace, eventHub, consumerGroup, partitionID string, update func(ctx context.Context, event *Event) error) *PartitionContext {
	return &PartitionContext{
		FullyQualifiedNamespace: namespace,
		EventHubName:            eventHub,
		ConsumerGroup:           consumerGroup,
		PartitionID:             partitionID,
		updateCheckpoint:        update,
	}
}

// UpdateCheckpoint persists the offset and sequence number of the given
// event as the new checkpoint for this partition.
//
// User code calls this from ProcessEvents after it has durably handled a
// batch. Calling it on an error context is a no-op.
func (pc *PartitionContext) UpdateCheckpoint(ctx context.Context, event *Event) error {
	if pc.updateCheckpoint == nil {
		return nil
	}

	return pc.updateCheckpoint(ctx, event)
}

// EventHandlers bundles the user callbacks driven by partition pumps.
//
// ProcessEvents is required; the remaining callbacks are optional. All
// callbacks for one partition are invoked from a single goroutine: the next
// batch is not delivered until the previous ProcessEvents returns.
//
// ProcessError receives coordination errors (empty PartitionID) as well as
// partition-scoped receive errors. It is never invoked with a cancellation
// error during shutdown. Panics inside ProcessError are recovered and
// logged, never propagated.
type EventHandlers struct {
	// ProcessEvents is invoked for each received batch, in order.
	ProcessEvents func(ctx context.Context, events []*Event, partition *PartitionContext) error

	// ProcessError is invoked for coordination and partition errors.
	ProcessError func(ctx context.Context, err error, partition *PartitionContext)

	// ProcessInitialize is invoked once when a pump starts, before the
	// first batch.
	ProcessInitialize func(ctx context.Context, partition *PartitionContext) error

	// ProcessClose is invoked exactly once when a pump terminates.
	ProcessClose func(ctx context.Context, reason CloseReason, partition *PartitionContext)
}
