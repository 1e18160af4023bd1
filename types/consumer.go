package types

import (
	"context"
	"time"
)

// Event is a single event received from a partition.
type Event struct {
	// Body is the event payload.
	Body []byte

	// Offset is the opaque offset of the event within its partition.
	Offset string

	// SequenceNumber is the broker-assigned sequence number, monotone
	// within a partition.
	SequenceNumber int64

	// EnqueuedTime is the time the broker accepted the event.
	EnqueuedTime time.Time

	// PartitionKey is the key the producer used for partition routing, if any.
	PartitionKey string

	// Properties holds application-defined annotations.
	Properties map[string]any
}

// ConsumerClient is the transport handle for one event hub. It discovers the
// partition universe and opens per-partition receivers.
//
// Implementations wrap the actual wire protocol (AMQP in production, an
// in-memory fake in tests); the library only depends on this contract.
type ConsumerClient interface {
	// FullyQualifiedNamespace returns the host name of the namespace this
	// client is connected to.
	FullyQualifiedNamespace() string

	// EventHubName returns the event hub this client is bound to.
	EventHubName() string

	// PartitionIDs returns the identifiers of all partitions of the hub.
	//
	// Implementations must respect ctx cancellation.
	PartitionIDs(ctx context.Context) ([]string, error)

	// NewPartitionReceiver opens a receiver streaming events from one
	// partition for the given consumer group, starting at the given position.
	NewPartitionReceiver(ctx context.Context, partitionID, consumerGroup string, start StartPosition) (PartitionReceiver, error)
}

// PartitionReceiver streams event batches from a single partition.
//
// Receivers hold network resources and must be closed on every termination
// path.
type PartitionReceiver interface {
	// ReceiveEvents blocks until at least one event is available, maxCount
	// events were collected, or ctx is done. A nil error with an empty batch
	// is a valid idle result.
	ReceiveEvents(ctx context.Context, maxCount int) ([]*Event, error)

	// Close releases the receiver's network resources.
	Close(ctx context.Context) error
}
