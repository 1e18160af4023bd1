package types

import (
	"strings"
	"time"
)

// Ownership is the durable coordination record asserting that a processor
// instance is the current consumer of one partition for one consumer group.
//
// One record exists per (namespace, event hub, consumer group, partition)
// composite key. The record carries an opaque ETag that the checkpoint store
// uses for optimistic concurrency: a claim must echo the ETag it last
// observed for the row, and a claim with a stale ETag is silently dropped by
// the store.
//
// An Ownership with an empty OwnerID is abandoned: the previous owner gave
// it up deliberately and any instance may reclaim it immediately, reusing
// the existing ETag so the concurrency chain stays intact.
type Ownership struct {
	// FullyQualifiedNamespace is the host name of the event hubs namespace.
	FullyQualifiedNamespace string `json:"fullyQualifiedNamespace"`

	// EventHubName is the event hub this record belongs to.
	EventHubName string `json:"eventHubName"`

	// ConsumerGroup is the consumer group this record belongs to.
	ConsumerGroup string `json:"consumerGroup"`

	// PartitionID identifies the partition within the event hub.
	PartitionID string `json:"partitionId"`

	// OwnerID identifies the claiming processor instance.
	// An empty string marks the record as abandoned.
	OwnerID string `json:"ownerId"`

	// LastModifiedTime is set by the store on every successful write and is
	// used by load balancers to detect owners that stopped refreshing.
	LastModifiedTime time.Time `json:"lastModifiedTime"`

	// ETag is the opaque concurrency token returned by the store.
	// Empty means the row does not exist yet; a claim without an ETag must
	// only succeed if no row exists (create-if-absent).
	ETag string `json:"-"`
}

// IsAbandoned reports whether the record was deliberately released by its
// previous owner and is available for immediate reclamation.
func (o Ownership) IsAbandoned() bool {
	return o.OwnerID == ""
}

// Key returns the composite key identifying this record within a store.
//
// Returns:
//   - string: "<namespace>/<eventHub>/<consumerGroup>/<partitionId>"
func (o Ownership) Key() string {
	return strings.Join([]string{
		o.FullyQualifiedNamespace,
		o.EventHubName,
		o.ConsumerGroup,
		o.PartitionID,
	}, "/")
}

// Checkpoint is the durable progress record for one partition within one
// consumer group. It is created on the first user-driven checkpoint, updated
// in place afterwards, and never deleted by the library.
//
// Writes for the same partition are totally ordered by the issuing pump; a
// later write supersedes earlier ones.
type Checkpoint struct {
	// FullyQualifiedNamespace is the host name of the event hubs namespace.
	FullyQualifiedNamespace string `json:"fullyQualifiedNamespace"`

	// EventHubName is the event hub this record belongs to.
	EventHubName string `json:"eventHubName"`

	// ConsumerGroup is the consumer group this record belongs to.
	ConsumerGroup string `json:"consumerGroup"`

	// PartitionID identifies the partition within the event hub.
	PartitionID string `json:"partitionId"`

	// Offset is the opaque offset of the last processed event.
	Offset string `json:"offset"`

	// SequenceNumber is the sequence number of the last processed event.
	// Monotone within a partition.
	SequenceNumber int64 `json:"sequenceNumber"`
}

// Key returns the composite key identifying this record within a store.
func (c Checkpoint) Key() string {
	return strings.Join([]string{
		c.FullyQualifiedNamespace,
		c.EventHubName,
		c.ConsumerGroup,
		c.PartitionID,
	}, "/")
}
