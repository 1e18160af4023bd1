package types

import "time"

// StartPosition describes where in a partition a receiver should begin
// reading. Exactly one of the fields should be set; constructors below keep
// that invariant. The zero value means "unspecified" and resolves to the
// processor's fallback chain (checkpoint, user default, latest).
type StartPosition struct {
	// Offset starts after the event with this opaque offset.
	Offset *string

	// SequenceNumber starts after the event with this sequence number.
	SequenceNumber *int64

	// EnqueuedTime starts at the first event enqueued at or after this time.
	EnqueuedTime *time.Time

	// Earliest starts at the oldest retained event.
	Earliest bool

	// Latest starts at the next event enqueued after the receiver opens.
	Latest bool
}

// LatestPosition returns a position at the end of the partition: only events
// enqueued after the receiver opens are delivered.
func LatestPosition() StartPosition {
	return StartPosition{Latest: true}
}

// EarliestPosition returns a position at the oldest retained event.
func EarliestPosition() StartPosition {
	return StartPosition{Earliest: true}
}

// PositionFromOffset returns a position just after the given opaque offset.
func PositionFromOffset(offset string) StartPosition {
	return StartPosition{Offset: &offset}
}

// PositionFromSequenceNumber returns a position just after the given
// sequence number.
func PositionFromSequenceNumber(seq int64) StartPosition {
	return StartPosition{SequenceNumber: &seq}
}

// PositionFromEnqueuedTime returns a position at the first event enqueued at
// or after t.
func PositionFromEnqueuedTime(t time.Time) StartPosition {
	return StartPosition{EnqueuedTime: &t}
}

// IsZero reports whether the position is unspecified.
func (p StartPosition) IsZero() bool {
	return p.Offset == nil && p.SequenceNumber == nil && p.EnqueuedTime == nil &&
		!p.Earliest && !p.Latest
}

// StartPositions holds the user-supplied defaults consulted when a pump
// starts a partition that has no checkpoint yet.
//
// Resolution order for a partition: existing checkpoint, PerPartition entry,
// Default, latest.
type StartPositions struct {
	// PerPartition maps partition ids to their individual default positions.
	PerPartition map[string]StartPosition

	// Default applies to every partition without a PerPartition entry.
	Default StartPosition
}
