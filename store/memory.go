package store

import (
	"context"
	"strconv"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/driftlock/sluice/types"
)

// Memory implements CheckpointStore with process-local maps.
//
// It is the reference implementation of the store contract and the default
// backend for tests. All operations are linearizable under one mutex, which
// is exactly the atomicity the claim contract requires.
type Memory struct {
	mu          sync.Mutex
	ownerships  map[string]types.Ownership
	checkpoints map[string]types.Checkpoint
	etagSeq     int64
	clock       clockwork.Clock
}

var _ types.CheckpointStore = (*Memory)(nil)

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMemoryClock sets the clock used to stamp LastModifiedTime.
//
// Tests inject clockwork.NewFakeClock() to simulate owners going stale
// without sleeping.
func WithMemoryClock(clock clockwork.Clock) MemoryOption {
	return func(m *Memory) {
		m.clock = clock
	}
}

// NewMemory creates an empty in-memory checkpoint store.
//
// Parameters:
//   - opts: Optional configuration (WithMemoryClock)
//
// Returns:
//   - *Memory: initialized store
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		ownerships:  make(map[string]types.Ownership),
		checkpoints: make(map[string]types.Checkpoint),
		clock:       clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ListOwnership returns all ownership records under the composite prefix.
func (m *Memory) ListOwnership(ctx context.Context, fullyQualifiedNamespace, eventHubName, consumerGroup string) ([]types.Ownership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := []types.Ownership{}
	for _, o := range m.ownerships {
		if o.FullyQualifiedNamespace == fullyQualifiedNamespace &&
			o.EventHubName == eventHubName &&
			o.ConsumerGroup == consumerGroup {
			result = append(result, o)
		}
	}

	return result, nil
}

// ClaimOwnership attempts each requested claim, returning the subset that
// succeeded with fresh etags and timestamps.
//
// A request with an empty ETag creates the row only if absent; otherwise
// the request's ETag must match the stored one. Stale requests are dropped
// silently per the store contract.
func (m *Memory) ClaimOwnership(ctx context.Context, requested []types.Ownership) ([]types.Ownership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	claimed := []types.Ownership{}
	for _, req := range requested {
		if req.FullyQualifiedNamespace == "" || req.EventHubName == "" ||
			req.ConsumerGroup == "" || req.PartitionID == "" {
			return nil, types.ErrOwnershipIncomplete
		}

		key := req.Key()
		cur, exists := m.ownerships[key]

		if req.ETag == "" {
			if exists {
				continue // row appeared since the caller looked
			}
		} else {
			if !exists || cur.ETag != req.ETag {
				continue // lost the race
			}
		}

		m.etagSeq++
		rec := req
		rec.ETag = strconv.FormatInt(m.etagSeq, 10)
		rec.LastModifiedTime = m.clock.Now()
		m.ownerships[key] = rec
		claimed = append(claimed, rec)
	}

	return claimed, nil
}

// ListCheckpoints returns all checkpoints under the composite prefix.
func (m *Memory) ListCheckpoints(ctx context.Context, fullyQualifiedNamespace, eventHubName, consumerGroup string) ([]types.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := []types.Checkpoint{}
	for _, c := range m.checkpoints {
		if c.FullyQualifiedNamespace == fullyQualifiedNamespace &&
			c.EventHubName == eventHubName &&
			c.ConsumerGroup == consumerGroup {
			result = append(result, c)
		}
	}

	return result, nil
}

// UpdateCheckpoint upserts a checkpoint record.
func (m *Memory) UpdateCheckpoint(ctx context.Context, checkpoint types.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if checkpoint.FullyQualifiedNamespace == "" || checkpoint.EventHubName == "" ||
		checkpoint.ConsumerGroup == "" || checkpoint.PartitionID == "" {
		return types.ErrCheckpointIncomplete
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkpoints[checkpoint.Key()] = checkpoint

	return nil
}
