package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/driftlock/sluice/types"
)

// FakeConsumer is a scriptable in-memory ConsumerClient.
//
// Partitions are fixed at construction. Tests push events with Feed and
// inject receive failures with FailReceives; pumps opened against the fake
// drain both in FIFO order. The fake records every receiver open so tests
// can assert on starting positions.
type FakeConsumer struct {
	namespace string
	hub       string

	mu          sync.Mutex
	partitions  []string
	feeds       map[string]chan *types.Event
	receiveErrs map[string][]error
	opens       map[string][]types.StartPosition
	openErr     error
	listErr     error
}

var _ types.ConsumerClient = (*FakeConsumer)(nil)

// NewFakeConsumer creates a fake client for the given hub and partitions.
//
// Parameters:
//   - namespace: fully qualified namespace reported by the client
//   - hub: event hub name reported by the client
//   - partitionIDs: fixed partition universe
//
// Returns:
//   - *FakeConsumer: initialized fake
func NewFakeConsumer(namespace, hub string, partitionIDs ...string) *FakeConsumer {
	feeds := make(map[string]chan *types.Event, len(partitionIDs))
	for _, pid := range partitionIDs {
		feeds[pid] = make(chan *types.Event, 1024)
	}

	return &FakeConsumer{
		namespace:   namespace,
		hub:         hub,
		partitions:  append([]string(nil), partitionIDs...),
		feeds:       feeds,
		receiveErrs: make(map[string][]error),
		opens:       make(map[string][]types.StartPosition),
	}
}

// FullyQualifiedNamespace returns the configured namespace.
func (c *FakeConsumer) FullyQualifiedNamespace() string { return c.namespace }

// EventHubName returns the configured hub name.
func (c *FakeConsumer) EventHubName() string { return c.hub }

// PartitionIDs returns the fixed partition universe.
func (c *FakeConsumer) PartitionIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}

	return append([]string(nil), c.partitions...), nil
}

// NewPartitionReceiver opens a receiver over the partition's feed.
func (c *FakeConsumer) NewPartitionReceiver(ctx context.Context, partitionID, _ /* consumerGroup */ string, start types.StartPosition) (types.PartitionReceiver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.openErr != nil {
		return nil, c.openErr
	}

	feed, ok := c.feeds[partitionID]
	if !ok {
		return nil, fmt.Errorf("unknown partition %q", partitionID)
	}

	c.opens[partitionID] = append(c.opens[partitionID], start)

	return &fakeReceiver{consumer: c, partitionID: partitionID, feed: feed}, nil
}

// Feed pushes events into a partition's stream.
func (c *FakeConsumer) Feed(partitionID string, events ...*types.Event) {
	c.mu.Lock()
	feed := c.feeds[partitionID]
	c.mu.Unlock()

	for _, ev := range events {
		feed <- ev
	}
}

// FailReceives queues errors returned by subsequent ReceiveEvents calls on
// the partition, before any queued events are delivered.
func (c *FakeConsumer) FailReceives(partitionID string, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receiveErrs[partitionID] = append(c.receiveErrs[partitionID], errs...)
}

// SetListErr makes PartitionIDs fail with err until cleared with nil.
func (c *FakeConsumer) SetListErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErr = err
}

// SetOpenErr makes NewPartitionReceiver fail with err until cleared with nil.
func (c *FakeConsumer) SetOpenErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// Opens returns every start position receivers were opened with for the
// partition, in order.
func (c *FakeConsumer) Opens(partitionID string) []types.StartPosition {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]types.StartPosition(nil), c.opens[partitionID]...)
}

// nextReceiveErr pops the next scripted error for the partition, if any.
func (c *FakeConsumer) nextReceiveErr(partitionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	queue := c.receiveErrs[partitionID]
	if len(queue) == 0 {
		return nil
	}
	c.receiveErrs[partitionID] = queue[1:]

	return queue[0]
}

type fakeReceiver struct {
	consumer    *FakeConsumer
	partitionID string
	feed        chan *types.Event
}

var _ types.PartitionReceiver = (*fakeReceiver)(nil)

// ReceiveEvents returns the next scripted error if one is queued, otherwise
// blocks for the first event and then drains up to maxCount without blocking.
func (r *fakeReceiver) ReceiveEvents(ctx context.Context, maxCount int) ([]*types.Event, error) {
	if err := r.consumer.nextReceiveErr(r.partitionID); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		maxCount = 1
	}

	var events []*types.Event
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev := <-r.feed:
		events = append(events, ev)
	}

	for len(events) < maxCount {
		select {
		case ev := <-r.feed:
			events = append(events, ev)
		default:
			return events, nil
		}
	}

	return events, nil
}

// Close is a no-op; the feed outlives individual receivers so reopened
// pumps keep draining it.
func (r *fakeReceiver) Close(_ /* ctx */ context.Context) error {
	return nil
}
