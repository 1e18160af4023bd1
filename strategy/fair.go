package strategy

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/driftlock/sluice/types"
)

// DefaultInactiveLimit is how long an ownership record may go without a
// refresh before its owner is presumed dead and the partition reclaimable.
const DefaultInactiveLimit = 60 * time.Second

// Fair implements cooperative load balancing that converges to an even
// partition distribution with no central coordinator.
//
// Each round the balancer claims at most one partition. Claiming slowly is
// deliberate: it prevents two instances from over-claiming past each other
// and gives the rest of the fleet time to observe the new state before the
// next round. During steady state no claims occur at all.
type Fair struct {
	inactiveLimit time.Duration
	clock         clockwork.Clock
}

var _ types.LoadBalancer = (*Fair)(nil)

// FairOption configures a Fair balancer.
type FairOption func(*Fair)

// WithInactiveLimit sets the staleness threshold for ownership records.
//
// Must match the processor's OwnershipInactiveLimit so both sides agree on
// which records count as live.
//
// Parameters:
//   - limit: maximum age of a record before its partition is reclaimable
//
// Returns:
//   - FairOption: Configuration option
func WithInactiveLimit(limit time.Duration) FairOption {
	return func(f *Fair) {
		f.inactiveLimit = limit
	}
}

// WithClock sets the clock used for staleness decisions.
//
// Production code uses the default real clock; tests inject
// clockwork.NewFakeClock() to exercise expiry without sleeping.
//
// Parameters:
//   - clock: clock implementation
//
// Returns:
//   - FairOption: Configuration option
func WithClock(clock clockwork.Clock) FairOption {
	return func(f *Fair) {
		f.clock = clock
	}
}

// NewFair creates a new fair load balancer.
//
// Parameters:
//   - opts: Optional configuration (WithInactiveLimit, WithClock)
//
// Returns:
//   - *Fair: Initialized balancer
//
// Example:
//
//	balancer := strategy.NewFair(strategy.WithInactiveLimit(30 * time.Second))
//	proc, err := sluice.NewProcessor(cfg, client, store, handlers,
//	    sluice.WithLoadBalancer(balancer))
func NewFair(opts ...FairOption) *Fair {
	f := &Fair{
		inactiveLimit: DefaultInactiveLimit,
		clock:         clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Balance decides which partition, if any, the given owner should claim.
//
// The algorithm:
//  1. Drop abandoned and stale records to obtain the active set.
//  2. Compute per-owner counts, including self at zero.
//  3. Quotas: min = floor(partitions / owners), max = ceil.
//  4. If self has room below a quota band and another owner sits above it,
//     steal one partition from the most loaded owner (deterministic
//     tie-breaks). Checking both bands is what guarantees convergence to
//     |count_i - count_j| <= 1 from any start state; a floor-only test
//     stalls at states like {4,1,1,1} over seven partitions.
//  5. Otherwise claim one unowned partition, smallest id first.
//  6. Otherwise the fleet is balanced; claim nothing.
//
// Parameters:
//   - ownerID: id of the deciding processor instance
//   - ownerships: current records keyed by partition id
//   - partitionIDs: the full partition universe
//
// Returns:
//   - []string: at most one partition id to claim
func (f *Fair) Balance(ownerID string, ownerships map[string]types.Ownership, partitionIDs []string) []string {
	if len(partitionIDs) == 0 {
		return nil
	}

	active := activeOwnerships(ownerships, f.clock.Now(), f.inactiveLimit)
	counts := ownerCounts(active, ownerID)
	total := len(partitionIDs)
	minQuota := total / len(counts)
	maxQuota := (total + len(counts) - 1) / len(counts)

	if counts[ownerID] < maxQuota {
		if pid, ok := stealCandidate(active, counts, ownerID, maxQuota); ok {
			return []string{pid}
		}
	}
	if counts[ownerID] < minQuota {
		if pid, ok := stealCandidate(active, counts, ownerID, minQuota); ok {
			return []string{pid}
		}
	}

	if claimable := claimablePartitions(active, partitionIDs); len(claimable) > 0 {
		return claimable[:1]
	}

	return nil
}
