package strategy

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/driftlock/sluice/types"
)

// Greedy implements load balancing that claims every available partition in
// a single round.
//
// Compared to Fair, a greedy fleet reaches full coverage in one or two
// rounds instead of one round per partition, at the cost of heavier churn
// while instances sort out the final distribution: early starters grab
// everything and later starters steal their quota back one partition at a
// time.
type Greedy struct {
	inactiveLimit time.Duration
	clock         clockwork.Clock
}

var _ types.LoadBalancer = (*Greedy)(nil)

// GreedyOption configures a Greedy balancer.
type GreedyOption func(*Greedy)

// WithGreedyInactiveLimit sets the staleness threshold for ownership records.
func WithGreedyInactiveLimit(limit time.Duration) GreedyOption {
	return func(g *Greedy) {
		g.inactiveLimit = limit
	}
}

// WithGreedyClock sets the clock used for staleness decisions.
func WithGreedyClock(clock clockwork.Clock) GreedyOption {
	return func(g *Greedy) {
		g.clock = clock
	}
}

// NewGreedy creates a new greedy load balancer.
//
// Parameters:
//   - opts: Optional configuration
//
// Returns:
//   - *Greedy: Initialized balancer
func NewGreedy(opts ...GreedyOption) *Greedy {
	g := &Greedy{
		inactiveLimit: DefaultInactiveLimit,
		clock:         clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Balance returns every claimable partition, or a single steal candidate
// when everything is owned but self is below quota.
//
// Parameters:
//   - ownerID: id of the deciding processor instance
//   - ownerships: current records keyed by partition id
//   - partitionIDs: the full partition universe
//
// Returns:
//   - []string: partition ids to claim this round
func (g *Greedy) Balance(ownerID string, ownerships map[string]types.Ownership, partitionIDs []string) []string {
	if len(partitionIDs) == 0 {
		return nil
	}

	active := activeOwnerships(ownerships, g.clock.Now(), g.inactiveLimit)

	if claimable := claimablePartitions(active, partitionIDs); len(claimable) > 0 {
		return claimable
	}

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

	return nil
}
