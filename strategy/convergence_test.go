package strategy

import (
	"fmt"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/driftlock/sluice/types"
)

// simulateRounds runs each owner's Balance against a shared snapshot and
// applies every suggested claim, mimicking the store granting all of them
// (no races). Returns after rounds iterations.
func simulateRounds(t *testing.T, balancers map[string]types.LoadBalancer, ownerships map[string]types.Ownership, ids []string, clock clockwork.Clock, rounds int) {
	t.Helper()

	owners := make([]string, 0, len(balancers))
	for owner := range balancers {
		owners = append(owners, owner)
	}

	for range rounds {
		for _, owner := range owners {
			for _, pid := range balancers[owner].Balance(owner, ownerships, ids) {
				ownerships[pid] = ownedBy(owner, pid, clock.Now())
			}
		}
	}
}

func distribution(ownerships map[string]types.Ownership) map[string]int {
	counts := make(map[string]int)
	for _, o := range ownerships {
		counts[o.OwnerID]++
	}

	return counts
}

func requireEven(t *testing.T, counts map[string]int) {
	t.Helper()

	minCount, maxCount := -1, -1
	for _, c := range counts {
		if minCount == -1 || c < minCount {
			minCount = c
		}
		if c > maxCount {
			maxCount = c
		}
	}
	require.LessOrEqual(t, maxCount-minCount, 1, "distribution uneven: %v", counts)
}

func TestFairConvergenceTwoOwnersFourPartitions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ids := partitionIDs(4)

	// proc-a starts owning everything, then proc-b joins.
	ownerships := map[string]types.Ownership{}
	for _, pid := range ids {
		ownerships[pid] = ownedBy("proc-a", pid, clock.Now())
	}

	balancers := map[string]types.LoadBalancer{
		"proc-a": NewFair(WithClock(clock)),
		"proc-b": NewFair(WithClock(clock)),
	}

	simulateRounds(t, balancers, ownerships, ids, clock, 8)

	counts := distribution(ownerships)
	require.Equal(t, 2, counts["proc-a"])
	require.Equal(t, 2, counts["proc-b"])
}

func TestFairConvergenceManyOwners(t *testing.T) {
	cases := []struct {
		owners     int
		partitions int
	}{
		{owners: 2, partitions: 8},
		{owners: 3, partitions: 10},
		{owners: 4, partitions: 7},
		{owners: 5, partitions: 32},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d owners %d partitions", tc.owners, tc.partitions), func(t *testing.T) {
			clock := clockwork.NewFakeClock()
			ids := partitionIDs(tc.partitions)
			ownerships := map[string]types.Ownership{}

			balancers := make(map[string]types.LoadBalancer, tc.owners)
			for i := range tc.owners {
				balancers[fmt.Sprintf("proc-%d", i)] = NewFair(WithClock(clock))
			}

			// Enough rounds for any start state: one claim per owner per round.
			simulateRounds(t, balancers, ownerships, ids, clock, tc.partitions+tc.owners)

			counts := distribution(ownerships)
			require.Len(t, counts, tc.owners, "every owner should hold something: %v", counts)
			requireEven(t, counts)

			total := 0
			for _, c := range counts {
				total += c
			}
			require.Equal(t, tc.partitions, total, "every partition owned exactly once")
		})
	}
}

func TestFairConvergenceAfterOwnerDeath(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ids := partitionIDs(4)

	// proc-a owns everything, then crashes: records stop refreshing.
	ownerships := map[string]types.Ownership{}
	for _, pid := range ids {
		ownerships[pid] = ownedBy("proc-a", pid, clock.Now())
	}

	clock.Advance(2 * DefaultInactiveLimit)

	balancers := map[string]types.LoadBalancer{
		"proc-b": NewFair(WithClock(clock)),
	}
	simulateRounds(t, balancers, ownerships, ids, clock, 6)

	counts := distribution(ownerships)
	require.Equal(t, 4, counts["proc-b"])
	require.Zero(t, counts["proc-a"])
}
