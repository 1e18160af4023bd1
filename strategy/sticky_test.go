package strategy

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/driftlock/sluice/internal/hash"
	"github.com/driftlock/sluice/types"
)

func TestStickyLoneOwnerTakesEverything(t *testing.T) {
	s := NewSticky()
	ids := partitionIDs(4)

	// With a single owner the ring maps every partition to it.
	claims := s.Balance("proc-a", map[string]types.Ownership{}, ids)

	require.ElementsMatch(t, ids, claims)
}

func TestStickyClaimsOnlyRingMatchedPartitions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSticky(WithStickyClock(clock))
	ids := partitionIDs(16)

	// Make proc-b active so the ring has two owners.
	ownerships := map[string]types.Ownership{
		"0": ownedBy("proc-b", "0", clock.Now()),
	}

	claims := s.Balance("proc-a", ownerships, ids)
	require.NotEmpty(t, claims)

	ring := hash.NewRing([]string{"proc-a", "proc-b"}, DefaultVirtualNodes, 0)
	for _, pid := range claims {
		require.Equal(t, "proc-a", ring.GetOwner(pid), "partition %s not ring-matched", pid)
	}
}

func TestStickyNothingClaimableReturnsNil(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSticky(WithStickyClock(clock))

	ownerships := map[string]types.Ownership{}
	for _, pid := range partitionIDs(4) {
		ownerships[pid] = ownedBy("proc-a", pid, clock.Now())
	}

	require.Nil(t, s.Balance("proc-b", ownerships, partitionIDs(4)))
}

func TestStickyPlacementStableAcrossRestart(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewSticky(WithStickyClock(clock))
	ids := partitionIDs(32)

	// Two-owner fleet: each owner claims its ring share.
	ownerships := map[string]types.Ownership{
		"0": ownedBy("proc-b", "0", clock.Now()),
	}
	first := s.Balance("proc-a", ownerships, ids)

	// proc-a restarts: same snapshot, same decision.
	second := s.Balance("proc-a", ownerships, ids)

	require.Equal(t, first, second)
}
