package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/driftlock/sluice/types"
)

func TestMemoryContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) types.CheckpointStore {
		t.Helper()

		return NewMemory()
	})
}

func TestMemoryStampsWithInjectedClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewMemory(WithMemoryClock(clock))

	claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{{
		FullyQualifiedNamespace: "ns.example.net",
		EventHubName:            "telemetry",
		ConsumerGroup:           "$Default",
		PartitionID:             "0",
		OwnerID:                 "proc-a",
	}})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.True(t, claimed[0].LastModifiedTime.Equal(clock.Now()))

	clock.Advance(time.Minute)

	refreshed, err := s.ClaimOwnership(t.Context(), []types.Ownership{claimed[0]})
	require.NoError(t, err)
	require.Len(t, refreshed, 1)
	require.True(t, refreshed[0].LastModifiedTime.Equal(clock.Now()))
}

func TestMemoryConcurrentClaimersSingleWinner(t *testing.T) {
	s := NewMemory()
	const claimers = 16

	var wg sync.WaitGroup
	winners := make(chan string, claimers)

	for i := range claimers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			owner := fmt.Sprintf("proc-%d", i)
			claimed, err := s.ClaimOwnership(t.Context(), []types.Ownership{{
				FullyQualifiedNamespace: "ns.example.net",
				EventHubName:            "telemetry",
				ConsumerGroup:           "$Default",
				PartitionID:             "0",
				OwnerID:                 owner,
			}})
			require.NoError(t, err)
			if len(claimed) == 1 {
				winners <- owner
			}
		}()
	}

	wg.Wait()
	close(winners)

	var won []string
	for w := range winners {
		won = append(won, w)
	}
	require.Len(t, won, 1, "exactly one claimer wins the create race")
}
