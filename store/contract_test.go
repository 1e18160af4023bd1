package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftlock/sluice/types"
)

// runStoreContract asserts the CheckpointStore laws against any backend.
// Both implementations in this package must pass it unchanged.
func runStoreContract(t *testing.T, newStore func(t *testing.T) types.CheckpointStore) {
	t.Helper()

	ownership := func(partitionID, owner, etag string) types.Ownership {
		return types.Ownership{
			FullyQualifiedNamespace: "ns.example.net",
			EventHubName:            "telemetry",
			ConsumerGroup:           "$Default",
			PartitionID:             partitionID,
			OwnerID:                 owner,
			ETag:                    etag,
		}
	}

	t.Run("list on empty store returns empty not nil", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		owned, err := s.ListOwnership(ctx, "ns.example.net", "telemetry", "$Default")
		require.NoError(t, err)
		require.NotNil(t, owned)
		require.Empty(t, owned)

		cps, err := s.ListCheckpoints(ctx, "ns.example.net", "telemetry", "$Default")
		require.NoError(t, err)
		require.NotNil(t, cps)
		require.Empty(t, cps)
	})

	t.Run("claim without etag creates the row", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		claimed, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("0", "proc-a", "")})
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		require.Equal(t, "proc-a", claimed[0].OwnerID)
		require.NotEmpty(t, claimed[0].ETag)
		require.False(t, claimed[0].LastModifiedTime.IsZero())

		owned, err := s.ListOwnership(ctx, "ns.example.net", "telemetry", "$Default")
		require.NoError(t, err)
		require.Len(t, owned, 1)
		require.Equal(t, claimed[0].ETag, owned[0].ETag)
	})

	t.Run("claim without etag loses to existing row", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		_, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("0", "proc-a", "")})
		require.NoError(t, err)

		claimed, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("0", "proc-b", "")})
		require.NoError(t, err)
		require.Empty(t, claimed, "create-if-absent must fail when the row exists")

		owned, err := s.ListOwnership(ctx, "ns.example.net", "telemetry", "$Default")
		require.NoError(t, err)
		require.Len(t, owned, 1)
		require.Equal(t, "proc-a", owned[0].OwnerID)
	})

	t.Run("claim with current etag succeeds and refreshes", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		first, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("0", "proc-a", "")})
		require.NoError(t, err)
		require.Len(t, first, 1)

		second, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("0", "proc-b", first[0].ETag)})
		require.NoError(t, err)
		require.Len(t, second, 1)
		require.Equal(t, "proc-b", second[0].OwnerID)
		require.NotEqual(t, first[0].ETag, second[0].ETag, "etag rotates on every write")
	})

	t.Run("claim with stale etag is silently dropped", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		first, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("0", "proc-a", "")})
		require.NoError(t, err)

		// proc-b refreshes the row, invalidating proc-a's etag.
		_, err = s.ClaimOwnership(ctx, []types.Ownership{ownership("0", "proc-b", first[0].ETag)})
		require.NoError(t, err)

		claimed, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("0", "proc-c", first[0].ETag)})
		require.NoError(t, err)
		require.Empty(t, claimed)

		owned, err := s.ListOwnership(ctx, "ns.example.net", "telemetry", "$Default")
		require.NoError(t, err)
		require.Len(t, owned, 1, "at most one live record per key")
		require.Equal(t, "proc-b", owned[0].OwnerID)
	})

	t.Run("batch claims succeed partially", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		seed, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("1", "proc-a", "")})
		require.NoError(t, err)
		require.Len(t, seed, 1)

		claimed, err := s.ClaimOwnership(ctx, []types.Ownership{
			ownership("0", "proc-b", ""),     // fresh row: wins
			ownership("1", "proc-b", ""),     // exists: loses
			ownership("2", "proc-b", "9999"), // etag for a missing row: loses
		})
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		require.Equal(t, "0", claimed[0].PartitionID)
	})

	t.Run("abandonment preserves the etag chain", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		claimed, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("3", "proc-a", "")})
		require.NoError(t, err)

		// Graceful stop: owner clears itself but keeps the row.
		released, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("3", "", claimed[0].ETag)})
		require.NoError(t, err)
		require.Len(t, released, 1)
		require.True(t, released[0].IsAbandoned())

		// A peer reuses the abandoned row's etag without waiting.
		taken, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("3", "proc-b", released[0].ETag)})
		require.NoError(t, err)
		require.Len(t, taken, 1)
		require.Equal(t, "proc-b", taken[0].OwnerID)
	})

	t.Run("claim with missing key fields fails", func(t *testing.T) {
		s := newStore(t)

		_, err := s.ClaimOwnership(t.Context(), []types.Ownership{{PartitionID: "0", OwnerID: "proc-a"}})
		require.ErrorIs(t, err, types.ErrOwnershipIncomplete)
	})

	t.Run("checkpoints upsert and list by prefix", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		cp := types.Checkpoint{
			FullyQualifiedNamespace: "ns.example.net",
			EventHubName:            "telemetry",
			ConsumerGroup:           "$Default",
			PartitionID:             "0",
			Offset:                  "100",
			SequenceNumber:          10,
		}
		require.NoError(t, s.UpdateCheckpoint(ctx, cp))

		// Later write supersedes.
		cp.Offset = "200"
		cp.SequenceNumber = 20
		require.NoError(t, s.UpdateCheckpoint(ctx, cp))

		// A different consumer group is a different prefix.
		other := cp
		other.ConsumerGroup = "audit"
		other.Offset = "5"
		require.NoError(t, s.UpdateCheckpoint(ctx, other))

		cps, err := s.ListCheckpoints(ctx, "ns.example.net", "telemetry", "$Default")
		require.NoError(t, err)
		require.Len(t, cps, 1)
		require.Equal(t, "200", cps[0].Offset)
		require.EqualValues(t, 20, cps[0].SequenceNumber)
	})

	t.Run("checkpoint with missing key fields fails", func(t *testing.T) {
		s := newStore(t)

		err := s.UpdateCheckpoint(t.Context(), types.Checkpoint{PartitionID: "0"})
		require.ErrorIs(t, err, types.ErrCheckpointIncomplete)
	})

	t.Run("ownership scoped by consumer group", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		_, err := s.ClaimOwnership(ctx, []types.Ownership{ownership("0", "proc-a", "")})
		require.NoError(t, err)

		other := ownership("0", "proc-b", "")
		other.ConsumerGroup = "audit"
		claimed, err := s.ClaimOwnership(ctx, []types.Ownership{other})
		require.NoError(t, err)
		require.Len(t, claimed, 1, "groups coordinate independently")

		owned, err := s.ListOwnership(ctx, "ns.example.net", "telemetry", "audit")
		require.NoError(t, err)
		require.Len(t, owned, 1)
		require.Equal(t, "proc-b", owned[0].OwnerID)
	})
}
