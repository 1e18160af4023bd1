package strategy

import (
	"slices"
	"time"

	"github.com/driftlock/sluice/types"
)

// activeOwnerships filters a snapshot down to records that still count as
// live: owned by somebody and refreshed within the inactive limit.
//
// Abandoned records (empty owner) and stale records (owner stopped
// refreshing, typically because the process crashed) are dropped; their
// partitions become claimable without any explicit hand-off.
func activeOwnerships(ownerships map[string]types.Ownership, now time.Time, inactiveLimit time.Duration) map[string]types.Ownership {
	active := make(map[string]types.Ownership, len(ownerships))
	for pid, o := range ownerships {
		if o.IsAbandoned() {
			continue
		}
		if now.Sub(o.LastModifiedTime) > inactiveLimit {
			continue
		}
		active[pid] = o
	}

	return active
}

// ownerCounts buckets active ownerships by owner id.
//
// The deciding instance is always present in the result, at count zero if it
// owns nothing yet, so quota math sees the full fleet size.
func ownerCounts(active map[string]types.Ownership, selfID string) map[string]int {
	counts := make(map[string]int, len(active)+1)
	counts[selfID] = 0
	for _, o := range active {
		counts[o.OwnerID]++
	}

	return counts
}

// claimablePartitions returns the sorted partition ids not covered by an
// active ownership record.
func claimablePartitions(active map[string]types.Ownership, partitionIDs []string) []string {
	claimable := make([]string, 0, len(partitionIDs))
	for _, pid := range partitionIDs {
		if _, owned := active[pid]; !owned {
			claimable = append(claimable, pid)
		}
	}
	slices.Sort(claimable)

	return claimable
}

// stealCandidate picks one partition to steal from the most loaded owner.
//
// Only owners above minQuota are eligible victims. Ties between equally
// loaded owners break toward the lexicographically smaller owner id, and the
// stolen partition is the victim's lexicographically smallest, so every
// instance computing the same snapshot proposes the same move.
//
// Returns:
//   - string: partition id to steal
//   - bool: false when no owner is above minQuota
func stealCandidate(active map[string]types.Ownership, counts map[string]int, selfID string, minQuota int) (string, bool) {
	victim := ""
	victimCount := 0
	for owner, count := range counts {
		if owner == selfID || count <= minQuota {
			continue
		}
		if count > victimCount || (count == victimCount && owner < victim) {
			victim = owner
			victimCount = count
		}
	}
	if victim == "" {
		return "", false
	}

	stolen := ""
	for pid, o := range active {
		if o.OwnerID != victim {
			continue
		}
		if stolen == "" || pid < stolen {
			stolen = pid
		}
	}
	if stolen == "" {
		return "", false
	}

	return stolen, true
}
