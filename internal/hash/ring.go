// Package hash provides the consistent hash ring used by the sticky load
// balancer to give partitions a stable affinity to owners.
package hash

import (
	"encoding/binary"
	"slices"

	"github.com/zeebo/xxh3"
)

// Ring implements a consistent hash ring with virtual nodes.
//
// The ring maps partition ids to owner ids. Because the mapping only depends
// on the set of owners, every instance in a fleet derives the same placement
// from the same ownership snapshot, and adding or removing one owner only
// moves the partitions adjacent to its virtual nodes.
type Ring struct {
	// nodes contains all virtual nodes on the ring, sorted by hash
	nodes []virtualNode

	// owners holds the unique list of owners present on the ring
	owners []string

	// seed for hash function (0 means unseeded)
	seed uint64
}

// virtualNode represents a virtual node on the hash ring.
type virtualNode struct {
	hash    uint64 // position on the ring
	ownerID string // owner holding this virtual node
}

// NewRing creates a new consistent hash ring.
//
// Parameters:
//   - owners: owner ids to place on the ring
//   - virtualNodesPerOwner: virtual nodes per owner (higher = better distribution)
//   - seed: hash seed (0 for unseeded, non-zero for deterministic alternates)
//
// Returns:
//   - *Ring: initialized hash ring
//
// Example:
//
//	ring := hash.NewRing([]string{"proc-a", "proc-b"}, 150, 0)
//	owner := ring.GetOwner("3")
func NewRing(owners []string, virtualNodesPerOwner int, seed uint64) *Ring {
	ring := &Ring{
		nodes:  make([]virtualNode, 0, len(owners)*virtualNodesPerOwner),
		owners: []string{},
		seed:   seed,
	}

	// Deduplicate owners while preserving order
	if len(owners) > 0 {
		seen := make(map[string]struct{}, len(owners))
		uniq := make([]string, 0, len(owners))
		for _, o := range owners {
			if _, ok := seen[o]; ok {
				continue
			}
			seen[o] = struct{}{}
			uniq = append(uniq, o)
		}
		ring.owners = uniq
	}

	for _, ownerID := range ring.owners {
		ring.addOwner(ownerID, virtualNodesPerOwner)
	}

	// Sort nodes by hash for binary search
	slices.SortFunc(ring.nodes, func(a, b virtualNode) int {
		if a.hash < b.hash {
			return -1
		}
		if a.hash > b.hash {
			return 1
		}

		return 0
	})

	return ring
}

// GetOwner finds the owner responsible for a partition id.
//
// Uses binary search for the first virtual node whose hash is >= the
// partition hash, wrapping around to the first node past the end of the ring.
//
// Parameters:
//   - partitionID: partition identifier to place
//
// Returns:
//   - string: owner id responsible for the partition ("" on an empty ring)
func (r *Ring) GetOwner(partitionID string) string {
	if len(r.nodes) == 0 {
		return ""
	}

	h := r.hash(partitionID)

	idx, found := slices.BinarySearchFunc(r.nodes, h, func(node virtualNode, t uint64) int {
		if node.hash < t {
			return -1
		}
		if node.hash > t {
			return 1
		}

		return 0
	})

	if !found && idx >= len(r.nodes) {
		idx = 0
	}

	return r.nodes[idx].ownerID
}

// Owners returns the list of unique owners on the ring.
func (r *Ring) Owners() []string {
	// Return a copy to avoid external mutation
	return append([]string(nil), r.owners...)
}

// Size returns the total number of virtual nodes on the ring.
func (r *Ring) Size() int {
	return len(r.nodes)
}

// addOwner adds virtual nodes for an owner to the ring.
//
// The vnode hash folds the owner hash into the vnode index so no
// intermediate concatenated string is allocated.
func (r *Ring) addOwner(ownerID string, virtualNodes int) {
	base := r.hash(ownerID)

	for i := range virtualNodes {
		var ib [8]byte
		binary.LittleEndian.PutUint64(ib[:], uint64(i)) //nolint:gosec
		h := xxh3.HashSeed(ib[:], base)

		r.nodes = append(r.nodes, virtualNode{
			hash:    h,
			ownerID: ownerID,
		})
	}
}

// hash computes a 64-bit XXH3 hash of the key.
func (r *Ring) hash(key string) uint64 {
	if r.seed != 0 {
		return xxh3.HashStringSeed(key, r.seed)
	}

	return xxh3.HashString(key)
}
