// Package selector implements deterministic weighted sub-route
// selection: given a route entry's available sub-routes and a partition
// key, it picks exactly one sub-route per spec.md §4.5.
package selector

import (
	"errors"
	"hash/fnv"
	"time"

	"github.com/coilhq/interledger-relay/internal/failure"
	"github.com/coilhq/interledger-relay/internal/route"
)

// ErrNoAvailableRoute is returned when every sub-route under a matched
// entry is currently unavailable (spec.md §4.5 step 3).
var ErrNoAvailableRoute = errors.New("selector: no available sub-route")

// PartitionKeyKind selects which field of a Prepare is hashed to choose
// a sub-route (spec.md §4.5).
type PartitionKeyKind int

// Partition key kinds.
const (
	PartitionByDestination PartitionKeyKind = iota
	PartitionByExecutionCondition
)

// Select picks exactly one sub-route from entry, using failures to skip
// unavailable candidates and partitionKey to deterministically weight
// the remainder. The mod-2^53 reduction to [0,1) matches
// spec.md's "H(partition_key) mod 2^53 / 2^53" requirement for a
// stable, reproducible, non-cryptographic hash.
func Select(entry *route.Entry, failures *failure.Registry, partitionKey []byte, now time.Time) (route.SubRoute, error) {
	available := make([]route.SubRoute, 0, len(entry.SubRoutes))
	var total float64
	for _, sr := range entry.SubRoutes {
		if failures.IsAvailable(sr.ID, now) {
			available = append(available, sr)
			total += sr.Partition
		}
	}
	if len(available) == 0 || total <= 0 {
		return route.SubRoute{}, ErrNoAvailableRoute
	}

	x := partitionValue(partitionKey)
	var cumulative float64
	for _, sr := range available {
		cumulative += sr.Partition / total
		if cumulative > x {
			return sr, nil
		}
	}
	// Floating point rounding can leave cumulative just short of 1 at the
	// last candidate; fall back to it rather than erroring spuriously.
	return available[len(available)-1], nil
}

// partitionValue computes a deterministic value in [0, 1) from key,
// using a 64-bit FNV-1a hash reduced mod 2^53 (the largest integer a
// float64 represents exactly), then divided by 2^53.
func partitionValue(key []byte) float64 {
	h := fnv.New64a()
	h.Write(key)
	sum := h.Sum64()
	const mod = uint64(1) << 53
	return float64(sum%mod) / float64(mod)
}
