package config

import (
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/coilhq/interledger-relay/internal/peer"
	"github.com/coilhq/interledger-relay/internal/route"
)

// validateRouteEntries enforces the sub-route-level invariant from
// spec.md §3 that isn't expressible as a struct tag: for a given target
// prefix, the sum of active (non-zero-partition) sub-route partitions
// must be positive whenever any sub-route is configured.
func validateRouteEntries(entries []route.Entry) error {
	for _, e := range entries {
		var total float64
		for _, sr := range e.SubRoutes {
			total += sr.Partition
		}
		if total <= 0 {
			return pkgerrors.Errorf("config: route %q has no sub-route with a positive partition", e.TargetPrefix)
		}
	}
	return nil
}

// validatePeerRecords enforces the peer-record invariants from spec.md
// §3: at most one Parent peer, and every Child peer has a non-empty,
// dot-free address_suffix. internal/peer's Registry documents that its
// caller has already enforced these; this is that caller.
func validatePeerRecords(records []peer.Record) error {
	parents := 0
	for _, r := range records {
		if r.Kind == peer.Parent {
			parents++
		}
		if r.Kind == peer.Child {
			if r.AddressSuffix == "" {
				return pkgerrors.Errorf("config: child peer %q must set a non-empty address_suffix", r.AccountName)
			}
			if strings.Contains(r.AddressSuffix, ".") {
				return pkgerrors.Errorf("config: child peer %q address_suffix must not contain '.'", r.AccountName)
			}
		}
	}
	if parents > 1 {
		return pkgerrors.New("config: at most one parent peer is allowed")
	}
	return nil
}
