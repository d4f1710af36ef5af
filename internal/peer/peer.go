// Package peer implements the relay's peer registry: an immutable,
// configuration-derived table mapping inbound bearer tokens to peer
// identities.
package peer

import "crypto/subtle"

// Kind distinguishes the three ILP relationship types a peer can hold.
type Kind int

// Peer kinds, per spec.md §3.
const (
	Parent Kind = iota
	Child
	Sibling
)

func (k Kind) String() string {
	switch k {
	case Parent:
		return "parent"
	case Child:
		return "child"
	case Sibling:
		return "sibling"
	}
	return "unknown"
}

// Record describes one configured peer.
type Record struct {
	Kind          Kind
	AccountName   string
	AddressSuffix string
	AuthTokens    []string
}

// Ref identifies the peer an inbound request was authenticated as.
type Ref struct {
	Kind          Kind
	AccountName   string
	AddressSuffix string
}

// tokenEntry pairs a registered token with the peer it identifies.
type tokenEntry struct {
	token string
	ref   Ref
}

// Registry is an immutable, process-lifetime table of configured peers.
// Tokens are grouped by length so Identify only has to run a constant-time
// comparison against candidates that could plausibly match, giving average
// O(1) lookup (spec.md §4.2) while still never branching on guessed-token
// content within a length class. Grounded on the teacher's speaker/peer.go
// Peer struct (kind + identity + per-peer options), generalized from BGP
// neighbor ASN/IP to ILP peer kind/account.
type Registry struct {
	byLength map[int][]tokenEntry
}

// NewRegistry builds a Registry from configured peer records. Invariants
// (at most one Parent; Child peers have a non-empty, dot-free
// AddressSuffix) are assumed to have been enforced by the config loader
// that produced records; NewRegistry does not re-validate them, matching
// the "built at startup from configuration" contract in spec.md §4.2.
func NewRegistry(records []Record) *Registry {
	byLength := make(map[int][]tokenEntry)
	for _, rec := range records {
		ref := Ref{
			Kind:          rec.Kind,
			AccountName:   rec.AccountName,
			AddressSuffix: rec.AddressSuffix,
		}
		for _, tok := range rec.AuthTokens {
			byLength[len(tok)] = append(byLength[len(tok)], tokenEntry{token: tok, ref: ref})
		}
	}
	return &Registry{byLength: byLength}
}

// Identify resolves an inbound bearer token to a peer reference. Candidates
// are narrowed to tokens of the same length (an average O(1) step via the
// length-keyed map), then every candidate in that bucket is compared in
// constant time with subtle.ConstantTimeCompare so that which candidate
// matched, if any, cannot be inferred from comparison timing.
func (r *Registry) Identify(token string) (Ref, bool) {
	candidates := r.byLength[len(token)]
	var (
		found Ref
		ok    bool
	)
	for _, c := range candidates {
		if subtle.ConstantTimeCompare([]byte(c.token), []byte(token)) == 1 {
			found = c.ref
			ok = true
		}
	}
	return found, ok
}
