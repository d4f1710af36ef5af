// Package route implements the relay's route table: a prefix trie mapping
// destination addresses to ordered candidate sub-routes. Structurally
// grounded on the teacher's radix/radix.go (a Radix trie of net.IPNet
// edges, relocating more-specific edges under freshly inserted nodes);
// this trie keys edges on '.'-separated ILP address segments instead of
// IP network containment.
package route

import (
	"strings"

	"github.com/coilhq/interledger-relay/internal/ilpaddr"
)

// Entry is one configured route: a target prefix and its non-empty,
// ordered list of candidate sub-routes.
type Entry struct {
	TargetPrefix ilpaddr.Prefix
	SubRoutes    []SubRoute
}

// node is one trie node, keyed by address segment. entry is non-nil at
// nodes that terminate a configured route.
type node struct {
	children map[string]*node
	entry    *Entry
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Table is the relay's immutable, process-lifetime route table. Built
// once at startup (spec.md §4.3) and shared read-only by every request
// handler thereafter.
type Table struct {
	root *node
}

// NewTable builds a Table from the given route entries. Entries may be
// supplied in any order: longest-prefix-wins matching is a property of
// Match, not of insertion order.
func NewTable(entries []Entry) *Table {
	t := &Table{root: newNode()}
	for i := range entries {
		t.insert(entries[i])
	}
	return t
}

func segmentsOf(p ilpaddr.Prefix) []string {
	bare := strings.TrimSuffix(string(p), ".")
	if bare == "" {
		return nil
	}
	return strings.Split(bare, ".")
}

func (t *Table) insert(e Entry) {
	n := t.root
	for _, seg := range segmentsOf(e.TargetPrefix) {
		child, ok := n.children[seg]
		if !ok {
			child = newNode()
			n.children[seg] = child
		}
		n = child
	}
	entryCopy := e
	n.entry = &entryCopy
}

// Match returns the route entry whose target prefix is the longest
// prefix of destination, per spec.md §4.3. Ties cannot arise: each trie
// node holds at most one entry, so exactly one entry (or none) is the
// deepest reachable by walking destination's segments from the root. A
// prefix written with and without a trailing '.' terminates at the same
// node; the entry inserted last replaces the other.
func (t *Table) Match(destination ilpaddr.Address) (*Entry, bool) {
	n := t.root
	var best *Entry
	if n.entry != nil {
		best = n.entry
	}
	for _, seg := range ilpaddr.Segments(destination) {
		child, ok := n.children[seg]
		if !ok {
			break
		}
		n = child
		if n.entry != nil {
			best = n.entry
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}
