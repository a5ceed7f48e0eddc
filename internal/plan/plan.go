// Package plan groups register addresses into bounded contiguous read
// requests. Pure geometry: no transport, no semantics.
package plan

import (
	"sort"

	"github.com/ventio/airmod/internal/registers"
)

// Group is a single bounded-size contiguous-address read request.
type Group struct {
	Function registers.Function
	Start    uint16
	Count    uint16
}

// End returns the last address covered by the group.
func (g Group) End() uint16 {
	return g.Start + g.Count - 1
}

// Addresses expands the group back into its member addresses.
func (g Group) Addresses() []uint16 {
	out := make([]uint16, g.Count)
	for i := range out {
		out[i] = g.Start + uint16(i)
	}
	return out
}

// Groups plans read requests over the candidate addresses of one function
// area. Addresses are deduplicated and sorted, then merged greedily into
// maximal contiguous runs capped at maxBlock. The greedy merge is optimal:
// requests must cover ascending contiguous spans, so no reordering can
// produce fewer groups.
func Groups(fn registers.Function, addrs []uint16, maxBlock uint16) []Group {
	if len(addrs) == 0 || maxBlock == 0 {
		return nil
	}

	sorted := make([]uint16, len(addrs))
	copy(sorted, addrs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var groups []Group
	cur := Group{Function: fn, Start: sorted[0], Count: 1}

	for _, addr := range sorted[1:] {
		if addr == cur.End() {
			continue // duplicate
		}
		if addr == cur.End()+1 && cur.Count < maxBlock {
			cur.Count++
			continue
		}
		groups = append(groups, cur)
		cur = Group{Function: fn, Start: addr, Count: 1}
	}
	return append(groups, cur)
}

// Bisect splits a group at its midpoint. The caller must not bisect a
// single-address group.
func Bisect(g Group) (Group, Group) {
	half := g.Count / 2
	lo := Group{Function: g.Function, Start: g.Start, Count: half}
	hi := Group{Function: g.Function, Start: g.Start + half, Count: g.Count - half}
	return lo, hi
}
