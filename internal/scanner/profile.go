package scanner

import (
	"fmt"
	"sort"
	"time"

	"github.com/ventio/airmod/internal/registers"
)

// Profile is the discovered capability set of one connected unit. Replaced
// wholesale on rescan; owned by the coordinator afterwards.
type Profile struct {
	// Supported holds every word address the unit answered for, per area.
	Supported map[registers.Function]map[uint16]bool
	// Unsupported holds addresses the unit rejected with a permanent
	// exception (illegal address / function).
	Unsupported map[registers.Function]map[uint16]bool
	// Failed holds addresses that could not be classified this scan
	// (transient errors after the retry budget). Eligible for rescan.
	Failed map[registers.Function]map[uint16]bool

	Firmware  string
	Serial    string
	ScannedAt time.Time
	Requests  int // transport round trips the scan issued
}

func newProfile() *Profile {
	p := &Profile{
		Supported:   make(map[registers.Function]map[uint16]bool),
		Unsupported: make(map[registers.Function]map[uint16]bool),
		Failed:      make(map[registers.Function]map[uint16]bool),
	}
	for _, fn := range registers.Functions {
		p.Supported[fn] = make(map[uint16]bool)
		p.Unsupported[fn] = make(map[uint16]bool)
		p.Failed[fn] = make(map[uint16]bool)
	}
	return p
}

// IsSupported reports whether the unit answered for the address.
func (p *Profile) IsSupported(fn registers.Function, addr uint16) bool {
	return p.Supported[fn][addr]
}

// SupportedAddresses returns the area's supported addresses in ascending
// order: the coordinator's polling universe.
func (p *Profile) SupportedAddresses(fn registers.Function) []uint16 {
	return sortedKeys(p.Supported[fn])
}

// UnsupportedAddresses returns the area's permanently rejected addresses.
func (p *Profile) UnsupportedAddresses(fn registers.Function) []uint16 {
	return sortedKeys(p.Unsupported[fn])
}

// FailedAddresses returns the area's transiently failed addresses.
func (p *Profile) FailedAddresses(fn registers.Function) []uint16 {
	return sortedKeys(p.Failed[fn])
}

// Empty reports whether the scan found no supported address at all. An
// empty profile must never replace a working one.
func (p *Profile) Empty() bool {
	for _, fn := range registers.Functions {
		if len(p.Supported[fn]) > 0 {
			return false
		}
	}
	return true
}

// Summary renders a one-line account for logs and diagnostics.
func (p *Profile) Summary() string {
	total, unsupported, failed := 0, 0, 0
	for _, fn := range registers.Functions {
		total += len(p.Supported[fn])
		unsupported += len(p.Unsupported[fn])
		failed += len(p.Failed[fn])
	}
	return fmt.Sprintf("supported=%d unsupported=%d failed=%d firmware=%q requests=%d",
		total, unsupported, failed, p.Firmware, p.Requests)
}

func sortedKeys(set map[uint16]bool) []uint16 {
	out := make([]uint16, 0, len(set))
	for addr := range set {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
