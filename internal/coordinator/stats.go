package coordinator

import (
	"fmt"
	"time"

	"github.com/ventio/airmod/internal/plan"
)

// GroupStats tracks one read group's history. Counters are monotonic for
// the life of the session; they are never silently reset.
type GroupStats struct {
	Function string        `json:"function"`
	Start    uint16        `json:"start"`
	Count    uint16        `json:"count"`
	Reads    uint64        `json:"reads"`
	Failures uint64        `json:"failures"`
	// Consecutive counts failed cycles since the last success.
	Consecutive int           `json:"consecutive_failures"`
	LastError   string        `json:"last_error,omitempty"`
	LastLatency time.Duration `json:"last_latency_ns"`
}

// CycleStats aggregates polling health for diagnostics.
type CycleStats struct {
	Cycles          uint64    `json:"cycles"`
	SuccessfulReads uint64    `json:"successful_reads"`
	FailedReads     uint64    `json:"failed_reads"`
	FailedCycles    uint64    `json:"failed_cycles"` // cycles where every group failed
	Rescans         uint64    `json:"rescans"`
	LastCycleAt     time.Time `json:"last_cycle_at"`
	LastError       string    `json:"last_error,omitempty"`

	Groups map[string]*GroupStats `json:"groups"`
}

func newCycleStats() *CycleStats {
	return &CycleStats{Groups: make(map[string]*GroupStats)}
}

func groupKey(g plan.Group) string {
	return fmt.Sprintf("%s@0x%04X+%d", g.Function, g.Start, g.Count)
}

func (cs *CycleStats) group(g plan.Group) *GroupStats {
	key := groupKey(g)
	gs, ok := cs.Groups[key]
	if !ok {
		gs = &GroupStats{Function: g.Function.String(), Start: g.Start, Count: g.Count}
		cs.Groups[key] = gs
	}
	return gs
}

func (cs *CycleStats) recordSuccess(g plan.Group, latency time.Duration, attempts int) {
	gs := cs.group(g)
	gs.Reads++
	gs.Failures += uint64(attempts - 1) // failed attempts before the success
	gs.Consecutive = 0
	gs.LastError = ""
	gs.LastLatency = latency
	cs.SuccessfulReads++
	cs.FailedReads += uint64(attempts - 1)
}

func (cs *CycleStats) recordFailure(g plan.Group, err error, attempts int) {
	gs := cs.group(g)
	gs.Failures += uint64(attempts)
	gs.Consecutive++
	gs.LastError = err.Error()
	cs.FailedReads += uint64(attempts)
	cs.LastError = err.Error()
}

// clone produces an independent copy for diagnostics readers.
func (cs *CycleStats) clone() CycleStats {
	out := *cs
	out.Groups = make(map[string]*GroupStats, len(cs.Groups))
	for k, v := range cs.Groups {
		g := *v
		out.Groups[k] = &g
	}
	return out
}
