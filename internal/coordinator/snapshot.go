package coordinator

import (
	"time"

	"github.com/ventio/airmod/internal/registers"
)

// Reading is one register's last-known decoded value with health metadata.
type Reading struct {
	Value     registers.Value
	UpdatedAt time.Time
	// Stale is set once the register's consecutive-failure count crosses
	// the demotion threshold. The value itself is never cleared.
	Stale bool
}

// View is an immutable copy of the coordinator's value table, safe to read
// after the coordinator moves on to the next cycle.
type View map[registers.Function]map[uint16]Reading

// Get returns the reading at (function, address), if one was ever merged.
func (v View) Get(fn registers.Function, addr uint16) (Reading, bool) {
	r, ok := v[fn][addr]
	return r, ok
}

// snapshot is the coordinator-owned mutable table behind View.
type snapshot struct {
	values   map[registers.Function]map[uint16]Reading
	failures map[registers.Function]map[uint16]int // consecutive per register
}

func newSnapshot() *snapshot {
	s := &snapshot{
		values:   make(map[registers.Function]map[uint16]Reading),
		failures: make(map[registers.Function]map[uint16]int),
	}
	for _, fn := range registers.Functions {
		s.values[fn] = make(map[uint16]Reading)
		s.failures[fn] = make(map[uint16]int)
	}
	return s
}

// merge stores a fresh value and clears the failure streak of every word
// the definition occupies. Streaks are tracked per word address, so a
// two-word register resets both.
func (s *snapshot) merge(def *registers.Definition, v registers.Value, at time.Time) {
	s.values[def.Function][def.Address] = Reading{Value: v, UpdatedAt: at}
	words := def.Words
	if words < 1 {
		words = 1
	}
	for w := uint8(0); w < words; w++ {
		s.failures[def.Function][def.Address+uint16(w)] = 0
	}
}

// fail counts one failed cycle for the register and returns the new streak.
// The previously merged value stays visible.
func (s *snapshot) fail(fn registers.Function, addr uint16) int {
	s.failures[fn][addr]++
	return s.failures[fn][addr]
}

// markStale flags the register without touching its value.
func (s *snapshot) markStale(fn registers.Function, addr uint16) {
	if r, ok := s.values[fn][addr]; ok {
		r.Stale = true
		s.values[fn][addr] = r
	}
}

// clearStreaks resets failure accounting after a rescan replaced the
// polling universe.
func (s *snapshot) clearStreaks() {
	for _, fn := range registers.Functions {
		s.failures[fn] = make(map[uint16]int)
	}
}

func (s *snapshot) view() View {
	out := make(View, len(s.values))
	for fn, regs := range s.values {
		m := make(map[uint16]Reading, len(regs))
		for addr, r := range regs {
			m[addr] = r
		}
		out[fn] = m
	}
	return out
}
