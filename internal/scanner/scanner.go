// Package scanner discovers which catalog registers a connected unit
// actually answers for.
package scanner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ventio/airmod/internal/plan"
	"github.com/ventio/airmod/internal/registers"
	"github.com/ventio/airmod/internal/retry"
	"github.com/ventio/airmod/internal/transport"
)

// Identity register addresses in the input area.
const (
	addrFirmwareMajor = 0x0000
	addrFirmwareMinor = 0x0001
	addrFirmwarePatch = 0x0004
	addrSerialStart   = 0x0018
	addrSerialEnd     = 0x001D
)

// Scanner walks the full catalog against the device and classifies every
// address. Safe to reuse across rescans.
type Scanner struct {
	Client     transport.Client
	Catalog    *registers.Catalog
	MaxBlock   uint16
	Policy     retry.Policy
	Classifier transport.Classifier
	Logger     *log.Logger
}

// scanState carries one scan's mutable bookkeeping.
type scanState struct {
	*Scanner
	profile  *Profile
	identity map[uint16]uint16 // harvested input-area identity words
}

// Scan probes every catalog address and returns the unit's Profile.
// It fails only when the connection is dead (verification read cannot get
// any answer) or ctx is cancelled; per-address failures are recorded.
func (s *Scanner) Scan(ctx context.Context) (*Profile, error) {
	if s.MaxBlock == 0 {
		return nil, fmt.Errorf("scanner: max block size must be > 0")
	}
	if s.Classifier == nil {
		s.Classifier = transport.DefaultClassifier()
	}

	st := &scanState{
		Scanner:  s,
		profile:  newProfile(),
		identity: make(map[uint16]uint16),
	}

	if err := st.verifyConnection(ctx); err != nil {
		return nil, err
	}

	for _, fn := range registers.Functions {
		addrs := s.Catalog.Addresses(fn)
		for _, g := range plan.Groups(fn, addrs, s.MaxBlock) {
			if err := st.probe(ctx, g); err != nil {
				return nil, err
			}
		}
	}

	st.harvestIdentity()
	st.profile.ScannedAt = time.Now()
	s.logf("scan complete: %s", st.profile.Summary())
	return st.profile, nil
}

// verifyConnection issues one small read with the full retry budget. A
// protocol exception still proves the link is alive; only a transport-level
// failure is fatal.
func (st *scanState) verifyConnection(ctx context.Context) error {
	// An exception is already proof of life: stop retrying the moment one
	// arrives instead of burning the budget on it.
	retryable := func(err error) bool {
		_, ok := transport.IsException(err)
		return !ok
	}
	err := retry.Do(ctx, st.Policy, retryable, func() error {
		st.profile.Requests++
		_, err := st.Client.ReadInputRegisters(addrFirmwareMajor, 2)
		return err
	})
	if err == nil {
		return nil
	}
	if _, ok := transport.IsException(err); ok {
		return nil
	}
	return fmt.Errorf("scanner: device unreachable: %w", err)
}

// probe classifies one planned group, bisecting on permanent exceptions so
// a single missing register does not hide its neighbors.
func (st *scanState) probe(ctx context.Context, g plan.Group) error {
	words, bits, err := st.readGroup(ctx, g)
	if err == nil {
		st.markSupported(g, words, bits)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	switch st.Classifier.Classify(err) {
	case transport.ClassPermanent:
		if g.Count == 1 {
			st.profile.Unsupported[g.Function][g.Start] = true
			return nil
		}
		lo, hi := plan.Bisect(g)
		if err := st.probe(ctx, lo); err != nil {
			return err
		}
		return st.probe(ctx, hi)
	default:
		// Retry budget exhausted on a transient error: give up on the
		// block for this scan without shrinking it.
		st.logf("scan: %s 0x%04X+%d failed transiently: %v", g.Function, g.Start, g.Count, err)
		for _, addr := range g.Addresses() {
			st.profile.Failed[g.Function][addr] = true
		}
		return nil
	}
}

// readGroup executes one group with retries on transient errors only.
// Permanent exceptions surface immediately so bisection can proceed.
func (st *scanState) readGroup(ctx context.Context, g plan.Group) ([]uint16, []bool, error) {
	var words []uint16
	var bits []bool

	retryable := func(err error) bool {
		return st.Classifier.Classify(err) == transport.ClassTransient
	}
	err := retry.Do(ctx, st.Policy, retryable, func() error {
		st.profile.Requests++
		var err error
		if g.Function.IsBits() {
			bits, err = transport.ReadBits(st.Client, g.Function, g.Start, g.Count)
		} else {
			words, err = transport.ReadWords(st.Client, g.Function, g.Start, g.Count)
		}
		return err
	})
	return words, bits, err
}

// markSupported records every address of a successful group and validates
// the decoded values (validate and discard: the poll cycle owns real data).
func (st *scanState) markSupported(g plan.Group, words []uint16, bits []bool) {
	for _, addr := range g.Addresses() {
		st.profile.Supported[g.Function][addr] = true
	}

	if g.Function == registers.FuncInput {
		for i, addr := range g.Addresses() {
			if i < len(words) && identityAddress(addr) {
				st.identity[addr] = words[i]
			}
		}
	}

	if g.Function.IsBits() {
		return
	}
	for i, addr := range g.Addresses() {
		def, ok := st.Catalog.Lookup(g.Function, addr)
		if !ok || i+int(def.Words) > len(words) {
			continue
		}
		if _, err := def.Decode(words[i : i+int(def.Words)]); err != nil {
			st.logf("scan: %s reads but decodes dirty: %v", def.Name, err)
		}
	}
}

func (st *scanState) harvestIdentity() {
	maj, okMaj := st.identity[addrFirmwareMajor]
	min, okMin := st.identity[addrFirmwareMinor]
	if okMaj && okMin {
		patch := st.identity[addrFirmwarePatch]
		st.profile.Firmware = fmt.Sprintf("%d.%d.%d", maj, min, patch)
	}

	serial := ""
	for addr := uint16(addrSerialStart); addr <= addrSerialEnd; addr++ {
		w, ok := st.identity[addr]
		if !ok {
			serial = ""
			break
		}
		serial += fmt.Sprintf("%04X", w)
	}
	st.profile.Serial = serial
}

func identityAddress(addr uint16) bool {
	switch addr {
	case addrFirmwareMajor, addrFirmwareMinor, addrFirmwarePatch:
		return true
	}
	return addr >= addrSerialStart && addr <= addrSerialEnd
}

func (s *Scanner) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}
