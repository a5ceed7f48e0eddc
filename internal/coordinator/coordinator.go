// Package coordinator owns one unit's device profile and value snapshot,
// runs the periodic poll loop and serves cached reads and validated writes.
package coordinator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ventio/airmod/internal/plan"
	"github.com/ventio/airmod/internal/registers"
	"github.com/ventio/airmod/internal/retry"
	"github.com/ventio/airmod/internal/scanner"
	"github.com/ventio/airmod/internal/transport"
)

// State is the coordinator lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StateScanning
	StatePolling
	StateRescanning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StatePolling:
		return "polling"
	case StateRescanning:
		return "rescanning"
	case StateStopped:
		return "stopped"
	}
	return "idle"
}

// Config is the coordinator's runtime tuning.
type Config struct {
	Interval    time.Duration // poll period
	MaxBlock    uint16        // registers per read request
	Policy      retry.Policy  // per-group retry budget
	DemoteAfter int           // consecutive failures before register demotion
	RescanAfter int           // consecutive failed cycles before auto rescan
}

// Coordinator runs the scan-then-poll state machine for one device. One
// instance per configured unit; never a process-wide singleton.
type Coordinator struct {
	SessionID string

	cfg        Config
	client     transport.Client
	catalog    *registers.Catalog
	scanner    *scanner.Scanner
	classifier transport.Classifier
	logger     *log.Logger

	mu       sync.RWMutex
	state    State
	health   Health
	profile  *scanner.Profile
	snap     *snapshot
	stats    *CycleStats
	demoted  map[registers.Function]map[uint16]bool
	cycleRun int // consecutive full-cycle failures

	rescanCh chan struct{}
}

// New wires a coordinator. The scanner shares the coordinator's transport
// client, catalog, retry policy and classifier.
func New(cfg Config, client transport.Client, catalog *registers.Catalog, logger *log.Logger) (*Coordinator, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("coordinator: interval must be > 0")
	}
	if cfg.MaxBlock == 0 {
		return nil, errors.New("coordinator: max block size must be > 0")
	}
	if cfg.DemoteAfter < 1 {
		cfg.DemoteAfter = 5
	}
	if cfg.RescanAfter < 1 {
		cfg.RescanAfter = 10
	}

	classifier := transport.DefaultClassifier()
	c := &Coordinator{
		SessionID:  uuid.NewString(),
		cfg:        cfg,
		client:     client,
		catalog:    catalog,
		classifier: classifier,
		logger:     logger,
		snap:       newSnapshot(),
		stats:      newCycleStats(),
		demoted:    make(map[registers.Function]map[uint16]bool),
		rescanCh:   make(chan struct{}, 1),
	}
	for _, fn := range registers.Functions {
		c.demoted[fn] = make(map[uint16]bool)
	}
	c.scanner = &scanner.Scanner{
		Client:     client,
		Catalog:    catalog,
		MaxBlock:   cfg.MaxBlock,
		Policy:     cfg.Policy,
		Classifier: classifier,
		Logger:     logger,
	}
	return c, nil
}

// SetClassifier installs a config-overridden exception classifier. Must be
// called before Run.
func (c *Coordinator) SetClassifier(cl transport.Classifier) {
	c.classifier = cl
	c.scanner.Classifier = cl
}

// Run drives Scanning then Polling until ctx is cancelled. Cycles never
// overlap: an overrun delays the next tick rather than running concurrently.
func (c *Coordinator) Run(ctx context.Context) error {
	c.setState(StateScanning)
	profile, err := c.scanner.Scan(ctx)
	if err != nil {
		c.setState(StateStopped)
		return err
	}
	c.adoptProfile(profile)
	c.setState(StatePolling)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.pollCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			c.setState(StateStopped)
			return nil
		case <-c.rescanCh:
			c.rescan(ctx)
		case <-ticker.C:
			c.pollCycle(ctx)
			if c.needsRescan() {
				c.rescan(ctx)
			}
		}
	}
}

// Rescan asks the running coordinator to re-run capability discovery
// without tearing down the transport session. Non-blocking; coalesces.
func (c *Coordinator) Rescan() {
	select {
	case c.rescanCh <- struct{}{}:
	default:
	}
}

// View returns an immutable copy of the snapshot for presentation
// adapters.
func (c *Coordinator) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.view()
}

// Lookup is the non-blocking cached read: last-known value plus staleness.
func (c *Coordinator) Lookup(fn registers.Function, addr uint16) (Reading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.snap.values[fn][addr]
	return r, ok
}

// State reports the lifecycle state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Health reports the connectivity verdict of the last cycle.
func (c *Coordinator) Health() Health {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// Profile returns the current device profile (nil before the first scan).
func (c *Coordinator) Profile() *scanner.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) adoptProfile(p *scanner.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = p
	for _, fn := range registers.Functions {
		c.demoted[fn] = make(map[uint16]bool)
	}
	c.snap.clearStreaks()
	c.cycleRun = 0
	if c.logger != nil {
		c.logger.Printf("profile adopted: %s", p.Summary())
	}
}

// planGroups builds this cycle's requests over the supported, non-demoted
// address set. Polling the discovered subset instead of the full catalog is
// what keeps request counts down.
func (c *Coordinator) planGroups() []plan.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.profile == nil {
		return nil
	}

	var groups []plan.Group
	for _, fn := range registers.Functions {
		var active []uint16
		for _, addr := range c.profile.SupportedAddresses(fn) {
			if !c.demoted[fn][addr] {
				active = append(active, addr)
			}
		}
		groups = append(groups, plan.Groups(fn, active, c.cfg.MaxBlock)...)
	}
	return groups
}

// pollCycle executes one full poll pass. Group failures are absorbed
// locally; they never abort the cycle for other groups.
func (c *Coordinator) pollCycle(ctx context.Context) {
	groups := c.planGroups()
	if len(groups) == 0 {
		c.starvedCycle()
		return
	}

	now := time.Now()
	words := make(map[registers.Function]map[uint16]uint16)
	bits := make(map[registers.Function]map[uint16]bool)
	for _, fn := range registers.Functions {
		words[fn] = make(map[uint16]uint16)
		bits[fn] = make(map[uint16]bool)
	}

	failedGroups := 0
	var failedAddrs []struct {
		fn   registers.Function
		addr uint16
	}

	for _, g := range groups {
		if ctx.Err() != nil {
			return
		}
		gWords, gBits, latency, attempts, err := c.readGroup(ctx, g)

		c.mu.Lock()
		if err != nil {
			c.stats.recordFailure(g, err, attempts)
			failedGroups++
			for _, addr := range g.Addresses() {
				failedAddrs = append(failedAddrs, struct {
					fn   registers.Function
					addr uint16
				}{g.Function, addr})
			}
			c.mu.Unlock()
			if c.logger != nil {
				c.logger.Printf("poll: %s failed after %d attempts: %v", groupKey(g), attempts, err)
			}
			continue
		}
		c.stats.recordSuccess(g, latency, attempts)
		for i, addr := range g.Addresses() {
			if g.Function.IsBits() {
				bits[g.Function][addr] = gBits[i]
			} else {
				words[g.Function][addr] = gWords[i]
			}
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.mergeCycle(words, bits, now)

	demotedAny := false
	for _, fa := range failedAddrs {
		streak := c.snap.fail(fa.fn, fa.addr)
		if streak >= c.cfg.DemoteAfter && !c.demoted[fa.fn][fa.addr] {
			c.demoted[fa.fn][fa.addr] = true
			c.snap.markStale(fa.fn, fa.addr)
			demotedAny = true
			if c.logger != nil {
				c.logger.Printf("poll: demoted %s/0x%04X after %d consecutive failures", fa.fn, fa.addr, streak)
			}
		}
	}
	if demotedAny {
		c.demoteWideSiblings()
	}

	c.stats.Cycles++
	c.stats.LastCycleAt = now
	if failedGroups == len(groups) {
		c.stats.FailedCycles++
		c.cycleRun++
	} else {
		c.cycleRun = 0
	}
	c.health = deriveHealth(len(groups), failedGroups)
}

// starvedCycle accounts a cycle in which demotion emptied the plan while a
// profile still exists. It counts as a failed cycle so the automatic rescan
// arms and brings the demoted registers back.
func (c *Coordinator) starvedCycle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile == nil || c.profile.Empty() {
		return
	}
	c.stats.Cycles++
	c.stats.FailedCycles++
	c.stats.LastCycleAt = time.Now()
	c.cycleRun++
	c.health = HealthStale
}

// demoteWideSiblings demotes two-word registers as a unit. A wide register
// with one demoted word would otherwise keep its partner in the plan,
// polled every cycle but never mergeable.
func (c *Coordinator) demoteWideSiblings() {
	for _, fn := range registers.Functions {
		if fn.IsBits() {
			continue
		}
		for _, def := range c.catalog.AllInArea(fn) {
			if def.Words < 2 {
				continue
			}
			any, all := false, true
			for w := uint8(0); w < def.Words; w++ {
				if c.demoted[fn][def.Address+uint16(w)] {
					any = true
				} else {
					all = false
				}
			}
			if !any || all {
				continue
			}
			for w := uint8(0); w < def.Words; w++ {
				c.demoted[fn][def.Address+uint16(w)] = true
			}
			c.snap.markStale(fn, def.Address)
			if c.logger != nil {
				c.logger.Printf("poll: demoted %s entirely, one of its words is dead", def.Name)
			}
		}
	}
}

// mergeCycle decodes every definition whose words arrived this cycle.
// Collecting words across groups first keeps two-word registers whole even
// when the planner split their run at a block boundary.
func (c *Coordinator) mergeCycle(words map[registers.Function]map[uint16]uint16, bits map[registers.Function]map[uint16]bool, at time.Time) {
	for _, fn := range registers.Functions {
		for _, def := range c.catalog.AllInArea(fn) {
			if fn.IsBits() {
				b, ok := bits[fn][def.Address]
				if !ok {
					continue
				}
				v, err := def.Decode([]uint16{boolWord(b)})
				if err == nil {
					c.snap.merge(def, v, at)
				}
				continue
			}

			raw := make([]uint16, 0, def.Words)
			complete := true
			for w := uint8(0); w < def.Words; w++ {
				word, ok := words[fn][def.Address+uint16(w)]
				if !ok {
					complete = false
					break
				}
				raw = append(raw, word)
			}
			if !complete {
				continue
			}
			v, err := def.Decode(raw)
			if err != nil {
				if c.logger != nil {
					c.logger.Printf("poll: discarding dirty value: %v", err)
				}
				continue
			}
			c.snap.merge(def, v, at)
		}
	}
}

// readGroup executes one group with the shared retry policy. Only
// transient errors consume the retry budget.
func (c *Coordinator) readGroup(ctx context.Context, g plan.Group) (words []uint16, bits []bool, latency time.Duration, attempts int, err error) {
	retryable := func(err error) bool {
		return c.classifier.Classify(err) == transport.ClassTransient
	}
	err = retry.Do(ctx, c.cfg.Policy, retryable, func() error {
		attempts++
		start := time.Now()
		var readErr error
		if g.Function.IsBits() {
			bits, readErr = transport.ReadBits(c.client, g.Function, g.Start, g.Count)
		} else {
			words, readErr = transport.ReadWords(c.client, g.Function, g.Start, g.Count)
		}
		latency = time.Since(start)
		return readErr
	})
	return words, bits, latency, attempts, err
}

func (c *Coordinator) needsRescan() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cycleRun >= c.cfg.RescanAfter
}

// rescan re-runs capability discovery. A working profile is never replaced
// by an empty one: a total outage during the scan must not erase
// capability knowledge.
func (c *Coordinator) rescan(ctx context.Context) {
	c.setState(StateRescanning)
	defer c.setState(StatePolling)

	c.mu.Lock()
	c.stats.Rescans++
	c.mu.Unlock()

	profile, err := c.scanner.Scan(ctx)
	if err != nil {
		if c.logger != nil {
			c.logger.Printf("rescan failed: %v", err)
		}
		c.mu.Lock()
		c.cycleRun = 0 // back off before the next automatic attempt
		c.mu.Unlock()
		return
	}
	if profile.Empty() {
		if c.logger != nil {
			c.logger.Printf("rescan found no supported registers, keeping previous profile")
		}
		c.mu.Lock()
		c.cycleRun = 0
		c.mu.Unlock()
		return
	}
	c.adoptProfile(profile)
}

func boolWord(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
