package coordinator

import (
	"sort"
	"time"

	"github.com/ventio/airmod/internal/registers"
)

// Diagnostics is the troubleshooting view exposed to operators. All fields
// are copies; the struct marshals cleanly to JSON.
type Diagnostics struct {
	SessionID      string    `json:"session_id"`
	State          string    `json:"state"`
	Health         string    `json:"health"`
	CatalogVersion string    `json:"catalog_version"`
	Firmware       string    `json:"firmware,omitempty"`
	Serial         string    `json:"serial,omitempty"`
	ScannedAt      time.Time `json:"scanned_at,omitempty"`
	ScanRequests   int       `json:"scan_requests"`

	Supported   map[string][]uint16 `json:"supported"`
	Unsupported map[string][]uint16 `json:"unsupported"`
	ScanFailed  map[string][]uint16 `json:"scan_failed"`
	Demoted     map[string][]uint16 `json:"demoted"`

	Stats CycleStats `json:"stats"`
}

// Diagnostics assembles the current diagnostic view.
func (c *Coordinator) Diagnostics() Diagnostics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d := Diagnostics{
		SessionID:      c.SessionID,
		State:          c.state.String(),
		Health:         c.health.String(),
		CatalogVersion: c.catalog.Version,
		Supported:      make(map[string][]uint16),
		Unsupported:    make(map[string][]uint16),
		ScanFailed:     make(map[string][]uint16),
		Demoted:        make(map[string][]uint16),
		Stats:          c.stats.clone(),
	}

	if c.profile != nil {
		d.Firmware = c.profile.Firmware
		d.Serial = c.profile.Serial
		d.ScannedAt = c.profile.ScannedAt
		d.ScanRequests = c.profile.Requests
		for _, fn := range registers.Functions {
			name := fn.String()
			if addrs := c.profile.SupportedAddresses(fn); len(addrs) > 0 {
				d.Supported[name] = addrs
			}
			if addrs := c.profile.UnsupportedAddresses(fn); len(addrs) > 0 {
				d.Unsupported[name] = addrs
			}
			if addrs := c.profile.FailedAddresses(fn); len(addrs) > 0 {
				d.ScanFailed[name] = addrs
			}
		}
	}

	for _, fn := range registers.Functions {
		var addrs []uint16
		for addr := range c.demoted[fn] {
			addrs = append(addrs, addr)
		}
		if len(addrs) > 0 {
			sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
			d.Demoted[fn.String()] = addrs
		}
	}
	return d
}
