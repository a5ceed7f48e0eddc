package coordinator

// Health is the device-level connectivity verdict derived from the last
// poll cycle.
type Health uint8

const (
	// HealthUnknown is the boot state, before the first profile exists.
	HealthUnknown Health = iota
	// HealthOK means the last cycle merged every planned group.
	HealthOK
	// HealthDegraded means the last cycle lost some groups but not all.
	HealthDegraded
	// HealthStale means full cycles are failing and cached values are all
	// the coordinator has to offer.
	HealthStale
)

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthDegraded:
		return "degraded"
	case HealthStale:
		return "stale"
	}
	return "unknown"
}

func deriveHealth(planned, failed int) Health {
	switch {
	case planned == 0:
		return HealthUnknown
	case failed == 0:
		return HealthOK
	case failed < planned:
		return HealthDegraded
	default:
		return HealthStale
	}
}
