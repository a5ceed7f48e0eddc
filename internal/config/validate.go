// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/ventio/airmod/internal/transport"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if len(cfg.Airmod.Units) == 0 {
		return fmt.Errorf("no units defined")
	}

	seen := make(map[string]bool)

	for _, u := range cfg.Airmod.Units {
		if u.ID == "" {
			return fmt.Errorf("unit with empty id")
		}
		if seen[u.ID] {
			return fmt.Errorf("duplicate unit id %q", u.ID)
		}
		seen[u.ID] = true

		// ------------------------------------------------------------
		// DEVICE TRANSPORT SELECTION
		// ------------------------------------------------------------

		hasTCP := u.Device.Endpoint != ""
		hasRTU := u.Device.SerialDevice != ""
		if hasTCP == hasRTU {
			return fmt.Errorf(
				"unit %q: exactly one of endpoint or serial_device is required",
				u.ID,
			)
		}
		if hasRTU {
			if u.Device.BaudRate < 0 {
				return fmt.Errorf("unit %q: baud_rate must not be negative", u.ID)
			}
			switch strings.ToUpper(u.Device.Parity) {
			case "", "N", "E", "O":
			default:
				return fmt.Errorf(
					"unit %q: parity must be one of N, E, O (got %q)",
					u.ID, u.Device.Parity,
				)
			}
			switch u.Device.StopBits {
			case 0, 1, 2:
			default:
				return fmt.Errorf("unit %q: stop_bits must be 1 or 2", u.ID)
			}
		}
		if u.Device.TimeoutMs < 0 {
			return fmt.Errorf("unit %q: timeout_ms must not be negative", u.ID)
		}

		// ------------------------------------------------------------
		// POLL GEOMETRY
		// ------------------------------------------------------------

		if u.Poll.IntervalMs < 0 {
			return fmt.Errorf("unit %q: interval_ms must not be negative", u.ID)
		}
		// 125 is the protocol ceiling for one register read.
		if u.Poll.MaxBlockSize > 125 {
			return fmt.Errorf(
				"unit %q: max_block_size must be <= 125 (got %d)",
				u.ID, u.Poll.MaxBlockSize,
			)
		}
		if u.Poll.DemoteAfter < 0 {
			return fmt.Errorf("unit %q: demote_after must not be negative", u.ID)
		}
		if u.Poll.RescanAfter < 0 {
			return fmt.Errorf("unit %q: rescan_after must not be negative", u.ID)
		}

		// ------------------------------------------------------------
		// RETRY BUDGET
		// ------------------------------------------------------------

		if u.Retry.MaxAttempts < 0 {
			return fmt.Errorf("unit %q: retry max_attempts must not be negative", u.ID)
		}
		if u.Retry.BaseDelayMs < 0 || u.Retry.MaxDelayMs < 0 || u.Retry.JitterMs < 0 {
			return fmt.Errorf("unit %q: retry delays must not be negative", u.ID)
		}

		// ------------------------------------------------------------
		// EXCEPTION CLASS OVERRIDES
		// ------------------------------------------------------------

		for code, class := range u.ExceptionClasses {
			if code == 0 {
				return fmt.Errorf("unit %q: exception code 0 cannot be classified", u.ID)
			}
			if _, err := transport.ParseClass(class); err != nil {
				return fmt.Errorf("unit %q: exception code %d: %v", u.ID, code, err)
			}
		}
	}

	// ------------------------------------------------------------
	// MQTT (OPT-IN)
	// ------------------------------------------------------------

	if m := cfg.Airmod.MQTT; m != nil {
		if m.Broker == "" {
			return fmt.Errorf("mqtt: broker is required")
		}
		if m.QoS > 2 {
			return fmt.Errorf("mqtt: qos must be 0, 1 or 2 (got %d)", m.QoS)
		}
		if strings.ContainsAny(m.BaseTopic, "+#") {
			return fmt.Errorf("mqtt: base_topic must not contain wildcards")
		}
	}

	return nil
}
