// internal/config/normalize.go
package config

import "strings"

// Defaults applied by Normalize. They mirror the unit vendor's recommended
// integration settings.
const (
	DefaultPort        = "502"
	DefaultUnitID      = 10
	DefaultTimeoutMs   = 10000
	DefaultIntervalMs  = 30000
	DefaultMaxBlock    = 16
	DefaultDemoteAfter = 5
	DefaultRescanAfter = 10

	DefaultMaxAttempts = 3
	DefaultBaseDelayMs = 200
	DefaultMaxDelayMs  = 5000
	DefaultJitterMs    = 50

	DefaultBaudRate = 19200
	DefaultParity   = "E"
	DefaultStopBits = 1
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	for ui := range cfg.Airmod.Units {
		u := &cfg.Airmod.Units[ui]

		// ------------------------------------------------------------
		// DEVICE DEFAULTS
		// ------------------------------------------------------------

		if u.Device.Endpoint != "" && !strings.Contains(u.Device.Endpoint, ":") {
			u.Device.Endpoint += ":" + DefaultPort
		}
		if u.Device.SerialDevice != "" {
			if u.Device.BaudRate == 0 {
				u.Device.BaudRate = DefaultBaudRate
			}
			if u.Device.Parity == "" {
				u.Device.Parity = DefaultParity
			}
			u.Device.Parity = strings.ToUpper(u.Device.Parity)
			if u.Device.StopBits == 0 {
				u.Device.StopBits = DefaultStopBits
			}
		}
		if u.Device.UnitID == 0 {
			u.Device.UnitID = DefaultUnitID
		}
		if u.Device.TimeoutMs == 0 {
			u.Device.TimeoutMs = DefaultTimeoutMs
		}

		// ------------------------------------------------------------
		// POLL DEFAULTS
		// ------------------------------------------------------------

		if u.Poll.IntervalMs == 0 {
			u.Poll.IntervalMs = DefaultIntervalMs
		}
		if u.Poll.MaxBlockSize == 0 {
			u.Poll.MaxBlockSize = DefaultMaxBlock
		}
		if u.Poll.DemoteAfter == 0 {
			u.Poll.DemoteAfter = DefaultDemoteAfter
		}
		if u.Poll.RescanAfter == 0 {
			u.Poll.RescanAfter = DefaultRescanAfter
		}

		// ------------------------------------------------------------
		// RETRY DEFAULTS
		// ------------------------------------------------------------

		if u.Retry.MaxAttempts == 0 {
			u.Retry.MaxAttempts = DefaultMaxAttempts
		}
		if u.Retry.BaseDelayMs == 0 {
			u.Retry.BaseDelayMs = DefaultBaseDelayMs
		}
		if u.Retry.MaxDelayMs == 0 {
			u.Retry.MaxDelayMs = DefaultMaxDelayMs
		}
		if u.Retry.JitterMs == 0 {
			u.Retry.JitterMs = DefaultJitterMs
		}
	}

	if m := cfg.Airmod.MQTT; m != nil {
		if m.ClientID == "" {
			m.ClientID = "airmod"
		}
		if m.BaseTopic == "" {
			m.BaseTopic = "airmod"
		}
		m.BaseTopic = strings.TrimSuffix(m.BaseTopic, "/")
	}
}
