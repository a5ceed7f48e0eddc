// internal/config/build.go
package config

import (
	"time"

	"github.com/ventio/airmod/internal/coordinator"
	"github.com/ventio/airmod/internal/retry"
	"github.com/ventio/airmod/internal/transport"
)

// Transport maps the device section onto a dialable transport config.
// Call only on validated, normalized configuration.
func (u UnitConfig) Transport() transport.Config {
	return transport.Config{
		Endpoint: u.Device.Endpoint,
		Device:   u.Device.SerialDevice,
		BaudRate: u.Device.BaudRate,
		Parity:   u.Device.Parity,
		StopBits: u.Device.StopBits,
		UnitID:   u.Device.UnitID,
		Timeout:  time.Duration(u.Device.TimeoutMs) * time.Millisecond,
	}
}

// Policy maps the retry section onto the shared backoff policy.
func (u UnitConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: u.Retry.MaxAttempts,
		BaseDelay:   time.Duration(u.Retry.BaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(u.Retry.MaxDelayMs) * time.Millisecond,
		Jitter:      time.Duration(u.Retry.JitterMs) * time.Millisecond,
	}
}

// Coordinator maps the poll section onto coordinator tuning.
func (u UnitConfig) Coordinator() coordinator.Config {
	return coordinator.Config{
		Interval:    time.Duration(u.Poll.IntervalMs) * time.Millisecond,
		MaxBlock:    u.Poll.MaxBlockSize,
		Policy:      u.Policy(),
		DemoteAfter: u.Poll.DemoteAfter,
		RescanAfter: u.Poll.RescanAfter,
	}
}

// Classifier builds the exception classifier: built-in defaults plus the
// unit's configured overrides.
func (u UnitConfig) Classifier() transport.Classifier {
	cl := transport.DefaultClassifier()
	for code, class := range u.ExceptionClasses {
		c, err := transport.ParseClass(class)
		if err != nil {
			continue // rejected by Validate already
		}
		cl[code] = c
	}
	return cl
}
