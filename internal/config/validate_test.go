// internal/config/validate_test.go
package config

import (
	"testing"
	"time"

	"github.com/goburrow/modbus"

	"github.com/ventio/airmod/internal/transport"
)

// helper to build a minimal valid unit quickly
func unit(id, endpoint string) UnitConfig {
	return UnitConfig{
		ID:     id,
		Device: DeviceConfig{Endpoint: endpoint},
	}
}

// ---- tests ----

func TestValidate_MinimalTCPUnit(t *testing.T) {
	cfg := &Config{Airmod: AirmodConfig{Units: []UnitConfig{unit("u1", "10.0.0.5:502")}}}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NoUnits(t *testing.T) {
	if err := Validate(&Config{}); err == nil {
		t.Fatalf("expected error for empty unit list, got nil")
	}
}

func TestValidate_DuplicateUnitID(t *testing.T) {
	cfg := &Config{Airmod: AirmodConfig{Units: []UnitConfig{
		unit("u1", "ep1:502"),
		unit("u1", "ep2:502"),
	}}}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected duplicate id error, got nil")
	}
}

func TestValidate_BothTransportsRejected(t *testing.T) {
	u := unit("u1", "10.0.0.5:502")
	u.Device.SerialDevice = "/dev/ttyUSB0"
	cfg := &Config{Airmod: AirmodConfig{Units: []UnitConfig{u}}}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected transport selection error, got nil")
	}
}

func TestValidate_NeitherTransportRejected(t *testing.T) {
	cfg := &Config{Airmod: AirmodConfig{Units: []UnitConfig{{ID: "u1"}}}}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected transport selection error, got nil")
	}
}

func TestValidate_BadParity(t *testing.T) {
	u := UnitConfig{ID: "u1", Device: DeviceConfig{SerialDevice: "/dev/ttyUSB0", Parity: "X"}}
	cfg := &Config{Airmod: AirmodConfig{Units: []UnitConfig{u}}}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected parity error, got nil")
	}
}

func TestValidate_BlockSizeCeiling(t *testing.T) {
	u := unit("u1", "ep:502")
	u.Poll.MaxBlockSize = 126
	cfg := &Config{Airmod: AirmodConfig{Units: []UnitConfig{u}}}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected block size error, got nil")
	}
}

func TestValidate_ExceptionClassOverrides(t *testing.T) {
	u := unit("u1", "ep:502")
	u.ExceptionClasses = map[uint8]string{3: "permanent"}
	cfg := &Config{Airmod: AirmodConfig{Units: []UnitConfig{u}}}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u.ExceptionClasses[4] = "sometimes"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected class name error, got nil")
	}
}

func TestValidate_MQTTRequiresBroker(t *testing.T) {
	cfg := &Config{Airmod: AirmodConfig{
		Units: []UnitConfig{unit("u1", "ep:502")},
		MQTT:  &MQTTConfig{},
	}}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected broker error, got nil")
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := &Config{Airmod: AirmodConfig{
		Units: []UnitConfig{unit("u1", "10.0.0.5")},
		MQTT:  &MQTTConfig{Broker: "tcp://broker:1883", BaseTopic: "vent/"},
	}}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Normalize(cfg)

	u := cfg.Airmod.Units[0]
	if u.Device.Endpoint != "10.0.0.5:502" {
		t.Fatalf("default port not applied: %q", u.Device.Endpoint)
	}
	if u.Device.UnitID != DefaultUnitID {
		t.Fatalf("default unit id not applied: %d", u.Device.UnitID)
	}
	if u.Poll.IntervalMs != DefaultIntervalMs || u.Poll.MaxBlockSize != DefaultMaxBlock {
		t.Fatalf("poll defaults not applied: %+v", u.Poll)
	}
	if u.Retry.MaxAttempts != DefaultMaxAttempts {
		t.Fatalf("retry defaults not applied: %+v", u.Retry)
	}
	if cfg.Airmod.MQTT.BaseTopic != "vent" {
		t.Fatalf("base topic not trimmed: %q", cfg.Airmod.MQTT.BaseTopic)
	}
	if cfg.Airmod.MQTT.ClientID != "airmod" {
		t.Fatalf("client id default not applied: %q", cfg.Airmod.MQTT.ClientID)
	}
}

func TestNormalize_SerialDefaults(t *testing.T) {
	cfg := &Config{Airmod: AirmodConfig{Units: []UnitConfig{
		{ID: "u1", Device: DeviceConfig{SerialDevice: "/dev/ttyUSB0", Parity: "n"}},
	}}}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Normalize(cfg)

	d := cfg.Airmod.Units[0].Device
	if d.BaudRate != DefaultBaudRate || d.Parity != "N" || d.StopBits != DefaultStopBits {
		t.Fatalf("serial defaults not applied: %+v", d)
	}
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("airmod:\n  unts: []\n"))
	if err == nil {
		t.Fatalf("expected unknown-key error, got nil")
	}
}

func TestParse_RoundTrip(t *testing.T) {
	src := `
airmod:
  units:
    - id: ahu
      device:
        endpoint: 192.168.1.50
        unit_id: 10
      poll:
        interval_ms: 15000
      exception_classes:
        3: permanent
  mqtt:
    broker: tcp://broker:1883
`
	cfg, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Normalize(cfg)

	u := cfg.Airmod.Units[0]
	if u.Poll.IntervalMs != 15000 {
		t.Fatalf("explicit interval overwritten: %d", u.Poll.IntervalMs)
	}
	if u.Transport().Timeout != 10*time.Second {
		t.Fatalf("timeout default wrong: %v", u.Transport().Timeout)
	}
	illegalValue := &modbus.ModbusError{FunctionCode: 0x83, ExceptionCode: 3}
	if u.Classifier().Classify(illegalValue) != transport.ClassPermanent {
		t.Fatalf("exception override not applied")
	}
}
