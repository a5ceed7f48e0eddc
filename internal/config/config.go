// internal/config/config.go
package config

type Config struct {
	Airmod AirmodConfig `yaml:"airmod"`
}

type AirmodConfig struct {
	Units []UnitConfig `yaml:"units"`
	MQTT  *MQTTConfig  `yaml:"mqtt"`
}

// ---- UNIT ----

type UnitConfig struct {
	ID     string       `yaml:"id"`
	Device DeviceConfig `yaml:"device"`
	Poll   PollConfig   `yaml:"poll"`
	Retry  RetryConfig  `yaml:"retry"`

	// ExceptionClasses overrides the built-in exception classification,
	// keyed by Modbus exception code. Values: "transient" or "permanent".
	ExceptionClasses map[uint8]string `yaml:"exception_classes"`
}

// ---- DEVICE ----

// DeviceConfig selects exactly one transport: TCP (endpoint) or RTU
// (serial_device).
type DeviceConfig struct {
	Endpoint string `yaml:"endpoint"`

	SerialDevice string `yaml:"serial_device"`
	BaudRate     int    `yaml:"baud_rate"`
	Parity       string `yaml:"parity"`
	StopBits     int    `yaml:"stop_bits"`

	UnitID    uint8 `yaml:"unit_id"`
	TimeoutMs int   `yaml:"timeout_ms"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs   int    `yaml:"interval_ms"`
	MaxBlockSize uint16 `yaml:"max_block_size"`
	DemoteAfter  int    `yaml:"demote_after"`
	RescanAfter  int    `yaml:"rescan_after"`
}

// ---- RETRY ----

type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
	JitterMs    int `yaml:"jitter_ms"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker    string `yaml:"broker"`
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	BaseTopic string `yaml:"base_topic"`
	QoS       byte   `yaml:"qos"`
	Retain    bool   `yaml:"retain"`
}
