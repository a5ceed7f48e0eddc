package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Config selects and parameterizes the physical transport. Exactly one of
// Endpoint (TCP) or Device (RTU serial) must be set.
type Config struct {
	Endpoint string // host:port for Modbus TCP
	Device   string // serial device path for Modbus RTU
	BaudRate int
	Parity   string // "N", "E", "O"
	StopBits int
	UnitID   uint8
	Timeout  time.Duration
}

type handler interface {
	Connect() error
	Close() error
}

// Session is the goburrow-backed Client. One TCP or serial connection,
// mutex-serialized so poll reads and external writes never interleave.
type Session struct {
	mu      sync.Mutex
	handler handler
	client  modbus.Client
}

// Dial opens the connection. Failure here is the only fatal transport error;
// everything later is recoverable via retry.
func Dial(cfg Config) (*Session, error) {
	if (cfg.Endpoint == "") == (cfg.Device == "") {
		return nil, errors.New("transport: exactly one of endpoint or device required")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("transport: timeout must be > 0")
	}

	var h handler
	if cfg.Endpoint != "" {
		th := modbus.NewTCPClientHandler(cfg.Endpoint)
		th.Timeout = cfg.Timeout
		th.SlaveId = cfg.UnitID
		h = th
	} else {
		rh := modbus.NewRTUClientHandler(cfg.Device)
		rh.BaudRate = cfg.BaudRate
		rh.DataBits = 8
		rh.Parity = cfg.Parity
		rh.StopBits = cfg.StopBits
		rh.Timeout = cfg.Timeout
		rh.SlaveId = cfg.UnitID
		h = rh
	}

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("transport: connect: %w", err)
	}

	var c modbus.Client
	switch th := h.(type) {
	case *modbus.TCPClientHandler:
		c = modbus.NewClient(th)
	case *modbus.RTUClientHandler:
		c = modbus.NewClient(th)
	}
	return &Session{handler: h, client: c}, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler.Close()
}

// ---- Client reads ----

func (s *Session) ReadCoils(addr, qty uint16) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.client.ReadCoils(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackBits(raw, int(qty)), nil
}

func (s *Session) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.client.ReadDiscreteInputs(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackBits(raw, int(qty)), nil
}

func (s *Session) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackRegisters(raw, int(qty))
}

func (s *Session) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.client.ReadInputRegisters(addr, qty)
	if err != nil {
		return nil, err
	}
	return unpackRegisters(raw, int(qty))
}

// ---- Client writes ----

func (s *Session) WriteSingleCoil(addr uint16, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	value := uint16(0x0000)
	if on {
		value = 0xFF00
	}
	_, err := s.client.WriteSingleCoil(addr, value)
	return err
}

func (s *Session) WriteSingleRegister(addr, value uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.client.WriteSingleRegister(addr, value)
	return err
}

func (s *Session) WriteMultipleRegisters(addr uint16, values []uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.client.WriteMultipleRegisters(addr, uint16(len(values)), packRegisters(values))
	return err
}

// ---- payload helpers ----

func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		if byteIdx >= len(data) {
			break
		}
		out[i] = data[byteIdx]&(1<<uint(i%8)) != 0
	}
	return out
}

func unpackRegisters(data []byte, qty int) ([]uint16, error) {
	if len(data) < qty*2 {
		return nil, fmt.Errorf("transport: short register payload: %d bytes for %d registers", len(data), qty)
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out, nil
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
