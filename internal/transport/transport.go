// Package transport owns the single logical Modbus connection to one unit.
package transport

import (
	"github.com/ventio/airmod/internal/registers"
)

// Client abstracts the Modbus operations the engine needs. All methods on
// one client are serialized: the unit does not tolerate concurrent sessions.
type Client interface {
	ReadCoils(addr, qty uint16) ([]bool, error)              // FC 1
	ReadDiscreteInputs(addr, qty uint16) ([]bool, error)     // FC 2
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) // FC 3
	ReadInputRegisters(addr, qty uint16) ([]uint16, error)   // FC 4

	WriteSingleCoil(addr uint16, on bool) error           // FC 5
	WriteSingleRegister(addr, value uint16) error         // FC 6
	WriteMultipleRegisters(addr uint16, values []uint16) error // FC 16

	Close() error
}

// ReadBits dispatches a bit-area read by function code.
func ReadBits(c Client, fn registers.Function, addr, qty uint16) ([]bool, error) {
	if fn == registers.FuncCoil {
		return c.ReadCoils(addr, qty)
	}
	return c.ReadDiscreteInputs(addr, qty)
}

// ReadWords dispatches a word-area read by function code.
func ReadWords(c Client, fn registers.Function, addr, qty uint16) ([]uint16, error) {
	if fn == registers.FuncHolding {
		return c.ReadHoldingRegisters(addr, qty)
	}
	return c.ReadInputRegisters(addr, qty)
}
