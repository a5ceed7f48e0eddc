package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ventio/airmod/internal/registers"
	"github.com/ventio/airmod/internal/transport"
)

var (
	// ErrUnknownRegister rejects writes to addresses the catalog does not
	// define.
	ErrUnknownRegister = errors.New("coordinator: register not in catalog")
	// ErrReadOnly rejects writes to read-only registers.
	ErrReadOnly = errors.New("coordinator: register is read-only")
)

// TransportError wraps device/connection failures on the write path so
// callers can tell them from validation rejects.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "coordinator: write transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// WriteNumber writes a scaled numeric value. Validation happens entirely
// before any transport call.
func (c *Coordinator) WriteNumber(ctx context.Context, fn registers.Function, addr uint16, value float64) error {
	def, err := c.writableDefinition(fn, addr)
	if err != nil {
		return err
	}
	words, err := def.EncodeNumber(value)
	if err != nil {
		return err
	}
	return c.transmit(ctx, def, words)
}

// WriteLabel writes an enumerated register by symbolic label.
func (c *Coordinator) WriteLabel(ctx context.Context, fn registers.Function, addr uint16, label string) error {
	def, err := c.writableDefinition(fn, addr)
	if err != nil {
		return err
	}
	words, err := def.EncodeLabel(label)
	if err != nil {
		return err
	}
	return c.transmit(ctx, def, words)
}

// WriteBool writes a coil.
func (c *Coordinator) WriteBool(ctx context.Context, fn registers.Function, addr uint16, on bool) error {
	def, err := c.writableDefinition(fn, addr)
	if err != nil {
		return err
	}
	if def.Kind != registers.KindBool {
		return fmt.Errorf("%w: %s/0x%04X is %s, not bool", registers.ErrNotNumeric, fn, addr, def.Kind)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.client.WriteSingleCoil(addr, on); err != nil {
		return &TransportError{Err: err}
	}
	c.refresh(ctx, def)
	return nil
}

func (c *Coordinator) writableDefinition(fn registers.Function, addr uint16) (*registers.Definition, error) {
	def, ok := c.catalog.Lookup(fn, addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s/0x%04X", ErrUnknownRegister, fn, addr)
	}
	if def.Access != registers.ReadWrite {
		return nil, fmt.Errorf("%w: %s/0x%04X (%s)", ErrReadOnly, fn, addr, def.Name)
	}
	return def, nil
}

func (c *Coordinator) transmit(ctx context.Context, def *registers.Definition, words []uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	if len(words) == 1 {
		err = c.client.WriteSingleRegister(def.Address, words[0])
	} else {
		err = c.client.WriteMultipleRegisters(def.Address, words)
	}
	if err != nil {
		return &TransportError{Err: err}
	}
	c.refresh(ctx, def)
	return nil
}

// refresh reads the register back right after a write so callers observe
// their own writes without waiting for the next cycle. Best effort: a
// failed read-back leaves the next poll cycle to catch up.
func (c *Coordinator) refresh(ctx context.Context, def *registers.Definition) {
	if err := ctx.Err(); err != nil {
		return
	}

	var v registers.Value
	var err error
	if def.Function.IsBits() {
		var bits []bool
		bits, err = transport.ReadBits(c.client, def.Function, def.Address, 1)
		if err == nil && len(bits) == 1 {
			v, err = def.Decode([]uint16{boolWord(bits[0])})
		}
	} else {
		var words []uint16
		words, err = transport.ReadWords(c.client, def.Function, def.Address, uint16(def.Words))
		if err == nil {
			v, err = def.Decode(words)
		}
	}
	if err != nil {
		if c.logger != nil {
			c.logger.Printf("write: read-after-write for %s failed: %v", def.Name, err)
		}
		return
	}

	c.mu.Lock()
	c.snap.merge(def, v, time.Now())
	c.mu.Unlock()
}
