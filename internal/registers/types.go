package registers

import (
	"errors"
	"fmt"
	"math"
)

// Function identifies one of the four Modbus addressable areas.
type Function uint8

const (
	FuncCoil     Function = 1 // read/write bits
	FuncDiscrete Function = 2 // read-only bits
	FuncHolding  Function = 3 // read/write words
	FuncInput    Function = 4 // read-only words
)

// Functions lists all areas in canonical order.
var Functions = []Function{FuncCoil, FuncDiscrete, FuncHolding, FuncInput}

func (f Function) String() string {
	switch f {
	case FuncCoil:
		return "coil"
	case FuncDiscrete:
		return "discrete"
	case FuncHolding:
		return "holding"
	case FuncInput:
		return "input"
	}
	return fmt.Sprintf("function(%d)", uint8(f))
}

// IsBits reports whether the area carries single-bit values.
func (f Function) IsBits() bool {
	return f == FuncCoil || f == FuncDiscrete
}

// ParseFunction accepts the canonical area names used by the catalog file.
func ParseFunction(s string) (Function, error) {
	switch s {
	case "coil":
		return FuncCoil, nil
	case "discrete":
		return FuncDiscrete, nil
	case "holding":
		return FuncHolding, nil
	case "input":
		return FuncInput, nil
	}
	return 0, fmt.Errorf("registers: unknown function %q", s)
}

// Access is the register access mode.
type Access uint8

const (
	ReadOnly Access = iota
	ReadWrite
)

func (a Access) String() string {
	if a == ReadWrite {
		return "rw"
	}
	return "r"
}

// Kind is the closed set of value kinds a register can carry.
type Kind uint8

const (
	KindBool    Kind = iota // single bit
	KindUint                // unsigned word(s)
	KindInt                 // signed two's-complement word(s)
	KindEnum                // raw code with symbolic labels
	KindDecimal             // scaled decimal
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindEnum:
		return "enum"
	case KindDecimal:
		return "decimal"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// SensorAbsent is reported by temperature-class input registers when the
// physical sensor is not fitted.
const SensorAbsent uint16 = 0x8000

// Definition describes one register. Immutable after catalog load.
type Definition struct {
	Function Function
	Address  uint16
	Name     string
	Access   Access
	Kind     Kind
	Words    uint8 // 1, or 2 for 32-bit values (high word first)
	Scale    float64
	Min      float64
	Max      float64
	HasRange bool
	Sentinel bool // SensorAbsent marks a missing sensor
	Enum     map[uint16]string
}

// Value is the decoded form of a register reading. Exactly the fields for
// the definition's Kind are meaningful.
type Value struct {
	Kind        Kind
	Bool        bool
	Num         float64
	Label       string
	Raw         uint16
	Unavailable bool // sentinel observed, no physical sensor
}

var (
	ErrWidth      = errors.New("registers: word count does not match definition")
	ErrOutOfRange = errors.New("registers: value outside valid range")
	ErrBadLabel   = errors.New("registers: unknown enum label")
	ErrNotNumeric = errors.New("registers: register is not numeric")
)

// Decode turns raw protocol words into a Value, applying scale, sign,
// enumeration and the sensor-absent sentinel.
func (d *Definition) Decode(words []uint16) (Value, error) {
	if int(d.Words) != len(words) {
		return Value{}, fmt.Errorf("%w: %s/0x%04X got %d want %d",
			ErrWidth, d.Function, d.Address, len(words), d.Words)
	}

	v := Value{Kind: d.Kind}

	if d.Kind == KindBool {
		v.Raw = words[0]
		v.Bool = words[0] != 0
		return v, nil
	}

	if d.Sentinel && words[0] == SensorAbsent {
		v.Raw = words[0]
		v.Unavailable = true
		return v, nil
	}

	raw := combine(words)
	v.Raw = words[0]

	switch d.Kind {
	case KindEnum:
		v.Label = d.Enum[words[0]]
		if v.Label == "" {
			v.Label = fmt.Sprintf("unknown(%d)", words[0])
		}
		v.Num = float64(words[0])
	case KindInt:
		v.Num = float64(signed(words)) * d.scale()
	default: // KindUint, KindDecimal
		v.Num = float64(raw) * d.scale()
	}

	if d.HasRange && d.Kind != KindEnum {
		if v.Num < d.Min || v.Num > d.Max {
			return Value{}, fmt.Errorf("%w: %s/0x%04X value %v not in [%v, %v]",
				ErrOutOfRange, d.Function, d.Address, v.Num, d.Min, d.Max)
		}
	}
	return v, nil
}

// EncodeNumber validates a scaled numeric value and returns the raw words to
// transmit. Fails for non-numeric kinds and out-of-range values.
func (d *Definition) EncodeNumber(num float64) ([]uint16, error) {
	switch d.Kind {
	case KindBool, KindEnum:
		return nil, fmt.Errorf("%w: %s/0x%04X is %s", ErrNotNumeric, d.Function, d.Address, d.Kind)
	}
	if d.HasRange && (num < d.Min || num > d.Max) {
		return nil, fmt.Errorf("%w: %s/0x%04X value %v not in [%v, %v]",
			ErrOutOfRange, d.Function, d.Address, num, d.Min, d.Max)
	}
	raw := math.Round(num / d.scale())
	if d.Kind == KindInt {
		return splitSigned(int64(raw), d.Words)
	}
	if raw < 0 {
		return nil, fmt.Errorf("%w: %s/0x%04X negative value %v for unsigned register",
			ErrOutOfRange, d.Function, d.Address, num)
	}
	return splitUnsigned(uint64(raw), d.Words)
}

// EncodeLabel maps a symbolic enum label to its raw word.
func (d *Definition) EncodeLabel(label string) ([]uint16, error) {
	if d.Kind != KindEnum {
		return nil, fmt.Errorf("%w: %s/0x%04X is %s, not enum", ErrBadLabel, d.Function, d.Address, d.Kind)
	}
	for raw, l := range d.Enum {
		if l == label {
			return []uint16{raw}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/0x%04X has no label %q", ErrBadLabel, d.Function, d.Address, label)
}

func (d *Definition) scale() float64 {
	if d.Scale == 0 {
		return 1
	}
	return d.Scale
}

// combine reassembles up to two words, high word first.
func combine(words []uint16) uint64 {
	var out uint64
	for _, w := range words {
		out = out<<16 | uint64(w)
	}
	return out
}

func signed(words []uint16) int64 {
	raw := combine(words)
	bits := uint(len(words)) * 16
	if raw&(1<<(bits-1)) != 0 {
		return int64(raw) - int64(1)<<bits
	}
	return int64(raw)
}

func splitUnsigned(raw uint64, words uint8) ([]uint16, error) {
	if words == 1 {
		if raw > math.MaxUint16 {
			return nil, fmt.Errorf("%w: raw %d exceeds one word", ErrOutOfRange, raw)
		}
		return []uint16{uint16(raw)}, nil
	}
	if raw > math.MaxUint32 {
		return nil, fmt.Errorf("%w: raw %d exceeds two words", ErrOutOfRange, raw)
	}
	return []uint16{uint16(raw >> 16), uint16(raw)}, nil
}

func splitSigned(raw int64, words uint8) ([]uint16, error) {
	bits := int64(words) * 16
	min := -(int64(1) << (bits - 1))
	max := int64(1)<<(bits-1) - 1
	if raw < min || raw > max {
		return nil, fmt.Errorf("%w: raw %d exceeds %d-bit signed range", ErrOutOfRange, raw, bits)
	}
	u := uint64(raw) & (1<<uint(bits) - 1)
	if words == 1 {
		return []uint16{uint16(u)}, nil
	}
	return []uint16{uint16(u >> 16), uint16(u)}, nil
}
