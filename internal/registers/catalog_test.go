package registers

import (
	"errors"
	"testing"
)

func TestLoad_PackagedCatalog(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if c.Version == "" {
		t.Fatal("catalog version missing")
	}
	if c.Len() == 0 {
		t.Fatal("catalog is empty")
	}

	def, ok := c.Lookup(FuncHolding, 0x1070)
	if !ok {
		t.Fatal("mode register not found")
	}
	if def.Kind != KindEnum || def.Access != ReadWrite {
		t.Fatalf("mode register malformed: %+v", def)
	}

	if _, ok := c.Lookup(FuncHolding, 0xFFFF); ok {
		t.Fatal("lookup of undefined address succeeded")
	}
}

func TestLoad_AreasAscending(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	for _, fn := range Functions {
		defs := c.AllInArea(fn)
		for i := 1; i < len(defs); i++ {
			if defs[i-1].Address >= defs[i].Address {
				t.Fatalf("%s area not ascending at %s", fn, defs[i].Name)
			}
		}
	}
}

func TestParse_RejectsDuplicates(t *testing.T) {
	bad := []byte(`
version: "1"
registers:
  - {function: holding, address: 0x0001, name: a, access: rw, kind: uint}
  - {function: holding, address: 0x0001, name: b, access: rw, kind: uint}
`)
	if _, err := Parse(bad); err == nil {
		t.Fatal("duplicate address accepted")
	}
}

func TestParse_RejectsOutOfOrder(t *testing.T) {
	bad := []byte(`
version: "1"
registers:
  - {function: input, address: 0x0002, name: a, access: r, kind: uint}
  - {function: input, address: 0x0001, name: b, access: r, kind: uint}
`)
	if _, err := Parse(bad); err == nil {
		t.Fatal("out-of-order records accepted")
	}
}

func TestParse_RejectsOverlappingWidePair(t *testing.T) {
	bad := []byte(`
version: "1"
registers:
  - {function: input, address: 0x0001, name: a, access: r, kind: uint, words: 2}
  - {function: input, address: 0x0002, name: b, access: r, kind: uint}
`)
	if _, err := Parse(bad); err == nil {
		t.Fatal("overlap with two-word register accepted")
	}
}

func TestParse_RejectsWritableInputArea(t *testing.T) {
	bad := []byte(`
version: "1"
registers:
  - {function: input, address: 0x0001, name: a, access: rw, kind: uint}
`)
	if _, err := Parse(bad); err == nil {
		t.Fatal("writable input register accepted")
	}
}

func TestDecode_SignedTemperature(t *testing.T) {
	c, _ := Load()
	def, _ := c.Lookup(FuncInput, 0x0010)

	// -3.5 degrees is 0xFFDD at 0.1 resolution
	v, err := def.Decode([]uint16{0xFFDD})
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if v.Num != -3.5 {
		t.Fatalf("got %v want -3.5", v.Num)
	}
}

func TestDecode_SensorAbsentSentinel(t *testing.T) {
	c, _ := Load()
	def, _ := c.Lookup(FuncInput, 0x0015)

	v, err := def.Decode([]uint16{SensorAbsent})
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if !v.Unavailable {
		t.Fatal("sentinel not surfaced as unavailable")
	}
}

func TestDecode_Enum(t *testing.T) {
	c, _ := Load()
	def, _ := c.Lookup(FuncHolding, 0x1075)

	v, err := def.Decode([]uint16{1})
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if v.Label != "winter" {
		t.Fatalf("got label %q want winter", v.Label)
	}
}

func TestDecode_TwoWordValue(t *testing.T) {
	c, _ := Load()
	def, _ := c.Lookup(FuncInput, 0x0040)

	// high word first: 0x0001_86A0 = 100000 hours
	v, err := def.Decode([]uint16{0x0001, 0x86A0})
	if err != nil {
		t.Fatalf("Decode err=%v", err)
	}
	if v.Num != 100000 {
		t.Fatalf("got %v want 100000", v.Num)
	}
}

func TestDecode_RangeViolation(t *testing.T) {
	c, _ := Load()
	def, _ := c.Lookup(FuncInput, 0x0020) // percentage, 0..100

	if _, err := def.Decode([]uint16{500}); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestEncodeNumber_ScaledDecimal(t *testing.T) {
	c, _ := Load()
	def, _ := c.Lookup(FuncHolding, 0x1FFE) // required_temp, 0.5 resolution

	words, err := def.EncodeNumber(21.5)
	if err != nil {
		t.Fatalf("EncodeNumber err=%v", err)
	}
	if len(words) != 1 || words[0] != 43 {
		t.Fatalf("got %v want [43]", words)
	}
}

func TestEncodeNumber_RejectsOutOfRange(t *testing.T) {
	c, _ := Load()
	def, _ := c.Lookup(FuncHolding, 0x1FFE)

	if _, err := def.EncodeNumber(55); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestEncodeNumber_SignedNegative(t *testing.T) {
	c, _ := Load()
	def, _ := c.Lookup(FuncHolding, 0x108E) // flow_balance, -50..50

	words, err := def.EncodeNumber(-10)
	if err != nil {
		t.Fatalf("EncodeNumber err=%v", err)
	}
	if words[0] != 0xFFF6 {
		t.Fatalf("got 0x%04X want 0xFFF6", words[0])
	}
}

func TestEncodeLabel(t *testing.T) {
	c, _ := Load()
	def, _ := c.Lookup(FuncHolding, 0x1077) // bypass_mode

	words, err := def.EncodeLabel("open")
	if err != nil {
		t.Fatalf("EncodeLabel err=%v", err)
	}
	if words[0] != 1 {
		t.Fatalf("got %d want 1", words[0])
	}

	if _, err := def.EncodeLabel("sideways"); !errors.Is(err, ErrBadLabel) {
		t.Fatalf("expected ErrBadLabel, got %v", err)
	}
}
