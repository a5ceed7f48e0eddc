package registers

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed data/registers.yaml
var packaged []byte

// Catalog is the immutable register table for the unit family. Loaded once
// at startup; safe for unsynchronized concurrent reads.
type Catalog struct {
	Version string

	byArea map[Function][]*Definition
	byAddr map[Function]map[uint16]*Definition
}

type rawCatalog struct {
	Version   string        `yaml:"version"`
	Registers []rawRegister `yaml:"registers"`
}

type rawRegister struct {
	Function string             `yaml:"function"`
	Address  uint16             `yaml:"address"`
	Name     string             `yaml:"name"`
	Access   string             `yaml:"access"`
	Kind     string             `yaml:"kind"`
	Words    uint8              `yaml:"words"`
	Scale    float64            `yaml:"scale"`
	Min      *float64           `yaml:"min"`
	Max      *float64           `yaml:"max"`
	Sentinel bool               `yaml:"sentinel"`
	Enum     map[uint16]string  `yaml:"enum"`
}

// Load parses and validates the packaged register specification.
// Any inconsistency is fatal: the process must not start on a bad catalog.
func Load() (*Catalog, error) {
	return Parse(packaged)
}

// Parse loads a catalog from raw YAML. Exposed for tools and tests that
// need a catalog other than the packaged one.
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("registers: catalog parse: %w", err)
	}
	if raw.Version == "" {
		return nil, fmt.Errorf("registers: catalog has no version")
	}
	if len(raw.Registers) == 0 {
		return nil, fmt.Errorf("registers: catalog is empty")
	}

	c := &Catalog{
		Version: raw.Version,
		byArea:  make(map[Function][]*Definition),
		byAddr:  make(map[Function]map[uint16]*Definition),
	}
	for _, f := range Functions {
		c.byAddr[f] = make(map[uint16]*Definition)
	}

	for i, r := range raw.Registers {
		def, err := buildDefinition(r)
		if err != nil {
			return nil, fmt.Errorf("registers: record %d (%s): %w", i, r.Name, err)
		}

		area := c.byArea[def.Function]
		if len(area) > 0 && area[len(area)-1].Address >= def.Address {
			return nil, fmt.Errorf("registers: record %d (%s): %s/0x%04X out of order or duplicate",
				i, r.Name, def.Function, def.Address)
		}
		// 32-bit registers own both words; the next record must not overlap.
		if len(area) > 0 {
			prev := area[len(area)-1]
			if uint32(prev.Address)+uint32(prev.Words) > uint32(def.Address) {
				return nil, fmt.Errorf("registers: record %d (%s): overlaps %s at 0x%04X",
					i, r.Name, prev.Name, prev.Address)
			}
		}

		c.byArea[def.Function] = append(area, def)
		c.byAddr[def.Function][def.Address] = def
	}
	return c, nil
}

func buildDefinition(r rawRegister) (*Definition, error) {
	fn, err := ParseFunction(r.Function)
	if err != nil {
		return nil, err
	}
	if r.Name == "" {
		return nil, fmt.Errorf("missing name")
	}

	var access Access
	switch r.Access {
	case "r":
		access = ReadOnly
	case "rw":
		access = ReadWrite
	default:
		return nil, fmt.Errorf("bad access %q", r.Access)
	}
	if fn == FuncDiscrete || fn == FuncInput {
		if access != ReadOnly {
			return nil, fmt.Errorf("%s area is read-only", fn)
		}
	}

	var kind Kind
	switch r.Kind {
	case "bool":
		kind = KindBool
	case "uint":
		kind = KindUint
	case "int":
		kind = KindInt
	case "enum":
		kind = KindEnum
	case "decimal":
		kind = KindDecimal
	default:
		return nil, fmt.Errorf("bad kind %q", r.Kind)
	}

	words := r.Words
	if words == 0 {
		words = 1
	}
	if words != 1 && words != 2 {
		return nil, fmt.Errorf("bad word count %d", words)
	}
	if fn.IsBits() {
		if kind != KindBool {
			return nil, fmt.Errorf("%s area carries bool values only", fn)
		}
		if words != 1 {
			return nil, fmt.Errorf("%s area registers are single-bit", fn)
		}
	} else if kind == KindBool {
		return nil, fmt.Errorf("bool kind is reserved for bit areas")
	}

	if kind == KindEnum {
		if len(r.Enum) == 0 {
			return nil, fmt.Errorf("enum kind without enum mapping")
		}
		if words != 1 {
			return nil, fmt.Errorf("enum registers are single-word")
		}
	} else if len(r.Enum) > 0 {
		return nil, fmt.Errorf("enum mapping on non-enum kind %s", kind)
	}

	def := &Definition{
		Function: fn,
		Address:  r.Address,
		Name:     r.Name,
		Access:   access,
		Kind:     kind,
		Words:    words,
		Scale:    r.Scale,
		Sentinel: r.Sentinel,
		Enum:     r.Enum,
	}

	if (r.Min == nil) != (r.Max == nil) {
		return nil, fmt.Errorf("min and max must be given together")
	}
	if r.Min != nil {
		if *r.Min > *r.Max {
			return nil, fmt.Errorf("min %v > max %v", *r.Min, *r.Max)
		}
		def.Min, def.Max, def.HasRange = *r.Min, *r.Max, true
	}
	return def, nil
}

// Lookup returns the definition at (function, address), if any.
func (c *Catalog) Lookup(fn Function, addr uint16) (*Definition, bool) {
	def, ok := c.byAddr[fn][addr]
	return def, ok
}

// ByName finds a definition by its catalog name within one area.
func (c *Catalog) ByName(fn Function, name string) (*Definition, bool) {
	for _, def := range c.byArea[fn] {
		if def.Name == name {
			return def, true
		}
	}
	return nil, false
}

// AllInArea returns the area's definitions in ascending address order.
// The returned slice is shared and must not be modified.
func (c *Catalog) AllInArea(fn Function) []*Definition {
	return c.byArea[fn]
}

// Addresses returns every word address the area's definitions occupy,
// expanding two-word registers, in ascending order.
func (c *Catalog) Addresses(fn Function) []uint16 {
	var out []uint16
	for _, def := range c.byArea[fn] {
		for w := uint8(0); w < def.Words; w++ {
			out = append(out, def.Address+uint16(w))
		}
	}
	return out
}

// Len reports the total number of definitions.
func (c *Catalog) Len() int {
	n := 0
	for _, defs := range c.byArea {
		n += len(defs)
	}
	return n
}
