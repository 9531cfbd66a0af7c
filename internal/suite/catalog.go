package suite

import (
	"fmt"
	"math/bits"
	"strings"
)

// Selector is a bit set naming catalog entries.
type Selector uint64

// Bits of the built-in suites.
const (
	// NESTest is an all-inclusive CPU test designed to cover almost every
	// combination of flags, instructions and registers.
	NESTest Selector = 1 << iota

	// AllInstrs covers every instruction, unofficial ones included.
	AllInstrs

	// OfficialInstrs covers the official instructions only. A finished
	// emulator should pass it.
	OfficialInstrs

	// NROMTest is a tiny NROM program checking basic functionality. It is a
	// good first test to pass.
	NROMTest
)

// Names of the selection presets accepted by Parse.
const (
	PresetAll     = "all"
	PresetDefault = "default"
)

// Contains reports whether every bit of o is set in s.
func (s Selector) Contains(o Selector) bool {
	return s&o == o
}

// Entry is a test case with its place in the catalog.
type Entry struct {
	Bit  Selector
	Case TestCase

	// Default puts the entry in the curated default selection.
	Default bool

	// Subsumed leaves the entry out of the "all" preset because another
	// entry already covers it.
	Subsumed bool
}

// Catalog is an ordered set of entries. Iteration order is insertion order
// and never depends on the selector.
type Catalog struct {
	entries []Entry
	byName  map[string]int
	used    Selector
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]int)}
}

// Add appends e. A zero Bit is replaced by the lowest free bit. Returns the
// bit the entry is selected by.
func (c *Catalog) Add(e Entry) (Selector, error) {
	if err := e.Case.Validate(); err != nil {
		return 0, err
	}
	if _, dup := c.byName[e.Case.Name]; dup {
		return 0, fmt.Errorf("duplicate test name %q", e.Case.Name)
	}

	if e.Bit == 0 {
		free := ^c.used
		if free == 0 {
			return 0, fmt.Errorf("catalog is full: cannot add %q", e.Case.Name)
		}
		e.Bit = Selector(1) << bits.TrailingZeros64(uint64(free))
	}
	if bits.OnesCount64(uint64(e.Bit)) != 1 {
		return 0, fmt.Errorf("test %q: selector bit %#x must have exactly one bit set", e.Case.Name, uint64(e.Bit))
	}
	if c.used&e.Bit != 0 {
		return 0, fmt.Errorf("test %q: selector bit %#x already in use", e.Case.Name, uint64(e.Bit))
	}

	c.byName[e.Case.Name] = len(c.entries)
	c.entries = append(c.entries, e)
	c.used |= e.Bit
	return e.Bit, nil
}

// MustAdd is like Add but panics on error. Intended for catalogs built from
// constant definitions.
func (c *Catalog) MustAdd(e Entry) Selector {
	bit, err := c.Add(e)
	if err != nil {
		panic(fmt.Sprintf("suite: %v", err))
	}
	return bit
}

// Clone returns a catalog with the same entries that can be extended
// without affecting c.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		entries: append([]Entry(nil), c.entries...),
		byName:  make(map[string]int, len(c.byName)),
		used:    c.used,
	}
	for k, v := range c.byName {
		out.byName[k] = v
	}
	return out
}

// Entries returns every entry in catalog order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Lookup finds an entry by test name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// All is the "all tests" preset: every entry not subsumed by another.
func (c *Catalog) All() Selector {
	var s Selector
	for _, e := range c.entries {
		if !e.Subsumed {
			s |= e.Bit
		}
	}
	return s
}

// Default is the curated subset run when nothing is selected explicitly.
func (c *Catalog) Default() Selector {
	var s Selector
	for _, e := range c.entries {
		if e.Default {
			s |= e.Bit
		}
	}
	return s
}

// Unknown returns the bits of sel that name no entry.
func (c *Catalog) Unknown(sel Selector) Selector {
	return sel &^ c.used
}

// Select returns the entries named by sel in catalog order. An empty
// selection means Default. Bits reported by Unknown select nothing.
func (c *Catalog) Select(sel Selector) []Entry {
	if sel == 0 {
		sel = c.Default()
	}
	var out []Entry
	for _, e := range c.entries {
		if sel&e.Bit != 0 {
			out = append(out, e)
		}
	}
	return out
}

// Names returns the test names selected by sel in catalog order.
func (c *Catalog) Names(sel Selector) []string {
	entries := c.Select(sel)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Case.Name
	}
	return names
}

// Parse turns test names and preset names into a selector. No names yields
// an empty selector, which Select treats as Default.
func (c *Catalog) Parse(names []string) (Selector, error) {
	var sel Selector
	for _, name := range names {
		switch strings.ToLower(name) {
		case PresetAll:
			sel |= c.All()
		case PresetDefault:
			sel |= c.Default()
		default:
			e, ok := c.Lookup(name)
			if !ok {
				return 0, fmt.Errorf("unknown test %q", name)
			}
			sel |= e.Bit
		}
	}
	return sel, nil
}
