// Package testutil provides deterministic fakes for harness tests: a
// processor with a flat 64K address space, a scriptable stepping engine and a
// fixed run-ID generator.
package testutil

import (
	"sync"

	"github.com/roach88/romtest/internal/cpu"
)

// Memory is a sparse read-only address space. Unset addresses read as 0.
type Memory map[uint16]uint8

// ReadMemory implements cpu.Memory.
func (m Memory) ReadMemory(addr uint16) uint8 {
	return m[addr]
}

// FakeCPU is a processor without instruction semantics. Tests drive its
// memory directly, usually from a FakeStepper hook.
//
// Thread-safety: FakeCPU is safe for concurrent use. The runner steps it on a
// worker goroutine while tests inspect it afterwards.
type FakeCPU struct {
	mu  sync.Mutex
	mem [0x10000]uint8
	pc  uint16
	rom []byte

	pcWrites int
}

// NewFakeCPU returns a processor holding rom. The ROM is kept only so tests
// can check what the factory received.
func NewFakeCPU(rom []byte) *FakeCPU {
	return &FakeCPU{rom: rom}
}

// ReadMemory implements cpu.Memory.
func (c *FakeCPU) ReadMemory(addr uint16) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem[addr]
}

// SetProgramCounter implements cpu.Testable.
func (c *FakeCPU) SetProgramCounter(pc uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pc = pc
	c.pcWrites++
}

// PC returns the last program counter set.
func (c *FakeCPU) PC() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pc
}

// PCWrites returns how many times SetProgramCounter was called.
func (c *FakeCPU) PCWrites() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pcWrites
}

// ROM returns the image the processor was built from.
func (c *FakeCPU) ROM() []byte {
	return c.rom
}

// Write stores bytes starting at addr.
func (c *FakeCPU) Write(addr uint16, data ...uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, b := range data {
		c.mem[uint16(int(addr)+i)] = b
	}
}

// WriteStatus writes a magic-prefixed status record at base: exit code,
// the DE B0 61 signature and NUL-terminated text.
func (c *FakeCPU) WriteStatus(base uint16, code uint8, text string) {
	rec := append([]uint8{code, 0xde, 0xb0, 0x61}, text...)
	rec = append(rec, 0)
	c.Write(base, rec...)
}

// Factory builds FakeCPUs and remembers each one in construction order.
type Factory struct {
	mu    sync.Mutex
	built []*FakeCPU

	// Err, when set, is returned instead of a processor.
	Err error

	// Setup runs on every new processor before it is returned.
	Setup func(c *FakeCPU)
}

// New implements cpu.Factory.
func (f *Factory) New(rom []byte) (cpu.Testable, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	c := NewFakeCPU(rom)
	if f.Setup != nil {
		f.Setup(c)
	}
	f.mu.Lock()
	f.built = append(f.built, c)
	f.mu.Unlock()
	return c, nil
}

// Built returns the processors constructed so far.
func (f *Factory) Built() []*FakeCPU {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCPU(nil), f.built...)
}

// Last returns the most recently constructed processor.
// Panics if none has been built.
func (f *Factory) Last() *FakeCPU {
	built := f.Built()
	if len(built) == 0 {
		panic("testutil.Factory: no processor built")
	}
	return built[len(built)-1]
}
