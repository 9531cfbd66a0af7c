package status

import (
	"fmt"

	"github.com/roach88/romtest/internal/cpu"
)

// Expectation is a byte a ROM must have written.
type Expectation struct {
	Addr  uint16
	Value uint8
}

// MemoryRule passes when every expectation holds. Expectations are checked
// in order and the first mismatch is reported.
type MemoryRule struct {
	Test   string // name used in diagnostics
	Expect []Expectation
}

// Decode checks the expectations.
func (r MemoryRule) Decode(mem cpu.Memory) Outcome {
	for _, e := range r.Expect {
		if got := mem.ReadMemory(e.Addr); got != e.Value {
			return Failed(fmt.Sprintf("memory location %#02x is wrong after executing %s (got %#02x, want %#02x)",
				e.Addr, r.Test, got, e.Value))
		}
	}
	return Passed()
}
