// Package cpu defines the capabilities the harness consumes from a processor
// implementation and from the stepping engine that drives it.
//
// The harness never implements instruction semantics. Everything it knows
// about a processor goes through these interfaces.
package cpu

import "fmt"

// Memory is read access to the processor's address space.
// Reads must not have side effects visible to the program under test.
type Memory interface {
	ReadMemory(addr uint16) uint8
}

// Testable is a processor implementation the harness can drive.
type Testable interface {
	Memory

	// SetProgramCounter forces execution to start at pc.
	SetProgramCounter(pc uint16)
}

// Factory constructs a fresh processor with rom loaded into its address space.
// It is called once per test case and the result is never shared.
type Factory func(rom []byte) (Testable, error)

// Mirroring is the nametable mirroring mode forwarded to the stepping engine.
// The harness does not interpret it.
type Mirroring int

const (
	MirroringHorizontal Mirroring = iota
	MirroringVertical
)

// String returns the lowercase name used in manifests and reports.
func (m Mirroring) String() string {
	switch m {
	case MirroringHorizontal:
		return "horizontal"
	case MirroringVertical:
		return "vertical"
	default:
		return fmt.Sprintf("mirroring(%d)", int(m))
	}
}

// ParseMirroring converts a manifest value to a Mirroring.
// The empty string selects horizontal mirroring.
func ParseMirroring(s string) (Mirroring, error) {
	switch s {
	case "", "horizontal":
		return MirroringHorizontal, nil
	case "vertical":
		return MirroringVertical, nil
	default:
		return 0, fmt.Errorf("unknown mirroring %q", s)
	}
}

// Stepper advances a processor for a bounded number of cycles.
//
// A non-nil error means the engine gave up on the processor: it crashed, hit
// an illegal state, or ran out of time. The harness treats every such error as
// a candidate failure and never retries.
type Stepper interface {
	Step(c Testable, mirroring Mirroring, cycles uint64) error
}

// StepperFunc adapts a function to the Stepper interface.
type StepperFunc func(c Testable, mirroring Mirroring, cycles uint64) error

// Step calls f.
func (f StepperFunc) Step(c Testable, mirroring Mirroring, cycles uint64) error {
	return f(c, mirroring, cycles)
}
