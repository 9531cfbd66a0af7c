// Package suite defines test cases and the catalog they are selected from.
//
// A TestCase binds a ROM image, an execution policy and a verdict rule. Test
// cases are immutable once added to a Catalog. New suites are contributed as
// catalog entries, either in Go (see Builtin) or through a YAML manifest (see
// LoadManifest); the runner and orchestrator never change to accommodate them.
package suite

import (
	"bytes"
	"fmt"
	"io/fs"
	"sync"

	"github.com/roach88/romtest/internal/cpu"
	"github.com/roach88/romtest/internal/status"
)

// TestCase is one ROM run with its verdict rule.
type TestCase struct {
	Name string
	ROM  ROM

	// Entry is forced into the program counter before stepping when
	// ForceEntry is set.
	Entry      uint16
	ForceEntry bool

	Mirroring cpu.Mirroring
	Policy    Policy
	Rule      status.Rule
}

// Validate checks that the case can be run.
func (tc TestCase) Validate() error {
	if tc.Name == "" {
		return fmt.Errorf("test case name is required")
	}
	if tc.ROM == nil {
		return fmt.Errorf("test case %s: rom is required", tc.Name)
	}
	if tc.Rule == nil {
		return fmt.Errorf("test case %s: verdict rule is required", tc.Name)
	}
	switch p := tc.Policy.(type) {
	case FixedBudget:
		if p.Cycles == 0 {
			return fmt.Errorf("test case %s: fixed budget needs a positive cycle count", tc.Name)
		}
	case PollingBudget:
		if p.ChunkCycles == 0 || p.MaxChunks <= 0 {
			return fmt.Errorf("test case %s: polling budget needs positive chunk cycles and chunk count", tc.Name)
		}
		if p.Probe == nil {
			return fmt.Errorf("test case %s: polling budget needs a probe", tc.Name)
		}
	case nil:
		return fmt.Errorf("test case %s: execution policy is required", tc.Name)
	default:
		return fmt.Errorf("test case %s: unknown execution policy %T", tc.Name, p)
	}
	return nil
}

// Policy is how many cycles a test case gets and how they are spent.
// It is either a FixedBudget or a PollingBudget.
type Policy interface {
	// Budget is the maximum number of cycles the policy may request.
	Budget() uint64

	policy()
}

// FixedBudget steps the processor once for Cycles and then decodes.
type FixedBudget struct {
	Cycles uint64
}

// Budget implements Policy.
func (p FixedBudget) Budget() uint64 { return p.Cycles }

func (FixedBudget) policy() {}

// PollingBudget steps the processor in chunks of ChunkCycles, at most
// MaxChunks times, consulting Probe after each chunk. Polling stops early as
// soon as Probe reports a definitive result.
type PollingBudget struct {
	ChunkCycles uint64
	MaxChunks   int
	Probe       status.Prober
}

// Budget implements Policy.
func (p PollingBudget) Budget() uint64 { return p.ChunkCycles * uint64(p.MaxChunks) }

func (PollingBudget) policy() {}

// ROM loads a test image. Every call returns a fresh copy so the processor
// under test cannot modify the catalog's bytes.
type ROM func() ([]byte, error)

// Bytes returns a ROM serving a copy of b.
func Bytes(b []byte) ROM {
	b = bytes.Clone(b)
	return func() ([]byte, error) {
		return bytes.Clone(b), nil
	}
}

// Fixture returns a ROM read from fsys on first use.
func Fixture(fsys fs.FS, name string) ROM {
	load := sync.OnceValues(func() ([]byte, error) {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("rom fixture %s is not available: %w", name, err)
		}
		return data, nil
	})
	return func() ([]byte, error) {
		data, err := load()
		if err != nil {
			return nil, err
		}
		return bytes.Clone(data), nil
	}
}
