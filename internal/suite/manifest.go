package suite

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/romtest/internal/cpu"
	"github.com/roach88/romtest/internal/script"
	"github.com/roach88/romtest/internal/status"
)

// Manifest declares extra suites in YAML:
//
//	suites:
//	  - name: cpu_dummy_reads
//	    rom: roms/cpu_dummy_reads.nes
//	    entry: 0xC000
//	    default: true
//	    budget:
//	      chunk_cycles: 200000
//	      max_chunks: 100
//	    verdict:
//	      protocol: status
//	      base: 0x6000
//
// Budgets are either {cycles} or {chunk_cycles, max_chunks}. Verdict
// protocols are status, result-code, memory and script.
type Manifest struct {
	Suites []SuiteSpec `yaml:"suites" json:"suites"`
}

// SuiteSpec is one manifest entry.
type SuiteSpec struct {
	Name      string      `yaml:"name" json:"name"`
	ROM       string      `yaml:"rom" json:"rom"`
	Entry     *uint16     `yaml:"entry,omitempty" json:"entry,omitempty"`
	Mirroring string      `yaml:"mirroring,omitempty" json:"mirroring,omitempty"`
	Default   bool        `yaml:"default,omitempty" json:"default,omitempty"`
	Budget    BudgetSpec  `yaml:"budget" json:"budget"`
	Verdict   VerdictSpec `yaml:"verdict" json:"verdict"`
}

// BudgetSpec selects a FixedBudget (Cycles) or a PollingBudget
// (ChunkCycles and MaxChunks).
type BudgetSpec struct {
	Cycles      uint64 `yaml:"cycles,omitempty" json:"cycles,omitempty"`
	ChunkCycles uint64 `yaml:"chunk_cycles,omitempty" json:"chunk_cycles,omitempty"`
	MaxChunks   int    `yaml:"max_chunks,omitempty" json:"max_chunks,omitempty"`
}

// VerdictSpec configures the verdict rule. Which fields apply depends on
// Protocol.
type VerdictSpec struct {
	Protocol string `yaml:"protocol" json:"protocol"`

	// status
	Base   *uint16 `yaml:"base,omitempty" json:"base,omitempty"`
	Marker string  `yaml:"marker,omitempty" json:"marker,omitempty"`

	// result-code
	Low     *uint16 `yaml:"low,omitempty" json:"low,omitempty"`
	High    *uint16 `yaml:"high,omitempty" json:"high,omitempty"`
	Success *uint16 `yaml:"success,omitempty" json:"success,omitempty"`

	// memory
	Expect []ExpectSpec `yaml:"expect,omitempty" json:"expect,omitempty"`

	// script, inline or from a file relative to the manifest
	Script     string `yaml:"script,omitempty" json:"script,omitempty"`
	ScriptFile string `yaml:"script_file,omitempty" json:"script_file,omitempty"`
}

// ExpectSpec is one byte the memory protocol checks.
type ExpectSpec struct {
	Addr  uint16 `yaml:"addr" json:"addr"`
	Value uint8  `yaml:"value" json:"value"`
}

// Verdict protocol names.
const (
	ProtocolStatus     = "status"
	ProtocolResultCode = "result-code"
	ProtocolMemory     = "memory"
	ProtocolScript     = "script"
)

// LoadManifest reads and validates a manifest file. Relative ROM and script
// paths are resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i := range m.Suites {
		s := &m.Suites[i]
		s.ROM = resolve(base, s.ROM)
		if s.Verdict.ScriptFile != "" {
			s.Verdict.ScriptFile = resolve(base, s.Verdict.ScriptFile)
		}
	}
	return m, nil
}

// ParseManifest decodes and validates manifest YAML. Unknown fields are
// rejected so typos surface as errors.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}

	if err := ValidateManifest(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// AddTo builds a test case for every suite and appends it to c in manifest
// order. Nothing is added if any suite is invalid.
func (m *Manifest) AddTo(c *Catalog) error {
	entries := make([]Entry, 0, len(m.Suites))
	for _, s := range m.Suites {
		tc, err := s.TestCase()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Case: tc, Default: s.Default})
	}

	staged := c.Clone()
	for _, e := range entries {
		if _, err := staged.Add(e); err != nil {
			return err
		}
	}
	*c = *staged
	return nil
}

// TestCase builds the test case described by s.
func (s SuiteSpec) TestCase() (TestCase, error) {
	mirroring, err := cpu.ParseMirroring(s.Mirroring)
	if err != nil {
		return TestCase{}, fmt.Errorf("suite %s: %w", s.Name, err)
	}

	rule, err := s.Verdict.rule(s.Name)
	if err != nil {
		return TestCase{}, fmt.Errorf("suite %s: %w", s.Name, err)
	}

	var policy Policy
	switch {
	case s.Budget.Cycles > 0:
		policy = FixedBudget{Cycles: s.Budget.Cycles}
	default:
		probe, ok := rule.(status.Prober)
		if !ok {
			return TestCase{}, fmt.Errorf("suite %s: a polling budget needs the %s protocol", s.Name, ProtocolStatus)
		}
		policy = PollingBudget{ChunkCycles: s.Budget.ChunkCycles, MaxChunks: s.Budget.MaxChunks, Probe: probe}
	}

	tc := TestCase{
		Name:      s.Name,
		ROM:       Fixture(os.DirFS(filepath.Dir(s.ROM)), filepath.Base(s.ROM)),
		Mirroring: mirroring,
		Policy:    policy,
		Rule:      rule,
	}
	if s.Entry != nil {
		tc.Entry = *s.Entry
		tc.ForceEntry = true
	}
	return tc, tc.Validate()
}

func (v VerdictSpec) rule(name string) (status.Rule, error) {
	switch v.Protocol {
	case ProtocolStatus:
		p := status.NewMagicProtocol(status.DefaultBase)
		if v.Base != nil {
			p.Base = *v.Base
		}
		if v.Marker != "" {
			p.Marker = v.Marker
		}
		return p, nil

	case ProtocolResultCode:
		if v.Low == nil || v.High == nil {
			return nil, fmt.Errorf("%s protocol needs low and high addresses", ProtocolResultCode)
		}
		p := status.ResultCodeProtocol{Low: *v.Low, High: *v.High}
		if v.Success != nil {
			p.Success = *v.Success
		}
		return p, nil

	case ProtocolMemory:
		r := status.MemoryRule{Test: name}
		for _, e := range v.Expect {
			r.Expect = append(r.Expect, status.Expectation{Addr: e.Addr, Value: e.Value})
		}
		return r, nil

	case ProtocolScript:
		src := v.Script
		file := name + ".star"
		switch {
		case v.Script != "" && v.ScriptFile != "":
			return nil, fmt.Errorf("script and script_file are mutually exclusive")
		case v.ScriptFile != "":
			data, err := os.ReadFile(v.ScriptFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read script: %w", err)
			}
			src, file = string(data), v.ScriptFile
		case v.Script == "":
			return nil, fmt.Errorf("%s protocol needs script or script_file", ProtocolScript)
		}
		r, err := script.Compile(file, src)
		if err != nil {
			return nil, err
		}
		return r, nil

	default:
		return nil, fmt.Errorf("unknown verdict protocol %q", v.Protocol)
	}
}
