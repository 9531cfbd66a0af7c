package romtest

import (
	"log/slog"
	"os"

	"github.com/roach88/romtest/internal/cli"
	"github.com/roach88/romtest/internal/cpu"
	"github.com/roach88/romtest/internal/harness"
	"github.com/roach88/romtest/internal/runner"
	"github.com/roach88/romtest/internal/suite"
)

// Processor capabilities and harness types.
type (
	Memory      = cpu.Memory
	Testable    = cpu.Testable
	Factory     = cpu.Factory
	Stepper     = cpu.Stepper
	StepperFunc = cpu.StepperFunc
	Mirroring   = cpu.Mirroring
	Selector    = suite.Selector
	TestError   = harness.TestError
	Report      = harness.Report
)

// Mirroring modes.
const (
	MirroringHorizontal = cpu.MirroringHorizontal
	MirroringVertical   = cpu.MirroringVertical
)

// Test selection bits.
const (
	NESTest        = suite.NESTest
	AllInstrs      = suite.AllInstrs
	OfficialInstrs = suite.OfficialInstrs
	NROMTest       = suite.NROMTest

	// All runs every test except official_instrs, which all_instrs covers.
	All = NESTest | AllInstrs | NROMTest

	// Default is the curated subset a finished emulator should pass.
	Default = OfficialInstrs | NROMTest
)

// Option configures RunTests and Run.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger logs test start, progress and finish to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Run executes the tests named by sel against processors built by factory
// and returns the report. An empty selector runs Default. The error is a
// *TestError naming the first test that did not pass.
func Run(factory Factory, stepper Stepper, sel Selector, opts ...Option) (*Report, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	h := harness.New(suite.Standard(),
		runner.New(factory, stepper, runner.WithLogger(cfg.logger)),
		harness.WithLogger(cfg.logger),
	)
	return h.Run(sel)
}

// RunTests is Run without the report.
func RunTests(factory Factory, stepper Stepper, sel Selector, opts ...Option) error {
	_, err := Run(factory, stepper, sel, opts...)
	return err
}

// Main runs the command line with os.Args and returns the exit code.
func Main(factory Factory, stepper Stepper) int {
	return cli.Execute(cli.Deps{Factory: factory, Stepper: stepper}, os.Args[1:], os.Stdout, os.Stderr)
}
