package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/romtest/internal/runner"
	"github.com/roach88/romtest/internal/suite"
)

// ErrUnknownSelection is returned by Run when the selector has bits that name
// no catalog entry.
var ErrUnknownSelection = errors.New("selection names no known test")

// Harness selects test cases from a catalog and runs them in order until
// one does not pass.
//
// A Harness keeps no state between runs. Run must not be called
// concurrently with itself when the processor factory or stepping engine
// share state.
type Harness struct {
	catalog *suite.Catalog
	runner  *runner.Runner
	ids     RunIDGenerator
	logger  *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for test start and finish events.
// The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithRunIDGenerator replaces the UUIDv7 run identifiers. Tests use
// testutil.FixedRunID for golden comparison.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(h *Harness) {
		h.ids = g
	}
}

// New creates a Harness running entries of catalog with r.
func New(catalog *suite.Catalog, r *runner.Runner, opts ...Option) *Harness {
	h := &Harness{
		catalog: catalog,
		runner:  r,
		ids:     UUIDv7Generator{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes the entries named by sel in catalog order. An empty selector
// runs the catalog's default selection.
//
// The first outcome that is not a pass stops the run: the remaining entries
// are listed as skipped in the report and a *TestError is returned. A
// selector with unknown bits runs nothing and fails with
// ErrUnknownSelection. The report is never nil.
func (h *Harness) Run(sel suite.Selector) (*Report, error) {
	entries := h.catalog.Select(sel)
	report := &Report{
		RunID:   h.ids.Generate(),
		Passed:  true,
		Results: make([]TestResult, 0, len(entries)),
	}

	if unknown := h.catalog.Unknown(sel); unknown != 0 {
		report.Passed = false
		return report, fmt.Errorf("%w: %#x", ErrUnknownSelection, uint64(unknown))
	}

	for i, e := range entries {
		h.logger.Info("test starting",
			"test", e.Case.Name,
			"run_id", report.RunID,
		)

		res := h.runner.Run(e.Case)
		report.Results = append(report.Results, newTestResult(res))

		h.logger.Info("test finished",
			"test", e.Case.Name,
			"verdict", res.Outcome.Verdict.String(),
			"cycles", res.Cycles,
			"duration", res.Duration,
		)

		if !res.Outcome.OK() {
			report.Passed = false
			for _, rest := range entries[i+1:] {
				report.Skipped = append(report.Skipped, rest.Case.Name)
			}
			return report, newTestError(e.Case.Name, res.Outcome)
		}
	}
	return report, nil
}

// RunTests is Run without the report.
func (h *Harness) RunTests(sel suite.Selector) error {
	_, err := h.Run(sel)
	return err
}
