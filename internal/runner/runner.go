// Package runner executes a single test case against a processor
// implementation inside an isolation boundary.
//
// Every failure of the processor or the stepping engine is turned into a
// status.Outcome. Run never panics and never returns an error.
package runner

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/romtest/internal/cpu"
	"github.com/roach88/romtest/internal/status"
	"github.com/roach88/romtest/internal/suite"
)

// NoPanicInfo is the panic message used when the panic value carries nothing
// printable.
const NoPanicInfo = "<no panic info>"

// Result is the outcome of one test case plus execution counters.
type Result struct {
	Test    string
	Outcome status.Outcome

	// Cycles is the total number of cycles requested from the stepping
	// engine, including a chunk that failed or panicked.
	Cycles uint64

	// Chunks is the number of polling chunks started. Zero for fixed budgets.
	Chunks int

	Duration time.Duration
}

// Runner executes test cases one at a time. A Runner holds no per-test state
// and can be reused.
type Runner struct {
	factory cpu.Factory
	stepper cpu.Stepper
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger for test progress. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Runner building processors with factory and driving them
// with stepper.
func New(factory cpu.Factory, stepper cpu.Stepper, opts ...Option) *Runner {
	r := &Runner{
		factory: factory,
		stepper: stepper,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes tc on a dedicated goroutine and waits for its outcome.
//
// A panic anywhere in the processor or stepping engine becomes a
// HarnessError with code CPU_PANICKED. So does a goroutine that exits
// through runtime.Goexit without producing an outcome.
func (r *Runner) Run(tc suite.TestCase) Result {
	start := time.Now()
	done := make(chan Result, 1)

	go func() {
		res := Result{Test: tc.Name}
		completed := false
		defer func() {
			if completed {
				return
			}
			res.Outcome = status.Errored(status.CodePanicked, panicMessage(recover()))
			done <- res
		}()

		r.execute(tc, &res)
		completed = true
		done <- res
	}()

	res := <-done
	res.Duration = time.Since(start)
	return res
}

// execute fills res as it goes so counters survive a panic.
func (r *Runner) execute(tc suite.TestCase, res *Result) {
	if err := tc.Validate(); err != nil {
		res.Outcome = status.Errored(status.CodeInvalidCase, err.Error())
		return
	}

	rom, err := tc.ROM()
	if err != nil {
		res.Outcome = status.Errored(status.CodeFixtureMissing, err.Error())
		return
	}

	c, err := r.factory(bytes.Clone(rom))
	if err != nil {
		res.Outcome = status.Errored(status.CodeConstructFailed, err.Error())
		return
	}
	if c == nil {
		res.Outcome = status.Errored(status.CodeConstructFailed, "processor factory returned nil")
		return
	}

	if tc.ForceEntry {
		c.SetProgramCounter(tc.Entry)
	}

	switch p := tc.Policy.(type) {
	case suite.FixedBudget:
		res.Cycles = p.Cycles
		if err := r.stepper.Step(c, tc.Mirroring, p.Cycles); err != nil {
			res.Outcome = r.steppingFailed(tc, c, err)
			return
		}

	case suite.PollingBudget:
		var last string
		for res.Chunks < p.MaxChunks {
			res.Chunks++
			res.Cycles += p.ChunkCycles
			if err := r.stepper.Step(c, tc.Mirroring, p.ChunkCycles); err != nil {
				res.Outcome = r.steppingFailed(tc, c, err)
				return
			}

			line, done := p.Probe.Probe(c)
			if done {
				r.logger.Debug("test reached a definitive result",
					"test", tc.Name,
					"chunk", res.Chunks,
					"max_chunks", p.MaxChunks,
				)
				break
			}
			if line != "" && line != last {
				r.logger.Info("test progress",
					"test", tc.Name,
					"cycles", res.Cycles,
					"status", line,
				)
			}
			last = line
		}

	default:
		res.Outcome = status.Errored(status.CodeInvalidCase, fmt.Sprintf("unknown execution policy %T", tc.Policy))
		return
	}

	res.Outcome = tc.Rule.Decode(c)
}

// steppingFailed reports an engine failure. If the status record already
// holds a failure, its message is attached as a hint; the classification
// stays HarnessError either way.
func (r *Runner) steppingFailed(tc suite.TestCase, c cpu.Testable, err error) status.Outcome {
	out := status.Errored(status.CodeSteppingFailed, err.Error())
	if secondary := tc.Rule.Decode(c); secondary.Verdict == status.Fail {
		out.Hint = secondary.Message
	}
	r.logger.Debug("stepping engine failed",
		"test", tc.Name,
		"error", err,
		"hint", out.Hint,
	)
	return out
}

// panicMessage renders a recovered value.
func panicMessage(v any) string {
	switch p := v.(type) {
	case nil:
		return NoPanicInfo
	case string:
		return p
	case error:
		return p.Error()
	case fmt.Stringer:
		return p.String()
	default:
		return NoPanicInfo
	}
}
