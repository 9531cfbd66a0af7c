// Package status decodes the result a test ROM leaves in processor memory.
//
// Test ROMs report through one of a few informal conventions: a record with an
// exit code, magic marker and text at a fixed base address; a 16-bit result
// code spread over two bytes; or a handful of bytes the program is expected to
// have written. Each convention is a Rule that turns memory into an Outcome.
//
// Decoding is a pure function of memory contents. Calling Decode twice on
// unmodified memory yields identical Outcomes.
package status

import (
	"fmt"

	"github.com/roach88/romtest/internal/cpu"
)

// Verdict classifies an Outcome.
type Verdict int

const (
	// Pass means the ROM reported success.
	Pass Verdict = iota

	// Fail means the ROM itself reported a failure.
	Fail

	// HarnessError means no trustworthy verdict could be obtained: the
	// processor could not be built, crashed, panicked, or corrupted its
	// own report.
	HarnessError
)

// String returns the lowercase verdict name used in reports.
func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case HarnessError:
		return "error"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Code identifies why an Outcome is not a pass.
type Code string

const (
	// CodeTestFailed indicates the ROM reported a failure.
	CodeTestFailed Code = "TEST_FAILED"

	// CodeCorrupted indicates the magic marker of a status record did not match.
	CodeCorrupted Code = "OUTPUT_CORRUPTED"

	// CodeConstructFailed indicates the processor factory returned an error.
	CodeConstructFailed Code = "CONSTRUCT_FAILED"

	// CodeFixtureMissing indicates the ROM image could not be loaded.
	CodeFixtureMissing Code = "FIXTURE_MISSING"

	// CodeSteppingFailed indicates the stepping engine reported a crash or timeout.
	CodeSteppingFailed Code = "STEPPING_FAILED"

	// CodePanicked indicates the processor implementation panicked.
	CodePanicked Code = "CPU_PANICKED"

	// CodeInvalidCase indicates a test case that cannot be run as defined.
	CodeInvalidCase Code = "INVALID_TEST_CASE"

	// CodeScriptFailed indicates a scripted verdict rule could not be evaluated.
	CodeScriptFailed Code = "SCRIPT_FAILED"
)

// Outcome is the result of executing one test case.
type Outcome struct {
	Verdict Verdict
	Code    Code   // empty for Pass
	Message string // diagnostic for Fail, cause for HarnessError

	// Hint is a best-effort diagnostic attached to a HarnessError when the
	// status record already held a failure at the time the engine gave up.
	Hint string
}

// Passed returns a passing Outcome.
func Passed() Outcome {
	return Outcome{Verdict: Pass}
}

// Failed returns an Outcome for a failure the ROM reported itself.
func Failed(message string) Outcome {
	return Outcome{Verdict: Fail, Code: CodeTestFailed, Message: message}
}

// Errored returns a HarnessError Outcome.
func Errored(code Code, message string) Outcome {
	return Outcome{Verdict: HarnessError, Code: code, Message: message}
}

// OK reports whether the outcome is a pass.
func (o Outcome) OK() bool {
	return o.Verdict == Pass
}

// String renders the outcome on a single logical line.
func (o Outcome) String() string {
	switch {
	case o.Verdict == Pass:
		return "pass"
	case o.Hint != "":
		return fmt.Sprintf("%s %s: %s, possibly due to a test that didn't pass: '%s'", o.Verdict, o.Code, o.Message, o.Hint)
	default:
		return fmt.Sprintf("%s %s: %s", o.Verdict, o.Code, o.Message)
	}
}

// Rule turns post-execution memory into an Outcome.
type Rule interface {
	Decode(mem cpu.Memory) Outcome
}

// Prober is implemented by rules that can tell, while a ROM is still
// running, whether it has already reached a definitive result.
//
// Probe returns the current status text and whether polling may stop.
type Prober interface {
	Probe(mem cpu.Memory) (text string, done bool)
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc func(mem cpu.Memory) Outcome

// Decode calls f.
func (f RuleFunc) Decode(mem cpu.Memory) Outcome {
	return f(mem)
}
