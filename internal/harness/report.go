package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/romtest/internal/runner"
)

// Report summarises one harness run.
type Report struct {
	RunID   string       `json:"run_id"`
	Passed  bool         `json:"passed"`
	Results []TestResult `json:"results"`

	// Skipped lists selected tests that never ran because an earlier test
	// did not pass.
	Skipped []string `json:"skipped,omitempty"`
}

// TestResult is the reported outcome of one executed test.
type TestResult struct {
	Name    string `json:"name"`
	Verdict string `json:"verdict"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Hint    string `json:"hint,omitempty"`
	Cycles  uint64 `json:"cycles"`
	Chunks  int    `json:"chunks,omitempty"`

	// Duration is wall-clock time. It is left out of renderings so
	// reports stay reproducible.
	Duration time.Duration `json:"-"`
}

func newTestResult(res runner.Result) TestResult {
	return TestResult{
		Name:     res.Test,
		Verdict:  res.Outcome.Verdict.String(),
		Code:     string(res.Outcome.Code),
		Message:  res.Outcome.Message,
		Hint:     res.Outcome.Hint,
		Cycles:   res.Cycles,
		Chunks:   res.Chunks,
		Duration: res.Duration,
	}
}

// Counts returns the number of passed and failed tests and of tests skipped.
func (r *Report) Counts() (passed, failed, skipped int) {
	for _, res := range r.Results {
		if res.Verdict == "pass" {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed, len(r.Skipped)
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes a human-readable report. Numbers are formatted for p's
// locale; a nil p formats for English.
func (r *Report) WriteText(w io.Writer, p *message.Printer) error {
	if p == nil {
		p = message.NewPrinter(language.English)
	}

	var b strings.Builder
	for _, res := range r.Results {
		mark := "✓"
		if res.Verdict != "pass" {
			mark = "✗"
		}
		p.Fprintf(&b, "%s %s (%d cycles)\n", mark, res.Name, res.Cycles)
		if res.Code != "" {
			fmt.Fprintf(&b, "  %s\n", res.Code)
		}
		if res.Message != "" {
			b.WriteString(indent(res.Message))
		}
		if res.Hint != "" {
			b.WriteString("  possibly due to a test that didn't pass:\n")
			b.WriteString(indent(res.Hint))
		}
	}
	for _, name := range r.Skipped {
		fmt.Fprintf(&b, "- %s (skipped)\n", name)
	}

	passed, failed, skipped := r.Counts()
	b.WriteString("\n")
	p.Fprintf(&b, "Test Summary: %d passed, %d failed, %d skipped\n", passed, failed, skipped)
	fmt.Fprintf(&b, "Run: %s\n", r.RunID)

	_, err := io.WriteString(w, b.String())
	return err
}

// indent prefixes every non-blank line of s with two spaces.
func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	var b strings.Builder
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			b.WriteString("  ")
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}
