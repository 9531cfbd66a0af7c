package harness

import (
	"errors"
	"fmt"

	"github.com/roach88/romtest/internal/status"
)

// TestError is returned by Run when a selected test does not pass.
type TestError struct {
	// Test is the name of the test case that stopped the run.
	Test string

	// Code is the status code of the outcome (TEST_FAILED, CPU_PANICKED, ...).
	Code status.Code

	// Message is the diagnostic of the outcome.
	Message string

	// Hint is the failure text the ROM had already reported when the
	// stepping engine gave up. Empty otherwise.
	Hint string
}

// newTestError converts a non-passing outcome.
func newTestError(test string, out status.Outcome) *TestError {
	return &TestError{Test: test, Code: out.Code, Message: out.Message, Hint: out.Hint}
}

// Error implements the error interface.
func (e *TestError) Error() string {
	switch e.Code {
	case status.CodeTestFailed, status.CodeCorrupted:
		return fmt.Sprintf("cpu didn't pass test %s: '%s'", e.Test, e.Message)
	case status.CodePanicked:
		return fmt.Sprintf("cpu implementation panicked while running test %s: %s", e.Test, e.Message)
	default:
		msg := e.Message
		if e.Hint != "" {
			msg = fmt.Sprintf("%s, possibly due to a test that didn't pass: '%s'", msg, e.Hint)
		}
		return fmt.Sprintf("cpu failed while running test %s with custom error message %s", e.Test, msg)
	}
}

// IsFailure returns true if the ROM itself reported a failure.
// Uses errors.As to handle wrapped errors.
func IsFailure(err error) bool {
	var te *TestError
	if errors.As(err, &te) {
		return te.Code == status.CodeTestFailed
	}
	return false
}

// IsPanic returns true if the processor implementation panicked.
func IsPanic(err error) bool {
	var te *TestError
	if errors.As(err, &te) {
		return te.Code == status.CodePanicked
	}
	return false
}

// IsCorruption returns true if the test's status record was corrupted.
func IsCorruption(err error) bool {
	var te *TestError
	if errors.As(err, &te) {
		return te.Code == status.CodeCorrupted
	}
	return false
}
