// Package harness runs a selection of test ROMs against a processor
// implementation and reports the first failure.
//
// # Execution
//
// Selected test cases run strictly one after another in catalog order. Each
// runs on its own goroutine behind a recover boundary (see package runner);
// the harness waits for its outcome before starting the next. The first
// outcome that is not a pass stops the run.
//
// # Errors
//
// A failed run returns a *TestError naming the test and the kind of failure:
//
//	cpu didn't pass test nrom_test: '...'
//	cpu failed while running test nestest with custom error message ...
//	cpu implementation panicked while running test all_instrs: ...
//
// Use IsFailure, IsPanic and IsCorruption to classify it.
//
// # Reports
//
// Run also returns a Report listing every executed test, the tests skipped
// after a failure and a run identifier. Reports render as text or JSON and
// are compared against golden files in tests:
//
//	go test ./internal/harness -update
//
// # Usage
//
//	h := harness.New(suite.Standard(), runner.New(factory, stepper))
//	report, err := h.Run(suite.Standard().All())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report.WriteText(os.Stdout, nil)
package harness
