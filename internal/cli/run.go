package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/romtest/internal/harness"
	"github.com/roach88/romtest/internal/runner"
	"github.com/roach88/romtest/internal/suite"
	"github.com/roach88/romtest/internal/translate"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	All      bool
	Manifest string
	ROMs     string

	// RunIDs allows overriding the run identifiers (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs harness.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions, deps Deps) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [test...]",
		Short: "Run test ROMs against the processor",
		Long: `Run the selected test ROMs in catalog order and stop at the first test
that does not pass. With no tests named, the default selection runs.

Exit codes:
  0 - All selected tests passed
  1 - A test failed, errored or panicked
  2 - Command error (unknown test, unreadable manifest, etc.)

Examples:
  romtest run
  romtest run --all
  romtest run nestest nrom_test
  romtest run --roms ./roms --manifest ./suites.yaml cpu_dummy_reads
  romtest run --all --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, deps, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "run every test except those covered by another")
	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "YAML manifest with additional suites")
	cmd.Flags().StringVar(&opts.ROMs, "roms", "", "directory with ROM fixtures, overriding the embedded ones")

	return cmd
}

func runTests(opts *RunOptions, deps Deps, names []string, cmd *cobra.Command) error {
	if deps.Factory == nil || deps.Stepper == nil {
		return NewExitError(ExitCommandError, "no processor implementation configured")
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		Color:     opts.Format == "text" && useColor(cmd.OutOrStdout()),
	}

	catalog, err := loadCatalog(opts.ROMs, opts.Manifest)
	if err != nil {
		return err
	}

	sel, err := catalog.Parse(names)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid test selection", err)
	}
	if opts.All {
		sel |= catalog.All()
	}
	formatter.VerboseLog("Selected tests: %s", strings.Join(catalog.Names(sel), ", "))

	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())
	ids := opts.RunIDs
	if ids == nil {
		ids = harness.UUIDv7Generator{}
	}
	h := harness.New(catalog,
		runner.New(deps.Factory, deps.Stepper, runner.WithLogger(logger)),
		harness.WithLogger(logger),
		harness.WithRunIDGenerator(ids),
	)

	report, runErr := h.Run(sel)

	if opts.Format == "json" {
		if err := outputRunJSON(formatter, report, runErr); err != nil {
			return err
		}
	} else {
		var b strings.Builder
		if err := report.WriteText(&b, translate.Printer()); err != nil {
			return err
		}
		if err := formatter.Text(b.String()); err != nil {
			return err
		}
	}

	if runErr != nil {
		// Test failures = exit code 1
		return WrapExitError(ExitFailure, "test run failed", runErr)
	}
	return nil
}

// loadCatalog builds the catalog from the embedded or overridden fixtures
// plus manifest suites.
func loadCatalog(roms, manifest string) (*suite.Catalog, error) {
	var catalog *suite.Catalog
	if roms == "" {
		catalog = suite.Standard().Clone()
	} else {
		info, err := os.Stat(roms)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "rom directory not found", err)
		}
		if !info.IsDir() {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("rom path is not a directory: %s", roms))
		}
		catalog = suite.Builtin(suite.Overlay(os.DirFS(roms), suite.Fixtures()))
	}

	if manifest == "" {
		return catalog, nil
	}
	m, err := suite.LoadManifest(manifest)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load manifest", err)
	}
	if err := m.AddTo(catalog); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to add manifest suites", err)
	}
	return catalog, nil
}

// outputRunJSON outputs the report as a CLIResponse.
func outputRunJSON(f *OutputFormatter, report *harness.Report, runErr error) error {
	resp := CLIResponse{Status: "ok", Data: report, RunID: report.RunID}

	if runErr != nil {
		resp.Status = "error"
		resp.Error = &CLIError{Code: ErrCodeTestFailed, Message: runErr.Error()}

		var te *harness.TestError
		if errors.As(runErr, &te) {
			resp.Error.Code = string(te.Code)
			resp.Error.Details = map[string]string{"test": te.Test}
		}
	}
	return f.encode(resp)
}
