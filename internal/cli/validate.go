package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/romtest/internal/suite"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Suites []string `json:"suites,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a suite manifest without running it",
		Long: `Validate a YAML suite manifest against the manifest schema, compile its
scripted verdicts and check its names against the built-in catalog.

ROM files are not read.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "manifest not found", err)
	}

	m, err := suite.LoadManifest(path)
	if err == nil {
		formatter.VerboseLog("Loaded %d suite(s) from %s", len(m.Suites), path)
		err = m.AddTo(suite.Standard().Clone())
	}
	if err != nil {
		_ = formatter.Error(ErrCodeManifestInvalid, err.Error(), nil)
		// Validation failures = exit code 1 (test/validation failure)
		return WrapExitError(ExitFailure, "manifest is invalid", err)
	}

	names := make([]string, len(m.Suites))
	for i, s := range m.Suites {
		names[i] = s.Name
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Suites: names})
	}
	fmt.Fprintf(formatter.Writer, "✓ Manifest valid: %d suite(s)\n", len(names))
	return nil
}
