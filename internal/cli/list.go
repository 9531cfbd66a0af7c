package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/romtest/internal/suite"
	"github.com/roach88/romtest/internal/translate"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Manifest string
}

// TestListing describes one catalog entry.
type TestListing struct {
	Name      string `json:"name"`
	Bit       uint64 `json:"bit"`
	Default   bool   `json:"default"`
	All       bool   `json:"all"`
	Policy    string `json:"policy"`
	Budget    uint64 `json:"budget_cycles"`
	Mirroring string `json:"mirroring"`
	Entry     string `json:"entry,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available tests",
		Long: `List the test catalog in execution order with each test's selector bit
and whether it belongs to the default and "all" selections.

Examples:
  romtest list
  romtest list --manifest ./suites.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Manifest, "manifest", "", "YAML manifest with additional suites")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format: opts.Format,
		Writer: cmd.OutOrStdout(),
	}

	catalog, err := loadCatalog("", opts.Manifest)
	if err != nil {
		return err
	}

	all, def := catalog.All(), catalog.Default()
	var listings []TestListing
	for _, e := range catalog.Entries() {
		l := TestListing{
			Name:      e.Case.Name,
			Bit:       uint64(e.Bit),
			Default:   def.Contains(e.Bit),
			All:       all.Contains(e.Bit),
			Policy:    describePolicy(e.Case.Policy),
			Budget:    e.Case.Policy.Budget(),
			Mirroring: e.Case.Mirroring.String(),
		}
		if e.Case.ForceEntry {
			l.Entry = fmt.Sprintf("0x%04X", e.Case.Entry)
		}
		listings = append(listings, l)
	}

	if opts.Format == "json" {
		return formatter.Success(listings)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-6s %-8s %-4s %s\n", "NAME", "BIT", "DEFAULT", "ALL", "POLICY")
	for _, l := range listings {
		fmt.Fprintf(&b, "%-20s %-6s %-8s %-4s %s\n",
			l.Name, fmt.Sprintf("0x%02x", l.Bit), yesNo(l.Default), yesNo(l.All), l.Policy)
	}
	return formatter.Text(b.String())
}

func describePolicy(p suite.Policy) string {
	switch p := p.(type) {
	case suite.FixedBudget:
		return translate.From("%d cycles", p.Cycles)
	case suite.PollingBudget:
		return translate.From("up to %d chunks of %d cycles (%d total)", p.MaxChunks, p.ChunkCycles, p.Budget())
	default:
		return fmt.Sprintf("%T", p)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
