package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/verilib/internal/backend"
	"github.com/roach88/verilib/internal/history"
	"github.com/roach88/verilib/internal/reconcile"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Runner overrides the tool runner (for testing). If nil, tools are
	// executed for real.
	Runner backend.Runner
	// Tools overrides the executable names (for testing).
	Tools backend.Tools
	// Clock overrides the certificate timestamp source (for testing).
	Clock reconcile.Clock
	// RunIDs overrides the run id generator (for testing). If nil, defaults
	// to UUIDv7Generator.
	RunIDs history.IDGenerator
	// Interactive reports whether the prompt input is a terminal. If nil,
	// the input is checked with isatty.
	Interactive func(r io.Reader) bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the verilib CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verilib",
		Short: "verilib - structure and certification reconciliation",
		Long: `Track the functions or theorems of a verification project and keep a ledger
of which of them are specified and which verify.

A project is created once with 'verilib create'. 'atomize' refreshes the
structure from the project's tooling, 'specify' certifies newly specified
artifacts and 'verify' reconciles verification certificates with the prover.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewAtomizeCommand(opts))
	cmd.AddCommand(NewSpecifyCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// Execute runs cmd and returns its error. Errors cobra raises before a
// command runs (unknown flags, missing arguments, bad --format) have not been
// reported yet; they are printed to stderr and become command errors.
func Execute(cmd *cobra.Command) error {
	err := cmd.Execute()
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.reported {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %v\n", ErrCodeUsage, err)
	if exitErr != nil {
		return err
	}
	return WrapExitError(ExitCommandError, ErrCodeUsage, err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
