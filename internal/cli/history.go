package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/verilib/internal/config"
	"github.com/roach88/verilib/internal/history"
	"github.com/roach88/verilib/internal/report"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [project-root]",
		Short: "List recent specify and verify runs",
		Long: `Show the run journal kept in .verilib/history.db, newest first.

Each line gives the start time, phase, module filter, certificate totals
before and after the run and the run id.

Example:
  verilib history
  verilib history --limit 5 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs to show (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	s := newSession(opts.RootOptions, cmd, args)

	if opts.Limit < 0 {
		return s.fail(newUsageError("--limit must not be negative, got %d", opts.Limit))
	}
	// The journal lives next to the config; a project that was never
	// created has no history to show.
	if _, err := config.Load(s.root); err != nil {
		return s.fail(err)
	}

	hs, err := history.Open(history.Path(s.root))
	if err != nil {
		return s.fail(err)
	}
	defer hs.Close()

	runs, err := hs.List(cmd.Context(), opts.Limit)
	if err != nil {
		return s.fail(err)
	}

	return s.formatter.Result(runs, s.runID, func() {
		report.New(s.formatter.Writer).History(runs)
	})
}
