package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/verilib/internal/report"
	"github.com/roach88/verilib/internal/structure"
)

// NewAtomizeCommand creates the atomize command.
func NewAtomizeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "atomize [project-root]",
		Short: "Enrich the structure with identifiers and dependencies",
		Long: `Run the backend's atomizer and fold its output into the structure.

Entries gain their identifier, dependencies and source excerpt. Fields the
atomizer does not report are kept. Entries it no longer reports are flagged
as missing, or dropped when they were hidden. Running atomize twice in a row
rewrites nothing.

Example:
  verilib atomize
  verilib atomize ./project --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAtomize(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runAtomize(opts *RootOptions, args []string, cmd *cobra.Command) error {
	s := newSession(opts, cmd, args)
	ctx := cmd.Context()

	if err := s.load(); err != nil {
		return s.fail(err)
	}

	existing, err := s.store.Load()
	if err != nil {
		return s.fail(err)
	}
	s.logger.Info("atomizing", "entries", len(existing), "location", s.store.Location())

	enriched, err := s.adapter.Atomize(ctx, s.project(), existing)
	if err != nil {
		return s.fail(err)
	}

	merged := structure.Merge(existing, enriched)
	if err := s.store.Save(merged.Entries); err != nil {
		return s.fail(err)
	}
	for _, key := range merged.Missing {
		s.logger.Warn("entry no longer reported", "key", key)
	}

	summary := storeSummary("atomize", s.store.Location(), merged)
	return s.formatter.Result(summary, s.runID, func() {
		report.New(s.formatter.Writer).Store(summary)
	})
}
