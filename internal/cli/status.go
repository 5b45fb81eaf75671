package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/model"
	"github.com/roach88/verilib/internal/report"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [project-root]",
		Short: "Summarize the structure and certificate ledger",
		Long: `Report how many entries the structure holds, how many take part in
reconciliation and how many certificates each category has. Certificates whose
identifier is not in the structure are listed as orphans. No tools are run.

Example:
  verilib status
  verilib status ./project --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runStatus(opts *RootOptions, args []string, cmd *cobra.Command) error {
	s := newSession(opts, cmd, args)

	if err := s.load(); err != nil {
		return s.fail(err)
	}
	entries, err := s.store.Load()
	if err != nil {
		return s.fail(err)
	}

	summary := report.StatusSummary{
		Type:     string(s.cfg.Type),
		Form:     string(s.cfg.Form),
		Location: s.store.Location(),
		Entries:  len(entries),
		Certs:    make(map[certs.Category]int),
		Orphans:  make(map[certs.Category][]model.Identifier),
	}
	known := model.NewSet()
	for _, e := range entries {
		switch {
		case e.Identifier == "":
			summary.Pending++
		case e.Missing:
			summary.Missing++
		case !e.Tracked():
			summary.Hidden++
		default:
			summary.Tracked++
		}
		if e.Identifier != "" {
			known.Add(e.Identifier)
		}
	}

	for _, cat := range []certs.Category{certs.Specify, certs.Verify} {
		held, err := s.ledger.List(cat)
		if err != nil {
			return s.fail(err)
		}
		summary.Certs[cat] = len(held)
		summary.Orphans[cat] = held.Minus(known).Sorted()
	}

	return s.formatter.Result(summary, s.runID, func() {
		report.New(s.formatter.Writer).Status(summary)
	})
}
