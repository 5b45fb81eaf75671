package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/verilib/internal/backend"
	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/model"
	"github.com/roach88/verilib/internal/reconcile"
	"github.com/roach88/verilib/internal/report"
	"github.com/roach88/verilib/internal/selection"
)

// SpecifyOptions holds flags for the specify command.
type SpecifyOptions struct {
	*RootOptions
	Select string
}

// NewSpecifyCommand creates the specify command.
func NewSpecifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SpecifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "specify [project-root]",
		Short: "Certify newly specified artifacts",
		Long: `Ask the backend which artifacts carry a specification and offer the ones
without a specify certificate for certification.

Candidates are numbered and read back as a selection such as "1,3-5", "all"
or "none". Use --select to answer without a prompt. Specify certificates are
never removed by verilib.

Example:
  verilib specify
  verilib specify --select all
  verilib specify ./project --select 2-4`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpecify(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Select, "select", "", "selection to certify without prompting (e.g. 1,3-5, all, none)")

	return cmd
}

func runSpecify(opts *SpecifyOptions, args []string, cmd *cobra.Command) error {
	s := newSession(opts.RootOptions, cmd, args)
	ctx := cmd.Context()

	if err := s.load(); err != nil {
		return s.fail(err)
	}
	entries, err := s.store.Load()
	if err != nil {
		return s.fail(err)
	}
	existing, err := s.ledger.List(certs.Specify)
	if err != nil {
		return s.fail(err)
	}

	verdicts, err := s.adapter.SpecStatus(ctx, s.project())
	if err != nil {
		return s.fail(err)
	}

	tracked := model.TrackedSet(entries, "")
	plan := reconcile.PlanSpecify(reconcile.SpecifyInput{
		Tracked:  tracked,
		Spec:     verdicts.Positive,
		Existing: existing,
	})
	s.logger.Info("specify candidates", "candidates", len(plan.Candidates), "certified", len(existing))

	var chosen []model.Identifier
	if len(plan.Candidates) > 0 {
		sel, err := s.selectCandidates(cmd, opts, plan, entries, verdicts)
		if err != nil {
			return s.fail(err)
		}
		if chosen, err = plan.Choose(sel); err != nil {
			return s.fail(err)
		}
	}

	started := s.now()
	res, err := reconcile.Apply(ctx, s.ledger, plan.Changes(chosen), s.now, s.logger)
	if err != nil {
		s.recordPartial(ctx, journalRun("specify", "", started, res))
		return s.fail(err)
	}

	updated, changed := reconcile.MarkFlags(entries, tracked, verdicts.Positive, verdicts.Unknown, reconcile.FlagSpecified)
	if changed > 0 {
		// The ledger is already reconciled. The flags only mirror the
		// verdicts and the next run rewrites them.
		if err := s.store.Save(updated); err != nil {
			s.logger.Warn("could not update specified flags", "error", err)
		} else {
			s.logger.Debug("specified flags updated", "changed", changed)
		}
	}

	s.record(ctx, journalRun("specify", "", started, res))

	summary := report.SpecifySummary{Result: res, Candidates: len(plan.Candidates)}
	return s.formatter.Result(summary, s.runID, func() {
		report.New(s.formatter.Writer).Specify(summary)
	})
}

// selectCandidates resolves the selection from --select or the prompt.
func (s *session) selectCandidates(cmd *cobra.Command, opts *SpecifyOptions, plan reconcile.SpecifyPlan,
	entries []model.Entry, verdicts backend.Verdicts) (selection.Selection, error) {
	if cmd.Flags().Changed("select") {
		return selection.Parse(opts.Select, len(plan.Candidates))
	}

	interactive := isTerminal
	if s.opts.Interactive != nil {
		interactive = s.opts.Interactive
	}
	in := cmd.InOrStdin()
	return promptSelection(in, s.formatter.GetErrWriter(), interactive(in), candidateList(plan.Candidates, entries, verdicts))
}

// candidateList numbers ids for display, preferring the tool's location
// details over the stored origin.
func candidateList(ids []model.Identifier, entries []model.Entry, verdicts backend.Verdicts) []report.Candidate {
	byID := make(map[model.Identifier]model.Entry, len(entries))
	for _, e := range entries {
		if e.Identifier != "" {
			byID[e.Identifier] = e
		}
	}

	out := make([]report.Candidate, 0, len(ids))
	for i, id := range ids {
		c := report.Candidate{Index: i + 1, Identifier: id, DisplayName: id.DisplayName()}
		e, ok := byID[id]
		if ok && e.DisplayName != "" {
			c.DisplayName = e.DisplayName
		}
		if ok && e.Origin != nil {
			c.Location = report.Location(e.Origin.Path, e.Origin.Line)
		}
		if d, ok := verdicts.Details[id]; ok {
			if d.DisplayName != "" {
				c.DisplayName = d.DisplayName
			}
			if d.Path != "" {
				c.Location = report.Location(d.Path, d.Line)
			}
		}
		out = append(out, c)
	}
	return out
}
