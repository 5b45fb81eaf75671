package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/verilib/internal/backend"
	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/config"
	"github.com/roach88/verilib/internal/model"
	"github.com/roach88/verilib/internal/reconcile"
	"github.com/roach88/verilib/internal/report"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Module string
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify [project-root]",
		Short: "Reconcile verification certificates with the prover",
		Long: `Run the prover and bring the verify certificates in line with its verdicts.

Tracked artifacts that verify gain a certificate. Certified artifacts that no
longer verify lose theirs. Artifacts whose verdict cannot be read are left as
they are. With --verify-only-module only that module is proved and only its
certificates can change.

Example:
  verilib verify
  verilib verify --verify-only-module edwards
  verilib verify ./project --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Module, "verify-only-module", "", "restrict verification to one module (code backend only)")

	return cmd
}

func runVerify(opts *VerifyOptions, args []string, cmd *cobra.Command) error {
	s := newSession(opts.RootOptions, cmd, args)
	ctx := cmd.Context()

	if err := s.load(); err != nil {
		return s.fail(err)
	}
	if opts.Module != "" && s.cfg.Type != config.CodeBackend {
		return s.fail(fmt.Errorf("--verify-only-module with %s: %w", s.cfg.Type, backend.ErrModuleFilter))
	}

	entries, err := s.store.Load()
	if err != nil {
		return s.fail(err)
	}
	existing, err := s.ledger.List(certs.Verify)
	if err != nil {
		return s.fail(err)
	}

	s.logger.Info("verifying", "module", opts.Module, "certified", len(existing))
	verdicts, err := s.adapter.VerifyStatus(ctx, s.project(), opts.Module)
	if err != nil {
		return s.fail(err)
	}

	tracked := model.TrackedSet(entries, opts.Module)
	plan := reconcile.PlanVerify(reconcile.VerifyInput{
		Tracked:  tracked,
		Live:     verdicts.Positive,
		Unknown:  verdicts.Unknown,
		Existing: existing,
	})
	s.logger.Debug("verify plan",
		"tracked", len(tracked),
		"verified", len(plan.NowVerified),
		"create", len(plan.ToCreate),
		"delete", len(plan.ToDelete))

	started := s.now()
	res, err := reconcile.Apply(ctx, s.ledger, plan.Changes(), s.now, s.logger)
	if err != nil {
		s.recordPartial(ctx, journalRun("verify", opts.Module, started, res))
		return s.fail(err)
	}

	updated, changed := reconcile.MarkFlags(entries, tracked, plan.NowVerified, verdicts.Unknown, reconcile.FlagVerified)
	if changed > 0 {
		// The ledger is already reconciled. The flags only mirror the
		// verdicts and the next run rewrites them.
		if err := s.store.Save(updated); err != nil {
			s.logger.Warn("could not update verified flags", "error", err)
		} else {
			s.logger.Debug("verified flags updated", "changed", changed)
		}
	}

	s.record(ctx, journalRun("verify", opts.Module, started, res))

	summary := report.VerifySummary{
		Result:  res,
		Module:  opts.Module,
		Unknown: verdicts.Unknown.Intersect(tracked).Sorted(),
	}
	return s.formatter.Result(summary, s.runID, func() {
		report.New(s.formatter.Writer).Verify(summary)
	})
}
