package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/model"
	"github.com/roach88/verilib/internal/reconcile"
	"github.com/roach88/verilib/internal/selection"
	"github.com/roach88/verilib/internal/testutil"
)

// recordingLedger applies mutations to a real ledger and appends each
// successful one to the result trace.
type recordingLedger struct {
	ledger *certs.Ledger
	result *Result
}

func (l *recordingLedger) Create(cat certs.Category, id model.Identifier, ts time.Time) error {
	if err := l.ledger.Create(cat, id, ts); err != nil {
		return err
	}
	l.record(ActionCreate, cat, id)
	return nil
}

func (l *recordingLedger) Delete(cat certs.Category, id model.Identifier) error {
	if err := l.ledger.Delete(cat, id); err != nil {
		return err
	}
	l.record(ActionDelete, cat, id)
	return nil
}

func (l *recordingLedger) CheckCollisions(ids []model.Identifier) error {
	return l.ledger.CheckCollisions(ids)
}

func (l *recordingLedger) record(action string, cat certs.Category, id model.Identifier) {
	l.result.Trace = append(l.result.Trace, TraceEvent{
		Seq:        len(l.result.Trace) + 1,
		Action:     action,
		Category:   cat,
		Identifier: id,
	})
}

// Run executes a scenario against a ledger rooted at dir, which should be
// empty. Execution errors (a ledger that cannot be seeded, a bad selection)
// are returned; failed assertions are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, dir string) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewDeterministicClock()
	ledger := certs.Open(dir)

	for _, cat := range []certs.Category{certs.Specify, certs.Verify} {
		for _, id := range scenario.Certs[string(cat)] {
			if err := ledger.Create(cat, model.Identifier(id), clock.Now()); err != nil {
				return nil, fmt.Errorf("seeding %s certificate for %s: %w", cat, id, err)
			}
		}
	}

	entries := make([]model.Entry, 0, len(scenario.Entries))
	for _, e := range scenario.Entries {
		entries = append(entries, e.Entry())
	}
	live := toSet(scenario.Live)
	unknown := toSet(scenario.Unknown)
	scope := model.TrackedSet(entries, scenario.Module)

	var changes reconcile.Changes
	var flag reconcile.Flag
	switch scenario.Phase {
	case PhaseVerify:
		existing, err := ledger.List(certs.Verify)
		if err != nil {
			return nil, err
		}
		plan := reconcile.PlanVerify(reconcile.VerifyInput{
			Tracked:  scope,
			Live:     live,
			Unknown:  unknown,
			Existing: existing,
		})
		changes, flag = plan.Changes(), reconcile.FlagVerified
	case PhaseSpecify:
		existing, err := ledger.List(certs.Specify)
		if err != nil {
			return nil, err
		}
		plan := reconcile.PlanSpecify(reconcile.SpecifyInput{
			Tracked:  scope,
			Spec:     live,
			Existing: existing,
		})
		sel, err := selection.Parse(scenario.Select, len(plan.Candidates))
		if err != nil {
			return nil, err
		}
		chosen, err := plan.Choose(sel)
		if err != nil {
			return nil, err
		}
		changes, flag = plan.Changes(chosen), reconcile.FlagSpecified
	default:
		return nil, fmt.Errorf("unknown phase %q", scenario.Phase)
	}

	result := NewResult()
	outcome, err := reconcile.Apply(ctx, &recordingLedger{ledger: ledger, result: result}, changes, clock.Now, logger)
	if err != nil {
		return nil, err
	}
	result.Outcome = outcome

	marked, _ := reconcile.MarkFlags(entries, scope, live, unknown, flag)
	for _, e := range marked {
		result.Flags[e.Identifier] = Flags{Specified: e.Specified, Verified: e.Verified}
	}

	for _, cat := range []certs.Category{certs.Specify, certs.Verify} {
		set, err := ledger.List(cat)
		if err != nil {
			return nil, err
		}
		result.Ledger[cat] = set.Sorted()
	}

	for i, a := range scenario.Assertions {
		if err := evaluate(result, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

func toSet(ids []string) model.Set {
	s := model.NewSet()
	for _, id := range ids {
		s.Add(model.Identifier(id))
	}
	return s
}
