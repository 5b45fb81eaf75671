package reconcile

import (
	"fmt"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/model"
	"github.com/roach88/verilib/internal/selection"
)

// VerifyInput holds the sets verify reconciliation depends on.
type VerifyInput struct {
	// Tracked is the set of visible store identifiers, already narrowed to
	// the module filter when one is given.
	Tracked model.Set
	// Live is the set of identifiers the prover currently reports verified.
	Live model.Set
	// Unknown is the set of identifiers whose verdict could not be read.
	// They are neither certified nor decertified.
	Unknown model.Set
	// Existing is the current verify ledger.
	Existing model.Set
}

// VerifyPlan is the minimal change bringing the verify ledger in line with
// the live verdicts.
type VerifyPlan struct {
	Existing    model.Set
	NowVerified model.Set
	ToCreate    []model.Identifier
	ToDelete    []model.Identifier
}

// PlanVerify computes
//
//	NowVerified = Tracked ∩ Live
//	ToCreate    = NowVerified \ Existing
//	ToDelete    = (Existing ∩ Tracked) \ NowVerified \ Unknown
//
// Certificates outside Tracked are never scheduled for deletion.
func PlanVerify(in VerifyInput) VerifyPlan {
	tracked := orEmpty(in.Tracked)
	existing := orEmpty(in.Existing)

	now := tracked.Intersect(orEmpty(in.Live))
	return VerifyPlan{
		Existing:    existing,
		NowVerified: now,
		ToCreate:    now.Minus(existing).Sorted(),
		ToDelete:    existing.Intersect(tracked).Minus(now).Minus(orEmpty(in.Unknown)).Sorted(),
	}
}

// Changes returns the ledger mutations of the plan.
func (p VerifyPlan) Changes() Changes {
	return Changes{
		Category: certs.Verify,
		Existing: p.Existing,
		ToCreate: p.ToCreate,
		ToDelete: p.ToDelete,
	}
}

// Empty reports whether the plan changes nothing.
func (p VerifyPlan) Empty() bool {
	return len(p.ToCreate) == 0 && len(p.ToDelete) == 0
}

// SpecifyInput holds the sets specify reconciliation depends on.
type SpecifyInput struct {
	Tracked  model.Set
	Spec     model.Set
	Existing model.Set
}

// SpecifyPlan lists the identifiers a user may certify, in identifier order.
type SpecifyPlan struct {
	Existing   model.Set
	Candidates []model.Identifier
}

// PlanSpecify computes Candidates = (Spec ∩ Tracked) \ Existing, sorted.
func PlanSpecify(in SpecifyInput) SpecifyPlan {
	existing := orEmpty(in.Existing)
	return SpecifyPlan{
		Existing:   existing,
		Candidates: orEmpty(in.Spec).Intersect(orEmpty(in.Tracked)).Minus(existing).Sorted(),
	}
}

// Choose maps a parsed selection onto the candidate list.
func (p SpecifyPlan) Choose(sel selection.Selection) ([]model.Identifier, error) {
	if sel.All {
		return append([]model.Identifier(nil), p.Candidates...), nil
	}
	out := make([]model.Identifier, 0, len(sel.Indices()))
	for _, i := range sel.Indices() {
		if i < 1 || i > len(p.Candidates) {
			return nil, &selection.ParseError{Token: fmt.Sprint(i), N: len(p.Candidates)}
		}
		out = append(out, p.Candidates[i-1])
	}
	return out, nil
}

// Changes returns the ledger mutations certifying selected. Specify never
// deletes.
func (p SpecifyPlan) Changes(selected []model.Identifier) Changes {
	return Changes{
		Category: certs.Specify,
		Existing: p.Existing,
		ToCreate: selected,
	}
}

func orEmpty(s model.Set) model.Set {
	if s == nil {
		return model.NewSet()
	}
	return s
}
