package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/model"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.Action, ev.Category, ev.Identifier)
		}
	}
	return buf.String()
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertLedgerEquals:
		return assertLedgerEquals(r, a)
	case AssertTraceContains:
		return assertTraceContains(r, a)
	case AssertTraceCount:
		return assertTraceCount(r, a)
	case AssertTotals:
		return assertTotals(r, a)
	case AssertFlags:
		return assertFlags(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertLedgerEquals(r *Result, a Assertion) error {
	want := make([]model.Identifier, 0, len(a.IDs))
	for _, id := range a.IDs {
		want = append(want, model.Identifier(id))
	}
	model.SortIdentifiers(want)

	got := r.Ledger[certs.Category(a.Category)]
	if got == nil {
		got = []model.Identifier{}
	}
	if !reflect.DeepEqual(want, got) {
		return &AssertionError{
			Type:     AssertLedgerEquals,
			Expected: fmt.Sprintf("%s ledger %v", a.Category, want),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertTraceContains(r *Result, a Assertion) error {
	for _, ev := range r.Trace {
		if ev.Action != a.Action || string(ev.Identifier) != a.ID {
			continue
		}
		if a.Category == "" || string(ev.Category) == a.Category {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s of %s", a.Action, a.ID),
		Actual:   "not found in trace",
		Trace:    r.Trace,
	}
}

func assertTraceCount(r *Result, a Assertion) error {
	if got := r.Count(a.Action); got != a.Count {
		what := "mutations"
		if a.Action != "" {
			what = a.Action + " mutations"
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d", got),
			Trace:    r.Trace,
		}
	}
	return nil
}

func assertTotals(r *Result, a Assertion) error {
	if a.Before != nil && *a.Before != r.Outcome.Before {
		return &AssertionError{
			Type:     AssertTotals,
			Expected: fmt.Sprintf("%d certificates before", *a.Before),
			Actual:   fmt.Sprintf("%d", r.Outcome.Before),
		}
	}
	if a.After != nil && *a.After != r.Outcome.After {
		return &AssertionError{
			Type:     AssertTotals,
			Expected: fmt.Sprintf("%d certificates after", *a.After),
			Actual:   fmt.Sprintf("%d", r.Outcome.After),
		}
	}
	return nil
}

func assertFlags(r *Result, a Assertion) error {
	flags, ok := r.Flags[model.Identifier(a.ID)]
	if !ok {
		return &AssertionError{Type: AssertFlags, Expected: "entry " + a.ID, Actual: "no such entry"}
	}
	if !sameFlag(a.Specified, flags.Specified) {
		return &AssertionError{
			Type:     AssertFlags,
			Expected: fmt.Sprintf("%s specified=%s", a.ID, showFlag(a.Specified)),
			Actual:   showFlag(flags.Specified),
		}
	}
	if !sameFlag(a.Verified, flags.Verified) {
		return &AssertionError{
			Type:     AssertFlags,
			Expected: fmt.Sprintf("%s verified=%s", a.ID, showFlag(a.Verified)),
			Actual:   showFlag(flags.Verified),
		}
	}
	return nil
}

// sameFlag treats an absent expectation as "don't care".
func sameFlag(want, got *bool) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}

func showFlag(b *bool) string {
	if b == nil {
		return "unset"
	}
	return fmt.Sprint(*b)
}
