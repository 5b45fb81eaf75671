package reconcile

import "github.com/roach88/verilib/internal/model"

// Flag selects which tri-state entry flag MarkFlags writes.
type Flag int

const (
	FlagSpecified Flag = iota
	FlagVerified
)

// MarkFlags records the live verdicts on the entries in scope: an entry gets
// true when it is in positive and false otherwise. Entries outside scope or in
// unknown keep their previous value. It returns a new slice and the number of
// entries whose flag changed.
func MarkFlags(entries []model.Entry, scope, positive, unknown model.Set, flag Flag) ([]model.Entry, int) {
	scope, positive, unknown = orEmpty(scope), orEmpty(positive), orEmpty(unknown)

	out := make([]model.Entry, len(entries))
	changed := 0
	for i, e := range entries {
		e = e.Clone()
		if scope.Has(e.Identifier) && !unknown.Has(e.Identifier) {
			v := positive.Has(e.Identifier)
			target := &e.Verified
			if flag == FlagSpecified {
				target = &e.Specified
			}
			if *target == nil || **target != v {
				*target = model.Bool(v)
				changed++
			}
		}
		out[i] = e
	}
	return out, changed
}
