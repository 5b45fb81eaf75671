package harness

import (
	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/model"
	"github.com/roach88/verilib/internal/reconcile"
)

// Trace actions.
const (
	ActionCreate = "create"
	ActionDelete = "delete"
)

// TraceEvent is one applied certificate mutation.
type TraceEvent struct {
	Seq        int              `json:"seq"`
	Action     string           `json:"action"`
	Category   certs.Category   `json:"category"`
	Identifier model.Identifier `json:"identifier"`
}

// Flags are the tri-state flags of one entry after the run.
type Flags struct {
	Specified *bool `json:"specified,omitempty"`
	Verified  *bool `json:"verified,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Outcome reconcile.Result `json:"outcome"`

	// Trace lists applied mutations in order.
	Trace []TraceEvent `json:"trace"`

	// Ledger is the final content of both categories.
	Ledger map[certs.Category][]model.Identifier `json:"ledger"`

	// Flags holds the entry flags after the write-back step.
	Flags map[model.Identifier]Flags `json:"flags"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Ledger: make(map[certs.Category][]model.Identifier),
		Flags:  make(map[model.Identifier]Flags),
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns the number of trace events with the given action, or all
// events when action is empty.
func (r *Result) Count(action string) int {
	if action == "" {
		return len(r.Trace)
	}
	n := 0
	for _, e := range r.Trace {
		if e.Action == action {
			n++
		}
	}
	return n
}
