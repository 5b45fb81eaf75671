package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/history"
	"github.com/roach88/verilib/internal/model"
	"github.com/roach88/verilib/internal/reconcile"
	"github.com/roach88/verilib/internal/testutil"
)

func assertGolden(t *testing.T, name string, render func(r *Renderer)) {
	t.Helper()
	var buf bytes.Buffer
	render(New(&buf))
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}

func TestVerifySummary(t *testing.T) {
	assertGolden(t, "verify_summary", func(r *Renderer) {
		r.Verify(VerifySummary{
			Result: reconcile.Result{
				Category: certs.Verify,
				Created:  []model.Identifier{"B", "C"},
				Deleted:  []model.Identifier{"A"},
				Before:   1,
				After:    2,
			},
			Unknown: []model.Identifier{"D"},
		})
	})
}

func TestVerifySummaryScoped(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Verify(VerifySummary{
		Result: reconcile.Result{Category: certs.Verify, Before: 3, After: 3},
		Module: "edwards",
	})
	assert.Equal(t, "verify: module edwards\nTotal certs: 3 → 3 (+0, -0)\n", buf.String())
}

func TestSpecifySummary(t *testing.T) {
	assertGolden(t, "specify_summary", func(r *Renderer) {
		r.Specify(SpecifySummary{
			Result: reconcile.Result{
				Category: certs.Specify,
				Created:  []model.Identifier{"B"},
				Deleted:  []model.Identifier{},
				Before:   0,
				After:    1,
			},
			Candidates: 3,
		})
	})
}

func TestSpecifyNothingToDo(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Specify(SpecifySummary{Result: reconcile.Result{Before: 4, After: 4}})
	assert.Equal(t, "specify:\nNo newly specified artifacts to certify.\n", buf.String())

	buf.Reset()
	New(&buf).Specify(SpecifySummary{Result: reconcile.Result{Before: 4, After: 4}, Candidates: 2})
	assert.Equal(t, "specify:\nNo artifacts selected.\nTotal certs: 4 → 4 (+0, -0)\n", buf.String())
}

func TestCandidates(t *testing.T) {
	assertGolden(t, "candidates", func(r *Renderer) {
		r.Candidates([]Candidate{
			{Index: 1, DisplayName: "reduce", Location: Location("src/field.rs", 10), Identifier: "probe:curve/field/reduce()"},
			{Index: 2, DisplayName: "load8", Identifier: "probe:curve/field/load8()"},
		})
	})
}

func TestStatus(t *testing.T) {
	assertGolden(t, "status", func(r *Renderer) {
		r.Status(StatusSummary{
			Type:     "code-backend",
			Form:     "documents",
			Location: ".verilib/structure",
			Entries:  5,
			Tracked:  3,
			Hidden:   1,
			Missing:  1,
			Certs:    map[certs.Category]int{certs.Specify: 2, certs.Verify: 1},
			Orphans:  map[certs.Category][]model.Identifier{certs.Verify: {"X"}},
		})
	})
}

func TestStore(t *testing.T) {
	assertGolden(t, "store_summary", func(r *Renderer) {
		r.Store(StoreSummary{
			Phase:     "atomize",
			Location:  ".verilib/stubs.json",
			Entries:   4,
			Added:     1,
			Updated:   2,
			Unchanged: 1,
			Pruned:    []string{"old"},
			Missing:   []string{"gone"},
		})
	})
}

func TestHistory(t *testing.T) {
	assertGolden(t, "history", func(r *Renderer) {
		r.History([]history.Run{
			{
				ID:        "run-0002",
				Phase:     "specify",
				StartedAt: testutil.Epoch.Add(time.Second),
				Before:    0,
				After:     1,
				Created:   []model.Identifier{"B"},
			},
			{
				ID:        "run-0001",
				Phase:     "verify",
				Module:    "edwards",
				StartedAt: testutil.Epoch,
				Before:    1,
				After:     2,
				Created:   []model.Identifier{"B", "C"},
				Deleted:   []model.Identifier{"A"},
			},
		})
	})

	var buf bytes.Buffer
	New(&buf).History(nil)
	assert.Equal(t, "No recorded runs.\n", buf.String())
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "", Location("", 3))
	assert.Equal(t, "a.rs", Location("a.rs", 0))
	assert.Equal(t, "a.rs:3", Location("a.rs", 3))
}
