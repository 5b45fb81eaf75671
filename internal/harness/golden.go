package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/fileutil"
	"github.com/roach88/verilib/internal/model"
	"github.com/roach88/verilib/internal/reconcile"
)

// Snapshot is the golden form of a scenario run.
type Snapshot struct {
	ScenarioName string                                `json:"scenario_name"`
	Outcome      reconcile.Result                      `json:"outcome"`
	Trace        []TraceEvent                          `json:"trace"`
	Ledger       map[certs.Category][]model.Identifier `json:"ledger"`
}

// RunWithGolden executes a scenario in a scratch directory, fails the test
// on any assertion error and compares the snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(context.Background(), scenario, t.TempDir())
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	for _, e := range result.Errors {
		t.Errorf("scenario %s: %s", scenario.Name, e)
	}

	AssertGolden(t, scenario.Name, result)
	return result
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := fileutil.MarshalJSON(Snapshot{
		ScenarioName: name,
		Outcome:      result.Outcome,
		Trace:        result.Trace,
		Ledger:       result.Ledger,
	})
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
