package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/verilib/internal/backend"
	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/config"
	"github.com/roach88/verilib/internal/history"
	"github.com/roach88/verilib/internal/model"
	"github.com/roach88/verilib/internal/report"
	"github.com/roach88/verilib/internal/structure"
	"github.com/roach88/verilib/internal/testutil"
)

const (
	idReduce = model.Identifier("curve/field.rs/reduce()")
	idLoad   = model.Identifier("curve/field.rs/load8()")
	idSquare = model.Identifier("curve/edwards.rs/square()")
)

const trackedCSV = "function,module,link,has_spec,has_proof\n" +
	"reduce,field,https://github.com/o/r/blob/main/src/field.rs#L2,yes,yes\n" +
	"load8,field,https://github.com/o/r/blob/main/src/field.rs#L5,no,no\n" +
	"square,edwards,https://github.com/o/r/blob/main/src/edwards.rs#L1,yes,no\n"

const projectAtoms = `{
  "curve/field.rs/reduce()": {
    "display-name": "reduce",
    "code-path": "src/field.rs",
    "code-module": "curve::field",
    "dependencies": ["curve/field.rs/load8()"],
    "code-text": {"lines-start": 2, "lines-end": 3}
  },
  "curve/field.rs/load8()": {
    "display-name": "load8",
    "code-path": "src/field.rs",
    "code-module": "curve::field",
    "code-text": {"lines-start": 5, "lines-end": 5}
  },
  "curve/edwards.rs/square()": {
    "display-name": "square",
    "code-path": "src/edwards.rs",
    "code-module": "curve::edwards",
    "code-text": {"lines-start": 1, "lines-end": 1}
  }
}`

// fakeRunner answers tool invocations with canned output files.
type fakeRunner struct {
	calls    [][]string
	handlers map[string]func(dir string, args []string) error
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	h, ok := f.handlers[name]
	if !ok {
		return nil, &backend.ToolError{Tool: name, Args: args, ExitCode: -1, Err: errors.New("not installed")}
	}
	return nil, h(dir, args)
}

// writeOutput writes content to the path following -o.
func writeOutput(args []string, content string) error {
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			return os.WriteFile(args[i+1], []byte(content), 0o644)
		}
	}
	return errors.New("missing -o")
}

// testProject is a code-backend checkout with scripted tool output.
type testProject struct {
	t      *testing.T
	root   string
	runner *fakeRunner
	opts   *RootOptions

	specs  string
	proofs string
}

func newTestProject(t *testing.T) *testProject {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, backend.SeedFile), "function\nreduce\nload8\nsquare\n")
	writeFile(t, filepath.Join(root, backend.SeedScript), "# seed analysis\n")
	writeFile(t, filepath.Join(root, "src/field.rs"), "// field\nfn reduce() {\n}\n\nfn load8() {}\n")
	writeFile(t, filepath.Join(root, "src/edwards.rs"), "fn square() {}\n")

	p := &testProject{t: t, root: root, specs: "{}", proofs: "{}"}
	p.runner = &fakeRunner{handlers: map[string]func(string, []string) error{
		"uv": func(dir string, _ []string) error {
			return os.WriteFile(filepath.Join(dir, config.Dir, backend.TrackedFile), []byte(trackedCSV), 0o644)
		},
		"probe-verus": func(_ string, args []string) error {
			switch args[0] {
			case "atomize":
				return writeOutput(args, projectAtoms)
			case "specify":
				return writeOutput(args, p.specs)
			case "verify":
				return writeOutput(args, p.proofs)
			}
			return errors.New("unexpected subcommand " + args[0])
		},
	}}
	p.opts = &RootOptions{
		Runner:      p.runner,
		Clock:       testutil.NewDeterministicClock().Now,
		RunIDs:      testutil.NewSequenceGenerator(),
		Interactive: func(io.Reader) bool { return false },
	}
	return p
}

// run executes one verilib invocation against the project.
func (p *testProject) run(stdin string, args ...string) (string, string, error) {
	cmd := newRootCommand(p.opts)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := Execute(cmd)
	return stdout.String(), stderr.String(), err
}

func (p *testProject) mustRun(args ...string) string {
	p.t.Helper()
	out, stderr, err := p.run("", args...)
	require.NoError(p.t, err, "stderr: %s", stderr)
	return out
}

// setup creates the project in table form and atomizes it.
func (p *testProject) setup() {
	p.t.Helper()
	p.mustRun("create", p.root, "--type", "code-backend", "--form", "table")
	p.mustRun("atomize", p.root)
}

func (p *testProject) ledger() *certs.Ledger {
	return certs.Open(config.VerilibDir(p.root))
}

func (p *testProject) certs(cat certs.Category) []model.Identifier {
	p.t.Helper()
	set, err := p.ledger().List(cat)
	require.NoError(p.t, err)
	return set.Sorted()
}

func (p *testProject) entries() map[model.Identifier]model.Entry {
	p.t.Helper()
	table := structure.NewTable(filepath.Join(config.VerilibDir(p.root), structure.TableFile), discardLogger())
	list, err := table.Load()
	require.NoError(p.t, err)
	out := make(map[model.Identifier]model.Entry, len(list))
	for _, e := range list {
		out[e.Identifier] = e
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateAndAtomize(t *testing.T) {
	p := newTestProject(t)

	out := p.mustRun("create", p.root, "--type", "code-backend", "--form", "table")
	assert.Contains(t, out, "create: 3 entries")
	assert.FileExists(t, config.Path(p.root))
	for _, e := range p.entries() {
		assert.Empty(t, e.Identifier, "create only records origins")
	}

	out = p.mustRun("atomize", p.root)
	assert.Contains(t, out, "atomize: 3 entries")

	entries := p.entries()
	require.Len(t, entries, 3)
	reduce := entries[idReduce]
	assert.Equal(t, "curve::field", reduce.Module)
	assert.Equal(t, []model.Identifier{idLoad}, reduce.Dependencies)
	assert.Equal(t, model.Bool(true), reduce.Visible)
}

func TestAtomizeIsIdempotent(t *testing.T) {
	p := newTestProject(t)
	p.setup()

	path := filepath.Join(config.VerilibDir(p.root), structure.TableFile)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	out := p.mustRun("atomize", p.root)
	assert.Contains(t, out, "added 0")
	assert.NotContains(t, out, "No longer reported")

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestCreateDocumentsForm(t *testing.T) {
	p := newTestProject(t)
	p.mustRun("create", p.root, "--type", "code-backend")

	cfg, err := config.Load(p.root)
	require.NoError(t, err)
	assert.Equal(t, config.FormDocuments, cfg.Form)
	assert.FileExists(t, filepath.Join(p.root, ".verilib", "structure", "src", "field.rs", "reduce.md"))
}

func TestVerifyEndToEnd(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	require.NoError(t, p.ledger().Create(certs.Verify, idReduce, testutil.Epoch))

	p.proofs = `{
  "curve/field.rs/reduce()": {"verified": false, "status": "failure"},
  "curve/field.rs/load8()": {"verified": true, "status": "success"},
  "curve/edwards.rs/square()": {"verified": true, "status": "success"}
}`
	out := p.mustRun("verify", p.root)
	assert.Contains(t, out, "Total certs: 1 → 2 (+2, -1)")
	assert.Contains(t, out, "  + "+string(idSquare))
	assert.Contains(t, out, "  + "+string(idLoad))
	assert.Contains(t, out, "  - "+string(idReduce))
	assert.Equal(t, []model.Identifier{idSquare, idLoad}, p.certs(certs.Verify))
	assert.Empty(t, p.certs(certs.Specify), "verify never touches specify certificates")

	entries := p.entries()
	assert.Equal(t, model.Bool(false), entries[idReduce].Verified)
	assert.Equal(t, model.Bool(true), entries[idLoad].Verified)

	out = p.mustRun("verify", p.root)
	assert.Contains(t, out, "Total certs: 2 → 2 (+0, -0)")
}

func TestVerifyScopedToModule(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	require.NoError(t, p.ledger().Create(certs.Verify, idReduce, testutil.Epoch))
	require.NoError(t, p.ledger().Create(certs.Verify, idSquare, testutil.Epoch))

	p.proofs = `{"curve/edwards.rs/square()": {"verified": false}}`
	out := p.mustRun("verify", p.root, "--verify-only-module", "edwards")
	assert.Contains(t, out, "verify: module edwards")
	assert.Contains(t, out, "Total certs: 2 → 1 (+0, -1)")
	assert.Equal(t, []model.Identifier{idReduce}, p.certs(certs.Verify), "certificates outside the module are kept")

	call := p.runner.calls[len(p.runner.calls)-1]
	assert.Equal(t, []string{"--verify-only-module", "edwards"}, call[len(call)-2:])
}

func TestVerifyUnknownVerdictKeepsCertificate(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	require.NoError(t, p.ledger().Create(certs.Verify, idReduce, testutil.Epoch))

	p.proofs = `{"curve/field.rs/reduce()": {"status": "success"}}`
	out, _, err := p.run("", "verify", p.root, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string               `json:"status"`
		Data   report.VerifySummary `json:"data"`
		RunID  string               `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-0003", resp.RunID)
	assert.Equal(t, []model.Identifier{idReduce}, resp.Data.Unknown)
	assert.Empty(t, resp.Data.Result.Deleted)
	assert.Equal(t, []model.Identifier{idReduce}, p.certs(certs.Verify))
}

func TestVerifyToolFailureLeavesLedgerUntouched(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	require.NoError(t, p.ledger().Create(certs.Verify, idReduce, testutil.Epoch))
	delete(p.runner.handlers, "probe-verus")

	_, stderr, err := p.run("", "verify", p.root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E102]")
	assert.Equal(t, []model.Identifier{idReduce}, p.certs(certs.Verify))
}

func TestVerifyModuleFilterNeedsCodeBackend(t *testing.T) {
	root := t.TempDir()
	fixture, err := os.ReadFile(filepath.Join("..", "backend", "testdata", "dep_graph_document.html"))
	require.NoError(t, err)

	runner := &fakeRunner{handlers: map[string]func(string, []string) error{
		"leanblueprint": func(dir string, _ []string) error {
			path := filepath.Join(dir, filepath.FromSlash(backend.DepGraphPath))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			return os.WriteFile(path, fixture, 0o644)
		},
	}}
	p := &testProject{t: t, root: root, runner: runner, opts: &RootOptions{
		Runner: runner,
		RunIDs: testutil.NewSequenceGenerator(),
	}}

	p.mustRun("create", root, "--type", "proof-backend")
	assert.FileExists(t, filepath.Join(root, ".verilib", "structure", "thm:main.md"))
	calls := len(runner.calls)

	_, stderr, err := p.run("", "verify", root, "--verify-only-module", "edwards")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E100]")
	assert.Len(t, runner.calls, calls, "no tool runs after a usage error")
}

func TestMissingConfig(t *testing.T) {
	p := newTestProject(t)

	for _, name := range []string{"atomize", "specify", "verify", "status", "history"} {
		t.Run(name, func(t *testing.T) {
			_, stderr, err := p.run("", name, p.root)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stderr, "Error [E101]")
			assert.Contains(t, stderr, "verilib create")
		})
	}
	assert.Empty(t, p.runner.calls)
}

func TestCreateFailureWritesNothing(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, os.Remove(filepath.Join(p.root, backend.SeedFile)))

	_, stderr, err := p.run("", "create", p.root, "--type", "code-backend")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E102]")
	assert.NoFileExists(t, config.Path(p.root))
	assert.NoDirExists(t, config.VerilibDir(p.root))
}

func TestCreateFailureAfterDiscoveryWritesNoConfig(t *testing.T) {
	p := newTestProject(t)
	table := filepath.Join(config.VerilibDir(p.root), structure.TableFile)
	stale := `{"a": {"identifier": "curve/field.rs/reduce()"}, "b": {"identifier": "curve/field.rs/reduce()"}}`
	writeFile(t, table, stale)

	_, stderr, err := p.run("", "create", p.root, "--type", "code-backend", "--form", "table")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E103]")
	require.NotEmpty(t, p.runner.calls, "discovery ran before the failure")
	assert.NoFileExists(t, config.Path(p.root))

	data, err := os.ReadFile(table)
	require.NoError(t, err)
	assert.Equal(t, stale, string(data))

	_, stderr, err = p.run("", "atomize", p.root)
	require.Error(t, err)
	assert.Contains(t, stderr, "Error [E101]")
}

func TestCreateFailureRemovesStateDirectory(t *testing.T) {
	p := newTestProject(t)
	p.runner.handlers["uv"] = func(dir string, _ []string) error {
		return os.WriteFile(filepath.Join(dir, config.Dir, backend.TrackedFile), []byte("function,module,link\n\"unterminated\n"), 0o644)
	}

	_, stderr, err := p.run("", "create", p.root, "--type", "code-backend")
	require.Error(t, err)
	assert.Contains(t, stderr, "Error [E102]")
	assert.NoDirExists(t, config.VerilibDir(p.root))
}

func TestStoreFormsAgreeOnDuplicateSeedRows(t *testing.T) {
	tracked := trackedCSV + "reduce,field,https://github.com/o/r/blob/main/src/field.rs#L2,yes,yes\n"

	for _, form := range []string{"table", "documents"} {
		t.Run(form, func(t *testing.T) {
			p := newTestProject(t)
			p.runner.handlers["uv"] = func(dir string, _ []string) error {
				return os.WriteFile(filepath.Join(dir, config.Dir, backend.TrackedFile), []byte(tracked), 0o644)
			}

			out := p.mustRun("create", p.root, "--type", "code-backend", "--form", form)
			assert.Contains(t, out, "create: 4 entries")
			assert.Contains(t, out, "added 4")

			out = p.mustRun("atomize", p.root)
			assert.Contains(t, out, "atomize: 4 entries")
			assert.Contains(t, out, "src/field.rs:2", "the second row for reduce has no atom of its own")
		})
	}
}

func TestVerifyKeepsLedgerResultWhenFlagsCannotBeSaved(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	p.proofs = `{"curve/field.rs/reduce()": {"verified": true, "status": "success"}}`

	table := filepath.Join(config.VerilibDir(p.root), structure.TableFile)
	tool := p.runner.handlers["probe-verus"]
	p.runner.handlers["probe-verus"] = func(dir string, args []string) error {
		if err := tool(dir, args); err != nil {
			return err
		}
		// The structure file turns into a directory while the prover runs.
		if err := os.Remove(table); err != nil {
			return err
		}
		return os.MkdirAll(filepath.Join(table, "blocked"), 0o755)
	}

	out, stderr, err := p.run("", "verify", p.root)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, out, "Total certs: 0 → 1 (+1, -0)")
	assert.Contains(t, stderr, "could not update verified flags")
	assert.Equal(t, []model.Identifier{idReduce}, p.certs(certs.Verify))
}

func TestMalformedConfigIsCorruption(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	require.NoError(t, os.WriteFile(config.Path(p.root), []byte(`{"structure-type": `), 0o644))
	calls := len(p.runner.calls)

	_, stderr, err := p.run("", "verify", p.root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E105]")
	assert.Contains(t, stderr, "verilib create")
	assert.Len(t, p.runner.calls, calls)
}

func TestCreateCrateNeedsCodeBackend(t *testing.T) {
	p := newTestProject(t)

	_, stderr, err := p.run("", "create", p.root, "--type", "proof-backend", "--crate", "curve")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E100]")
	assert.Empty(t, p.runner.calls)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	p := newTestProject(t)

	_, stderr, err := p.run("", "create", p.root, "--type", "dalek")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E100]")
}

func TestCorruptStoreIsLeftUntouched(t *testing.T) {
	p := newTestProject(t)
	p.setup()

	path := filepath.Join(config.VerilibDir(p.root), structure.TableFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, stderr, err := p.run("", "atomize", p.root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E105]")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

const projectSpecs = `{
  "curve/field.rs/reduce()": {"has_requires": true, "has_ensures": true, "name": "reduce", "file": "src/field.rs", "start_line": 2},
  "curve/field.rs/load8()": {"specified": false},
  "curve/edwards.rs/square()": {"specified": true}
}`

func TestSpecifyWithSelectFlag(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	p.specs = projectSpecs

	out := p.mustRun("specify", p.root, "--select", "2")
	assert.Contains(t, out, "Certified 1 of 2 candidates.")
	assert.Equal(t, []model.Identifier{idReduce}, p.certs(certs.Specify))
	assert.Equal(t, model.Bool(true), p.entries()[idReduce].Specified)
	assert.Equal(t, model.Bool(false), p.entries()[idLoad].Specified)

	out = p.mustRun("specify", p.root, "--select", "all")
	assert.Contains(t, out, "Certified 1 of 1 candidates.")
	assert.Equal(t, []model.Identifier{idSquare, idReduce}, p.certs(certs.Specify))

	out = p.mustRun("specify", p.root)
	assert.Contains(t, out, "No newly specified artifacts to certify.")
}

func TestSpecifyCertificatesSurviveLostSpecs(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	p.specs = projectSpecs
	p.mustRun("specify", p.root, "--select", "all")

	p.specs = `{}`
	p.mustRun("specify", p.root)
	p.mustRun("verify", p.root)
	p.mustRun("atomize", p.root)
	assert.Equal(t, []model.Identifier{idSquare, idReduce}, p.certs(certs.Specify))
}

func TestSpecifySelectParseErrorIsCommandError(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	p.specs = projectSpecs

	_, stderr, err := p.run("", "specify", p.root, "--select", "7")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E104]")
	assert.Contains(t, stderr, `"7"`)
	assert.Contains(t, stderr, "[1,2]")
	assert.Empty(t, p.certs(certs.Specify))
}

func TestSpecifyPromptNonInteractive(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	p.specs = projectSpecs

	out, stderr, err := p.run("1\n", "specify", p.root)
	require.NoError(t, err)
	assert.Contains(t, stderr, "2 specified artifacts without a certificate:")
	assert.Contains(t, stderr, "1. square")
	assert.Contains(t, stderr, "2. reduce (src/field.rs:2)")
	assert.Contains(t, out, "Certified 1 of 2 candidates.")
	assert.Equal(t, []model.Identifier{idSquare}, p.certs(certs.Specify))

	_, stderr, err = p.run("7\n", "specify", p.root)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E104]")
}

func TestSpecifyPromptInteractiveRetries(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	p.specs = projectSpecs
	p.opts.Interactive = func(io.Reader) bool { return true }

	out, stderr, err := p.run("7\nall\n", "specify", p.root)
	require.NoError(t, err)
	assert.Contains(t, stderr, `invalid selection "7"`)
	assert.Equal(t, 2, strings.Count(stderr, promptText))
	assert.Contains(t, out, "Certified 2 of 2 candidates.")
}

func TestSpecifyPromptEOFSelectsNothing(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	p.specs = projectSpecs

	out, _, err := p.run("", "specify", p.root)
	require.NoError(t, err)
	assert.Contains(t, out, "No artifacts selected.")
	assert.Empty(t, p.certs(certs.Specify))
}

func TestStatusReportsOrphans(t *testing.T) {
	p := newTestProject(t)
	p.setup()
	require.NoError(t, p.ledger().Create(certs.Verify, idReduce, testutil.Epoch))
	require.NoError(t, p.ledger().Create(certs.Verify, "curve/gone.rs/old()", testutil.Epoch))
	calls := len(p.runner.calls)

	out := p.mustRun("status", p.root, "--format", "json")
	var resp struct {
		Status string               `json:"status"`
		Data   report.StatusSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 3, resp.Data.Entries)
	assert.Equal(t, 3, resp.Data.Tracked)
	assert.Equal(t, 2, resp.Data.Certs[certs.Verify])
	assert.Equal(t, 0, resp.Data.Certs[certs.Specify])
	assert.Equal(t, []model.Identifier{"curve/gone.rs/old()"}, resp.Data.Orphans[certs.Verify])
	assert.Len(t, p.runner.calls, calls, "status runs no tools")
}

func TestHistoryListsRuns(t *testing.T) {
	p := newTestProject(t)
	p.setup()

	out := p.mustRun("history", p.root)
	assert.Contains(t, out, "No recorded runs.")

	p.proofs = `{"curve/field.rs/load8()": {"verified": true}}`
	p.mustRun("verify", p.root)
	p.specs = projectSpecs
	p.mustRun("specify", p.root, "--select", "1")

	out = p.mustRun("history", p.root, "--format", "json")
	var resp struct {
		Data []history.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "specify", resp.Data[0].Phase)
	assert.Equal(t, []model.Identifier{idSquare}, resp.Data[0].Created)
	assert.Equal(t, "verify", resp.Data[1].Phase)
	assert.Equal(t, []model.Identifier{idLoad}, resp.Data[1].Created)
	assert.Equal(t, "run-0004", resp.Data[1].ID)

	out = p.mustRun("history", p.root, "--limit", "1")
	assert.Equal(t, 1, strings.Count(out, "\n"))

	_, _, err := p.run("", "history", p.root, "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
