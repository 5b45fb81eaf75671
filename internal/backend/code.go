package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/verilib/internal/config"
	"github.com/roach88/verilib/internal/model"
)

// Files the code backend reads and writes.
const (
	SeedFile     = "functions_to_track.csv"
	SeedScript   = "scripts/analyze_verus_specs_proofs.py"
	TrackedFile  = "tracked_functions.csv"
	AtomsFile    = "atoms.json"
	SpecsFile    = "specs.json"
	ProofsFile   = "proofs.json"
	toolProbe    = "probe-verus"
	toolSeedScan = "analyze_verus_specs_proofs"
)

// Scratch files probe-verus leaves in the project.
var intermediateFiles = []string{
	"data/index.scip",
	"data/index.scip.json",
	"data/verification_config.json",
	"data/verification_output.txt",
}

// Code is the code-analysis backend.
type Code struct {
	runner Runner
	tools  Tools
	logger *slog.Logger
	schema *schema
	crate  string
}

// atomScheme prefixes every probe-verus atom identifier.
const atomScheme = "probe:"

// Type implements Adapter.
func (c *Code) Type() config.StructureType {
	return config.CodeBackend
}

// Discover runs the seed analysis and returns one origin-only entry per
// tracked function.
func (c *Code) Discover(ctx context.Context, p Project) ([]model.Entry, error) {
	seed := filepath.Join(p.Root, SeedFile)
	if _, err := os.Stat(seed); err != nil {
		return nil, &OutputError{Tool: toolSeedScan, Path: seed, Err: err}
	}
	script := filepath.Join(p.Root, filepath.FromSlash(SeedScript))
	if _, err := os.Stat(script); err != nil {
		return nil, &ToolError{Tool: script, ExitCode: -1, Err: err}
	}

	out := p.state(TrackedFile)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, err
	}

	c.logger.Info("running seed analysis", "script", SeedScript)
	if _, err := c.runner.Run(ctx, p.Root, c.tools.UV,
		"run", script, "--seed", SeedFile, "--output", filepath.Join(config.Dir, TrackedFile)); err != nil {
		return nil, err
	}

	f, err := os.Open(out)
	if err != nil {
		return nil, &OutputError{Tool: toolSeedScan, Path: out, Err: err}
	}
	defer f.Close()

	fns, err := ReadTracked(f)
	if err != nil {
		return nil, &OutputError{Tool: toolSeedScan, Path: out, Err: err}
	}
	entries := TrackedEntries(fns)
	c.logger.Debug("seed analysis complete", "rows", len(fns), "entries", len(entries))
	return entries, nil
}

type atom struct {
	DisplayName  string   `json:"display-name"`
	CodePath     string   `json:"code-path"`
	CodeModule   string   `json:"code-module"`
	Dependencies []string `json:"dependencies"`
	CodeText     struct {
		LinesStart int `json:"lines-start"`
		LinesEnd   int `json:"lines-end"`
	} `json:"code-text"`
}

// Atomize runs probe-verus atomize and resolves every entry to an atom, by
// identifier when known and by exact (path, start line) otherwise.
func (c *Code) Atomize(ctx context.Context, p Project, entries []model.Entry) ([]model.Entry, error) {
	atomsPath := p.state(AtomsFile)
	if err := os.MkdirAll(p.VerilibDir(), 0o755); err != nil {
		return nil, err
	}

	c.logger.Info("running probe-verus atomize", "root", p.Root)
	_, err := c.runner.Run(ctx, p.Root, c.tools.ProbeVerus, "atomize", p.Root, "-o", atomsPath, "-r")
	c.cleanup(p)
	if err != nil {
		return nil, err
	}

	atoms, err := c.readAtoms(atomsPath)
	if err != nil {
		return nil, err
	}
	atoms = c.crateAtoms(atoms)

	index := make(map[string]map[int][]model.Identifier)
	for id, a := range atoms {
		byLine := index[a.CodePath]
		if byLine == nil {
			byLine = make(map[int][]model.Identifier)
			index[a.CodePath] = byLine
		}
		byLine[a.CodeText.LinesStart] = append(byLine[a.CodeText.LinesStart], id)
	}

	excerpts := newExcerptCache(p.Root)
	seen := make(model.Set)
	var out []model.Entry
	for _, e := range entries {
		id, ok := c.resolve(e, atoms, index)
		if !ok {
			continue
		}
		if seen.Has(id) {
			c.logger.Warn("two entries resolve to one atom; keeping the first", "identifier", id, "entry", e.Key())
			continue
		}
		seen.Add(id)

		a := atoms[id]
		deps := make([]model.Identifier, 0, len(a.Dependencies))
		for _, d := range a.Dependencies {
			deps = append(deps, model.Identifier(d))
		}
		display := a.DisplayName
		if display == "" {
			display = id.DisplayName()
		}
		n := model.Entry{
			Identifier:   id,
			Origin:       &model.Origin{Path: a.CodePath, Line: a.CodeText.LinesStart, EndLine: a.CodeText.LinesEnd},
			Module:       a.CodeModule,
			DisplayName:  display,
			Dependencies: model.NormalizeDependencies(deps),
			Content:      excerpts.lines(a.CodePath, a.CodeText.LinesStart, a.CodeText.LinesEnd),
		}
		if e.Visible == nil {
			n.Visible = model.Bool(true)
		}
		out = append(out, n)
	}

	c.logger.Info("atomize resolved entries", "resolved", len(out), "entries", len(entries), "atoms", len(atoms))
	return out, nil
}

func (c *Code) resolve(e model.Entry, atoms map[model.Identifier]atom, index map[string]map[int][]model.Identifier) (model.Identifier, bool) {
	if e.Identifier != "" {
		if _, ok := atoms[e.Identifier]; ok {
			return e.Identifier, true
		}
	}
	if e.Origin == nil {
		c.logger.Warn("entry has no atom and no origin", "entry", e.Key())
		return "", false
	}
	candidates := index[e.Origin.Path][e.Origin.Line]
	switch len(candidates) {
	case 0:
		c.logger.Warn("no atom starts at origin", "origin", e.Origin.Key())
		return "", false
	case 1:
		return candidates[0], true
	default:
		sorted := append([]model.Identifier{}, candidates...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		c.logger.Warn("several atoms start at origin; using the first",
			"origin", e.Origin.Key(), "atoms", len(sorted), "identifier", sorted[0])
		return sorted[0], true
	}
}

// crateAtoms drops atoms outside the configured crate.
func (c *Code) crateAtoms(atoms map[model.Identifier]atom) map[model.Identifier]atom {
	if c.crate == "" {
		return atoms
	}
	prefix := atomScheme + c.crate + "/"
	out := make(map[model.Identifier]atom, len(atoms))
	for id, a := range atoms {
		if strings.HasPrefix(string(id), prefix) {
			out[id] = a
		}
	}
	c.logger.Debug("filtered atoms by crate", "crate", c.crate, "kept", len(out), "atoms", len(atoms))
	return out
}

func (c *Code) readAtoms(path string) (map[model.Identifier]atom, error) {
	records, err := readRecords(toolProbe, path)
	if err != nil {
		return nil, err
	}
	atoms := make(map[model.Identifier]atom, len(records))
	for key, raw := range records {
		if err := c.schema.check(defAtom, raw); err != nil {
			return nil, &OutputError{Tool: toolProbe, Path: path, Err: fmt.Errorf("atom %q: %w", key, err)}
		}
		var a atom
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, &OutputError{Tool: toolProbe, Path: path, Err: fmt.Errorf("atom %q: %w", key, err)}
		}
		atoms[model.Identifier(key)] = a
	}
	return atoms, nil
}

type specRecord struct {
	Specified   *bool  `json:"specified"`
	HasRequires *bool  `json:"has_requires"`
	HasEnsures  *bool  `json:"has_ensures"`
	Name        string `json:"name"`
	File        string `json:"file"`
	StartLine   int    `json:"start_line"`
}

// SpecStatus runs probe-verus specify. An artifact counts as specified when
// it has both a requires and an ensures clause; records that only carry a
// "specified" flag are taken at their word.
func (c *Code) SpecStatus(ctx context.Context, p Project) (Verdicts, error) {
	specsPath := p.state(SpecsFile)
	c.logger.Info("running probe-verus specify", "root", p.Root)
	_, err := c.runner.Run(ctx, p.Root, c.tools.ProbeVerus, "specify", p.Root, "-o", specsPath, "-a", p.state(AtomsFile))
	c.cleanup(p)
	if err != nil {
		return Verdicts{}, err
	}

	records, err := readRecords(toolProbe, specsPath)
	if err != nil {
		return Verdicts{}, err
	}

	v := newVerdicts()
	for _, key := range sortedKeys(records) {
		id := model.Identifier(key)
		raw := records[key]
		if err := c.schema.check(defSpecRecord, raw); err != nil {
			v.drop(id, err.Error())
			continue
		}
		var r specRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			v.drop(id, err.Error())
			continue
		}

		var specified bool
		var notes []string
		switch {
		case r.HasRequires != nil || r.HasEnsures != nil:
			requires := r.HasRequires != nil && *r.HasRequires
			ensures := r.HasEnsures != nil && *r.HasEnsures
			specified = requires && ensures
			if requires {
				notes = append(notes, "requires")
			}
			if ensures {
				notes = append(notes, "ensures")
			}
		case r.Specified != nil:
			specified = *r.Specified
		default:
			v.drop(id, "record carries no specification flags")
			continue
		}

		name := r.Name
		if name == "" {
			name = id.DisplayName()
		}
		v.record(id, specified, Detail{DisplayName: name, Path: r.File, Line: r.StartLine, Notes: notes})
	}
	c.logDropped("specify", v)
	return v, nil
}

type proofRecord struct {
	Verified bool   `json:"verified"`
	Status   string `json:"status"`
	CodePath string `json:"code-path"`
	CodeLine int    `json:"code-line"`
}

// VerifyStatus runs probe-verus verify, restricted to module when given.
func (c *Code) VerifyStatus(ctx context.Context, p Project, module string) (Verdicts, error) {
	proofsPath := p.state(ProofsFile)
	args := []string{"verify", p.Root, "-o", proofsPath, "-a", p.state(AtomsFile)}
	if module != "" {
		args = append(args, "--verify-only-module", module)
	}

	c.logger.Info("running probe-verus verify", "root", p.Root, "module", module)
	_, err := c.runner.Run(ctx, p.Root, c.tools.ProbeVerus, args...)
	c.cleanup(p)
	if err != nil {
		return Verdicts{}, err
	}

	records, err := readRecords(toolProbe, proofsPath)
	if err != nil {
		return Verdicts{}, err
	}

	v := newVerdicts()
	for _, key := range sortedKeys(records) {
		id := model.Identifier(key)
		raw := records[key]
		if err := c.schema.check(defProofRecord, raw); err != nil {
			v.drop(id, err.Error())
			continue
		}
		var r proofRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			v.drop(id, err.Error())
			continue
		}
		var notes []string
		if r.Status != "" {
			notes = []string{r.Status}
		}
		v.record(id, r.Verified, Detail{DisplayName: id.DisplayName(), Path: r.CodePath, Line: r.CodeLine, Notes: notes})
	}
	c.logDropped("verify", v)
	return v, nil
}

// cleanup removes probe-verus scratch files and the data directory when it
// ends up empty.
func (c *Code) cleanup(p Project) {
	for _, rel := range intermediateFiles {
		path := filepath.Join(p.Root, filepath.FromSlash(rel))
		if err := os.Remove(path); err == nil {
			c.logger.Debug("removed intermediate file", "path", rel)
		}
	}
	// Remove fails on a non-empty directory, which is what we want.
	_ = os.Remove(filepath.Join(p.Root, "data"))
}

func (c *Code) logDropped(phase string, v Verdicts) {
	for _, d := range v.Dropped {
		c.logger.Warn("ignoring malformed record", "phase", phase, "identifier", d.Identifier, "reason", d.Reason)
	}
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// excerptCache serves line ranges of project files, reading each file once.
type excerptCache struct {
	root  string
	files map[string][]string
}

func newExcerptCache(root string) *excerptCache {
	return &excerptCache{root: root, files: make(map[string][]string)}
}

// lines returns lines start..end (1-based, inclusive) of path joined with
// newlines, or "" when the file or range is unavailable.
func (x *excerptCache) lines(path string, start, end int) string {
	content, ok := x.files[path]
	if !ok {
		data, err := os.ReadFile(filepath.Join(x.root, filepath.FromSlash(path)))
		if err == nil {
			content = strings.Split(string(data), "\n")
		}
		x.files[path] = content
	}
	if start < 1 || start > len(content) {
		return ""
	}
	if end < start {
		end = start
	}
	if end > len(content) {
		end = len(content)
	}
	return strings.Join(content[start-1:end], "\n") + "\n"
}
