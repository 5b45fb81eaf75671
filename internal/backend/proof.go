package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/verilib/internal/config"
	"github.com/roach88/verilib/internal/fileutil"
	"github.com/roach88/verilib/internal/model"
)

// Proof backend locations and conventions.
const (
	BlueprintCache  = "blueprint.json"
	DepGraphPath    = "blueprint/web/dep_graph_document.html"
	IdentifierScope = "veri:"
	toolBlueprint   = "leanblueprint"
)

// Proof is the blueprint backend. Artifacts are nodes of the leanblueprint
// dependency graph; statuses come from node colors.
type Proof struct {
	runner Runner
	tools  Tools
	logger *slog.Logger
	schema *schema
}

// Type implements Adapter.
func (b *Proof) Type() config.StructureType {
	return config.ProofBackend
}

// NodeIdentifier returns the identifier of a blueprint node.
func NodeIdentifier(node string) model.Identifier {
	return model.Identifier(IdentifierScope + node)
}

// Discover regenerates the dependency graph, caches it and returns one entry
// per node.
func (b *Proof) Discover(ctx context.Context, p Project) ([]model.Entry, error) {
	g, err := b.regenerate(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := g.Err(); err != nil {
		return nil, &OutputError{Tool: toolBlueprint, Path: filepath.Join(p.Root, DepGraphPath), Err: err}
	}
	if err := b.writeCache(p, g.Nodes); err != nil {
		return nil, err
	}

	entries := make([]model.Entry, 0, len(g.Nodes))
	for _, id := range g.IDs() {
		n := g.Nodes[id]
		entries = append(entries, model.Entry{
			Identifier:   NodeIdentifier(id),
			Path:         id + ".md",
			Dependencies: nodeDependencies(n),
			Body:         n.Content,
		})
	}
	return entries, nil
}

// Atomize enriches entries from the cached graph, regenerating it when the
// cache is absent.
func (b *Proof) Atomize(ctx context.Context, p Project, entries []model.Entry) ([]model.Entry, error) {
	nodes, err := b.readCache(p)
	if errors.Is(err, fs.ErrNotExist) {
		b.logger.Info("blueprint cache missing; regenerating", "path", p.state(BlueprintCache))
		if _, err := b.Discover(ctx, p); err != nil {
			return nil, err
		}
		nodes, err = b.readCache(p)
	}
	if err != nil {
		return nil, err
	}

	var out []model.Entry
	for _, e := range entries {
		name, ok := strings.CutPrefix(string(e.Identifier), IdentifierScope)
		if !ok {
			b.logger.Warn("entry is not a blueprint node", "entry", e.Key())
			continue
		}
		n, ok := nodes[name]
		if !ok {
			b.logger.Warn("node not found in blueprint", "node", name)
			continue
		}
		enriched := model.Entry{
			Identifier:   e.Identifier,
			DisplayName:  name,
			Dependencies: nodeDependencies(n),
			Content:      n.Content,
			Attrs:        map[string]any{"kind": n.Kind},
		}
		if e.Visible == nil {
			enriched.Visible = model.Bool(true)
		}
		out = append(out, enriched)
	}
	b.logger.Info("atomize resolved entries", "resolved", len(out), "entries", len(entries), "nodes", len(nodes))
	return out, nil
}

// SpecStatus reports a node as specified when its statement is stated or
// comes from mathlib.
func (b *Proof) SpecStatus(ctx context.Context, p Project) (Verdicts, error) {
	g, err := b.regenerate(ctx, p)
	if err != nil {
		return Verdicts{}, err
	}
	v := b.verdicts(g, func(n *Node) (string, bool) {
		return n.TypeStatus, n.TypeStatus == StatusStated || n.TypeStatus == StatusMathlib
	})
	return v, nil
}

// VerifyStatus reports a node as verified when its proof is rendered fully
// proved. The renderer already folds the ancestors' proofs into that colour.
// The blueprint has no modules, so a module filter is an error.
func (b *Proof) VerifyStatus(ctx context.Context, p Project, module string) (Verdicts, error) {
	if module != "" {
		return Verdicts{}, ErrModuleFilter
	}
	g, err := b.regenerate(ctx, p)
	if err != nil {
		return Verdicts{}, err
	}
	v := b.verdicts(g, func(n *Node) (string, bool) {
		return n.TermStatus, n.TermStatus == StatusFullyProved
	})
	return v, nil
}

func (b *Proof) verdicts(g *Graph, status func(*Node) (string, bool)) Verdicts {
	v := newVerdicts()
	for id, reason := range g.Problems {
		v.drop(NodeIdentifier(id), reason)
	}
	for _, id := range g.IDs() {
		if _, bad := g.Problems[id]; bad {
			continue
		}
		n := g.Nodes[id]
		s, positive := status(n)
		if s == StatusUnrecognized {
			v.drop(NodeIdentifier(id), "unrecognized node color")
			continue
		}
		v.record(NodeIdentifier(id), positive, Detail{DisplayName: id, Notes: []string{n.Kind, s}})
	}
	for _, d := range v.Dropped {
		b.logger.Warn("ignoring unreadable node", "identifier", d.Identifier, "reason", d.Reason)
	}
	return v
}

// regenerate runs leanblueprint web and parses the resulting graph.
func (b *Proof) regenerate(ctx context.Context, p Project) (*Graph, error) {
	b.logger.Info("running leanblueprint web", "root", p.Root)
	if _, err := b.runner.Run(ctx, p.Root, b.tools.LeanBlueprint, "web"); err != nil {
		return nil, err
	}

	path := filepath.Join(p.Root, filepath.FromSlash(DepGraphPath))
	f, err := os.Open(path)
	if err != nil {
		return nil, &OutputError{Tool: toolBlueprint, Path: path, Err: err}
	}
	defer f.Close()

	g, err := ParseDepGraph(f)
	if err != nil {
		return nil, &OutputError{Tool: toolBlueprint, Path: path, Err: err}
	}
	b.logger.Debug("parsed dependency graph", "nodes", len(g.Nodes), "problems", len(g.Problems))
	return g, nil
}

func (b *Proof) writeCache(p Project, nodes map[string]*Node) error {
	data, err := fileutil.MarshalJSON(nodes)
	if err != nil {
		return err
	}
	if _, err := fileutil.WriteIfChanged(p.state(BlueprintCache), data); err != nil {
		return fmt.Errorf("writing blueprint cache: %w", err)
	}
	return nil
}

// readCache loads and validates the cached graph. A missing cache is
// returned as fs.ErrNotExist.
func (b *Proof) readCache(p Project) (map[string]*Node, error) {
	path := p.state(BlueprintCache)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	records, err := readRecords(toolBlueprint, path)
	if err != nil {
		return nil, err
	}
	nodes := make(map[string]*Node, len(records))
	for id, raw := range records {
		if err := b.schema.check(defBlueprintNode, raw); err != nil {
			return nil, &OutputError{Tool: toolBlueprint, Path: path, Err: fmt.Errorf("node %q: %w", id, err)}
		}
		var n Node
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, &OutputError{Tool: toolBlueprint, Path: path, Err: fmt.Errorf("node %q: %w", id, err)}
		}
		nodes[id] = &n
	}
	return nodes, nil
}

func nodeDependencies(n *Node) []model.Identifier {
	deps := make([]model.Identifier, 0, len(n.TypeDependencies)+len(n.TermDependencies))
	for _, d := range n.TypeDependencies {
		deps = append(deps, NodeIdentifier(d))
	}
	for _, d := range n.TermDependencies {
		deps = append(deps, NodeIdentifier(d))
	}
	return model.NormalizeDependencies(deps)
}
