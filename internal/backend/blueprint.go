package backend

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Node kinds, taken from the graph node shape.
const (
	KindTheorem    = "theorem"
	KindDefinition = "definition"
)

// Statuses read from node colors. StatusUnknown means the attribute was
// absent; StatusUnrecognized means it held a color we do not know.
const (
	StatusStated       = "stated"
	StatusCanState     = "can-state"
	StatusNotReady     = "not-ready"
	StatusMathlib      = "mathlib"
	StatusProved       = "proved"
	StatusDefined      = "defined"
	StatusCanProve     = "can-prove"
	StatusFullyProved  = "fully-proved"
	StatusUnknown      = "unknown"
	StatusUnrecognized = "unrecognized"
)

var typeStatuses = map[string]string{
	"green":     StatusStated,
	"blue":      StatusCanState,
	"#FFAA33":   StatusNotReady,
	"darkgreen": StatusMathlib,
}

var termStatuses = map[string]string{
	"#9CEC8B": StatusProved,
	"#B0ECA3": StatusDefined,
	"#A3D6FF": StatusCanProve,
	"#1CAC78": StatusFullyProved,
}

var renderDotPattern = regexp.MustCompile("\\.renderDot\\(`([^`]*)`\\)")

const digraphPrefix = `strict digraph "" {`

// ErrNoDepGraph is returned when the document carries no dependency graph.
var ErrNoDepGraph = errors.New("no renderDot dependency graph found in document")

// Node is one blueprint node. Its JSON form is what the blueprint cache
// stores.
type Node struct {
	Kind             string   `json:"kind"`
	TypeStatus       string   `json:"type-status"`
	TermStatus       string   `json:"term-status"`
	Content          string   `json:"content"`
	TypeDependencies []string `json:"type-dependencies"`
	TermDependencies []string `json:"term-dependencies"`
}

// Graph is a parsed dependency graph. Problems maps node ids to the reason
// the node could not be read completely.
type Graph struct {
	Nodes    map[string]*Node
	Problems map[string]string
}

// IDs returns the node ids in sorted order.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Err summarises all problems as one error, or returns nil.
func (g *Graph) Err() error {
	if len(g.Problems) == 0 {
		return nil
	}
	ids := make([]string, 0, len(g.Problems))
	for id := range g.Problems {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("%s: %s", id, g.Problems[id]))
	}
	return fmt.Errorf("dependency graph has %d unreadable nodes:\n%s", len(ids), strings.Join(lines, "\n"))
}

func (g *Graph) problem(id, format string, args ...any) {
	if _, ok := g.Problems[id]; ok {
		return
	}
	g.Problems[id] = fmt.Sprintf(format, args...)
}

// ParseDepGraph reads a leanblueprint dependency graph document: the DOT
// source passed to renderDot and the modal divs holding node statements.
func ParseDepGraph(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	dot := ""
	for _, m := range renderDotPattern.FindAllSubmatch(data, -1) {
		if bytes.HasPrefix(m[1], []byte("strict digraph")) {
			dot = string(m[1])
			break
		}
	}
	if dot == "" {
		return nil, ErrNoDepGraph
	}
	if !strings.HasPrefix(dot, digraphPrefix) {
		return nil, fmt.Errorf("dependency graph does not start with %q", digraphPrefix)
	}
	end := strings.LastIndexByte(dot, '}')
	if end < len(digraphPrefix) {
		return nil, errors.New("dependency graph has no closing brace")
	}

	g := &Graph{Nodes: make(map[string]*Node), Problems: make(map[string]string)}
	var edges []edge
	for _, stmt := range strings.Split(dot[len(digraphPrefix):end], ";") {
		stmt = strings.TrimSpace(stmt)
		switch {
		case stmt == "",
			strings.HasPrefix(stmt, "graph ["),
			strings.HasPrefix(stmt, "node ["),
			strings.HasPrefix(stmt, "edge ["):
			continue
		case strings.Contains(stmt, "->"):
			edges = append(edges, parseEdge(stmt))
		case strings.Contains(stmt, "[") && strings.Contains(stmt, "]"):
			g.addNode(stmt)
		}
	}

	for _, e := range edges {
		src, ok := g.Nodes[e.from]
		if !ok {
			g.problem(e.from, "edge to %s starts at an unknown node", e.to)
			continue
		}
		if _, ok := g.Nodes[e.to]; !ok {
			g.problem(e.from, "edge points to unknown node %s", e.to)
			continue
		}
		if e.attrs["style"] == "dashed" {
			src.TypeDependencies = append(src.TypeDependencies, e.to)
		} else {
			src.TermDependencies = append(src.TermDependencies, e.to)
		}
	}

	for _, m := range findModals(doc) {
		node, ok := g.Nodes[m.id]
		if !ok {
			g.problem(m.id, "statement has no node in the graph")
			continue
		}
		if m.err != nil {
			g.problem(m.id, "%v", m.err)
			continue
		}
		node.Content = m.content
	}
	return g, nil
}

func (g *Graph) addNode(stmt string) {
	open := strings.IndexByte(stmt, '[')
	closing := strings.LastIndexByte(stmt, ']')
	id := trimQuotes(strings.TrimSpace(stmt[:open]))
	if id == "" || closing < open {
		return
	}
	attrs := parseAttrs(stmt[open : closing+1])

	n := &Node{
		TypeStatus:       StatusUnknown,
		TermStatus:       StatusUnknown,
		TypeDependencies: []string{},
		TermDependencies: []string{},
	}
	switch shape := attrs["shape"]; shape {
	case "ellipse":
		n.Kind = KindTheorem
	case "box":
		n.Kind = KindDefinition
	default:
		g.problem(id, "unsupported node shape %q", shape)
		return
	}
	if c, ok := attrs["color"]; ok {
		n.TypeStatus = lookupStatus(typeStatuses, c)
	}
	if c, ok := attrs["fillcolor"]; ok {
		n.TermStatus = lookupStatus(termStatuses, c)
	}
	g.Nodes[id] = n
}

func lookupStatus(table map[string]string, color string) string {
	if s, ok := table[color]; ok {
		return s
	}
	return StatusUnrecognized
}

type edge struct {
	from, to string
	attrs    map[string]string
}

func parseEdge(stmt string) edge {
	arrow := strings.Index(stmt, "->")
	e := edge{from: trimQuotes(strings.TrimSpace(stmt[:arrow]))}
	rest := strings.TrimSpace(stmt[arrow+2:])
	if open := strings.IndexByte(rest, '['); open >= 0 {
		e.to = trimQuotes(strings.TrimSpace(rest[:open]))
		closing := strings.LastIndexByte(rest, ']')
		if closing < open {
			closing = len(rest) - 1
		}
		e.attrs = parseAttrs(rest[open : closing+1])
	} else {
		e.to = trimQuotes(rest)
	}
	return e
}

// parseAttrs reads "[key=value, key2=\"value\"]".
func parseAttrs(s string) map[string]string {
	s = strings.Trim(s, "[]")
	attrs := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		attrs[strings.TrimSpace(key)] = trimQuotes(strings.TrimSpace(value))
	}
	return attrs
}

func trimQuotes(s string) string {
	return strings.Trim(s, `"'`)
}

type modal struct {
	id      string
	content string
	err     error
}

// findModals collects the div.dep-modal-container elements. Each must have
// an id ending in _modal and exactly one element child.
func findModals(doc *html.Node) []modal {
	var out []modal
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "dep-modal-container") {
			if m, ok := readModal(n); ok {
				out = append(out, m)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func readModal(n *html.Node) (modal, bool) {
	divID := attr(n, "id")
	if divID == "" {
		return modal{}, false
	}
	id, ok := strings.CutSuffix(divID, "_modal")
	if !ok {
		return modal{id: divID, err: fmt.Errorf("statement container id %q does not end with _modal", divID)}, true
	}

	elements := 0
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			elements++
		}
		if err := html.Render(&buf, c); err != nil {
			return modal{id: id, err: err}, true
		}
	}
	if elements != 1 {
		return modal{id: id, err: fmt.Errorf("statement container has %d element children, want 1", elements)}, true
	}
	return modal{id: id, content: buf.String()}, true
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
