package model

import (
	"fmt"
	"sort"
)

// Origin is a source location: a project-relative path and a 1-based line.
// EndLine is informational; matching uses only Path and Line.
type Origin struct {
	Path    string `json:"path" yaml:"path"`
	Line    int    `json:"line" yaml:"line"`
	EndLine int    `json:"end-line,omitempty" yaml:"end-line,omitempty"`
}

// Key renders the origin as "path:line", the table key of an entry that has
// not been identified yet.
func (o Origin) Key() string {
	return fmt.Sprintf("%s:%d", o.Path, o.Line)
}

// Entry is one tracked artifact.
//
// Identifier is empty until enrichment. Origin is nil for backends whose
// artifacts have no source location. Path is the entry's location in the
// documents form, relative to the structure root; the table form ignores it.
type Entry struct {
	Identifier   Identifier
	Origin       *Origin
	Module       string
	DisplayName  string
	Dependencies []Identifier
	Specified    *bool
	Verified     *bool
	Visible      *bool

	// Missing marks an entry that the latest tool output no longer reports.
	Missing bool

	Path    string
	Body    string
	Content string

	// Attrs holds record fields this version does not interpret. They are
	// written back unchanged. HeaderAttrs is the same for document headers.
	Attrs       map[string]any
	HeaderAttrs map[string]any
}

// Key returns the identity used to match and index the entry: the
// identifier when known, the origin key otherwise, and the document path as a
// last resort.
func (e Entry) Key() string {
	switch {
	case e.Identifier != "":
		return string(e.Identifier)
	case e.Origin != nil:
		return e.Origin.Key()
	default:
		return e.Path
	}
}

// Tracked reports whether the entry takes part in reconciliation: it is
// identified, not hidden, and still reported by the backend.
func (e Entry) Tracked() bool {
	return e.Identifier != "" && !e.Missing && (e.Visible == nil || *e.Visible)
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	out := e
	if e.Origin != nil {
		o := *e.Origin
		out.Origin = &o
	}
	if e.Dependencies != nil {
		out.Dependencies = append([]Identifier{}, e.Dependencies...)
	}
	out.Specified = cloneBool(e.Specified)
	out.Verified = cloneBool(e.Verified)
	out.Visible = cloneBool(e.Visible)
	out.Attrs = cloneMap(e.Attrs)
	out.HeaderAttrs = cloneMap(e.HeaderAttrs)
	return out
}

// Bool returns a pointer to b, for populating tri-state flags.
func Bool(b bool) *bool {
	return &b
}

// NormalizeDependencies sorts ids and removes duplicates and empty values.
// Dependencies have set semantics; a canonical order keeps stores stable.
// A nil slice stays nil (unknown) and a non-nil slice stays non-nil (known,
// possibly empty).
func NormalizeDependencies(ids []Identifier) []Identifier {
	if ids == nil {
		return nil
	}
	seen := make(map[Identifier]struct{}, len(ids))
	out := make([]Identifier, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TrackedSet returns the identifiers of tracked entries, restricted to
// entries under module when module is non-empty.
func TrackedSet(entries []Entry, module string) Set {
	out := make(Set)
	for _, e := range entries {
		if !e.Tracked() {
			continue
		}
		if module != "" && !InModule(e.Module, module) {
			continue
		}
		out.Add(e.Identifier)
	}
	return out
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
