// Package structure persists tracked entries in one of two interchangeable
// physical forms.
//
// The table form keeps every entry in one JSON object (.verilib/stubs.json)
// keyed by identifier, or by "path:line" before an identifier is known.
//
// The documents form keeps one Markdown document per entry under the
// structure root. The document's YAML frontmatter carries the identifier,
// origin and dependencies; the body is free text. Once an entry is enriched,
// two sidecars sit next to the document:
//
//	<name>.meta.verilib   JSON record mirroring the table form
//	<name>.atom.verilib   raw source or content text, verbatim
//
// Both forms implement Store and share the Merge rule, so callers never need
// to know which form a project uses. Unknown fields in records and headers
// are carried through load/save untouched.
package structure
