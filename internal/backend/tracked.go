package backend

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/verilib/internal/model"
)

// TrackedFunction is one row of the seed analysis CSV.
type TrackedFunction struct {
	Function      string
	Module        string
	Link          string
	HasSpec       bool
	ExternalBody  bool
	HasProof      bool
	Path          string
	Line          int
	QualifiedName string
}

// ReadTracked parses the CSV written by the seed analysis script. The first
// row is a header; columns are function, module, link, has_spec, has_proof.
func ReadTracked(r io.Reader) ([]TrackedFunction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) < 3 {
		return nil, fmt.Errorf("header has %d columns, want at least 3", len(header))
	}

	var out []TrackedFunction
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		fn := TrackedFunction{
			Function: column(row, 0),
			Module:   column(row, 1),
			Link:     column(row, 2),
		}
		spec := column(row, 3)
		fn.HasSpec = spec == "yes" || spec == "ext"
		fn.ExternalBody = spec == "ext"
		fn.HasProof = column(row, 4) == "yes"
		fn.QualifiedName = fn.Function
		if path, line, ok := ParseGitHubLink(fn.Link); ok {
			fn.Path, fn.Line = path, line
		}
		out = append(out, fn)
	}
	return out, nil
}

func column(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// ParseGitHubLink extracts the repository path and line from a link of the
// form ".../blob/<ref>/<path>#L<line>". A link without a line anchor yields
// line 0.
func ParseGitHubLink(link string) (string, int, bool) {
	i := strings.Index(link, "/blob/")
	if i < 0 {
		return "", 0, false
	}
	rest := link[i+len("/blob/"):]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return "", 0, false
	}
	rest = rest[slash+1:]
	if rest == "" {
		return "", 0, false
	}

	path, anchor, found := strings.Cut(rest, "#L")
	if !found {
		return path, 0, true
	}
	// GitHub range anchors look like #L10-L20.
	anchor, _, _ = strings.Cut(anchor, "-")
	line, err := strconv.Atoi(anchor)
	if err != nil {
		return "", 0, false
	}
	return path, line, true
}

// Disambiguate suffixes qualified names shared by several functions with
// _0, _1, ... in source order, so every function gets its own document.
func Disambiguate(fns []TrackedFunction) []TrackedFunction {
	out := append([]TrackedFunction(nil), fns...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].QualifiedName < out[j].QualifiedName
	})

	counts := make(map[string]int)
	for _, fn := range out {
		counts[fn.QualifiedName]++
	}
	next := make(map[string]int)
	for i, fn := range out {
		if counts[fn.QualifiedName] < 2 {
			continue
		}
		out[i].QualifiedName = fmt.Sprintf("%s_%d", fn.QualifiedName, next[fn.QualifiedName])
		next[fn.QualifiedName]++
	}
	return out
}

// TrackedEntries converts seed rows into origin-only entries. Rows without a
// usable link are skipped.
func TrackedEntries(fns []TrackedFunction) []model.Entry {
	var out []model.Entry
	for _, fn := range Disambiguate(fns) {
		if fn.Path == "" {
			continue
		}
		out = append(out, model.Entry{
			Origin: &model.Origin{Path: fn.Path, Line: fn.Line},
			Path:   fn.Path + "/" + strings.ReplaceAll(fn.QualifiedName, "::", ".") + ".md",
		})
	}
	return out
}
