package structure

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/roach88/verilib/internal/model"
)

// Record field names shared by the table form and the meta sidecar.
const (
	fieldIdentifier   = "identifier"
	fieldOrigin       = "origin"
	fieldModule       = "module"
	fieldDisplayName  = "display-name"
	fieldDependencies = "dependencies"
	fieldSpecified    = "specified"
	fieldVerified     = "verified"
	fieldVisible      = "visible"
	fieldMissing      = "missing"
)

var (
	recordFields = map[string]bool{
		fieldIdentifier:   true,
		fieldOrigin:       true,
		fieldModule:       true,
		fieldDisplayName:  true,
		fieldDependencies: true,
		fieldSpecified:    true,
		fieldVerified:     true,
		fieldVisible:      true,
		fieldMissing:      true,
	}
	headerFields = map[string]bool{
		fieldIdentifier:   true,
		fieldOrigin:       true,
		fieldDependencies: true,
	}
)

// encodeRecord renders the full record of e, including preserved attributes.
func encodeRecord(e model.Entry) map[string]any {
	rec := make(map[string]any, len(e.Attrs)+len(recordFields))
	for k, v := range e.Attrs {
		rec[k] = v
	}
	putHeader(rec, e)
	if e.Module != "" {
		rec[fieldModule] = e.Module
	}
	if e.DisplayName != "" {
		rec[fieldDisplayName] = e.DisplayName
	}
	putFlag(rec, fieldSpecified, e.Specified)
	putFlag(rec, fieldVerified, e.Verified)
	putFlag(rec, fieldVisible, e.Visible)
	if e.Missing {
		rec[fieldMissing] = true
	}
	return rec
}

// encodeHeader renders the document frontmatter of e.
func encodeHeader(e model.Entry) map[string]any {
	h := make(map[string]any, len(e.HeaderAttrs)+len(headerFields))
	for k, v := range e.HeaderAttrs {
		h[k] = v
	}
	putHeader(h, e)
	return h
}

func putHeader(m map[string]any, e model.Entry) {
	if e.Identifier != "" {
		m[fieldIdentifier] = string(e.Identifier)
	}
	if e.Origin != nil {
		o := map[string]any{"path": e.Origin.Path, "line": e.Origin.Line}
		if e.Origin.EndLine > 0 {
			o["end-line"] = e.Origin.EndLine
		}
		m[fieldOrigin] = o
	}
	if e.Dependencies != nil {
		deps := make([]string, len(e.Dependencies))
		for i, d := range e.Dependencies {
			deps[i] = string(d)
		}
		m[fieldDependencies] = deps
	}
}

func putFlag(m map[string]any, key string, v *bool) {
	if v != nil {
		m[key] = *v
	}
}

// decodeFields copies the fields named in known from rec into e and returns
// everything else. A null value counts as absent.
func decodeFields(rec map[string]any, known map[string]bool, e *model.Entry) (map[string]any, error) {
	var attrs map[string]any
	for k, v := range rec {
		if !known[k] {
			if attrs == nil {
				attrs = make(map[string]any)
			}
			attrs[k] = v
			continue
		}
		if v == nil {
			continue
		}
		if err := decodeField(k, v, e); err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
	}
	return attrs, nil
}

func decodeField(key string, v any, e *model.Entry) error {
	switch key {
	case fieldIdentifier:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", v)
		}
		e.Identifier = model.Identifier(s)
	case fieldModule, fieldDisplayName:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", v)
		}
		if key == fieldModule {
			e.Module = s
		} else {
			e.DisplayName = s
		}
	case fieldOrigin:
		o, err := decodeOrigin(v)
		if err != nil {
			return err
		}
		e.Origin = o
	case fieldDependencies:
		list, ok := v.([]any)
		if !ok {
			return fmt.Errorf("want list, got %T", v)
		}
		deps := make([]model.Identifier, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("want string dependency, got %T", item)
			}
			deps = append(deps, model.Identifier(s))
		}
		e.Dependencies = model.NormalizeDependencies(deps)
	case fieldSpecified, fieldVerified, fieldVisible, fieldMissing:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", v)
		}
		switch key {
		case fieldSpecified:
			e.Specified = model.Bool(b)
		case fieldVerified:
			e.Verified = model.Bool(b)
		case fieldVisible:
			e.Visible = model.Bool(b)
		case fieldMissing:
			e.Missing = b
		}
	}
	return nil
}

func decodeOrigin(v any) (*model.Origin, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("want mapping, got %T", v)
	}
	path, ok := m["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("origin needs a path")
	}
	line, err := toInt(m["line"])
	if err != nil {
		return nil, fmt.Errorf("origin line: %w", err)
	}
	o := &model.Origin{Path: path, Line: line}
	if end, ok := m["end-line"]; ok && end != nil {
		if o.EndLine, err = toInt(end); err != nil {
			return nil, fmt.Errorf("origin end-line: %w", err)
		}
	}
	return o, nil
}

// toInt accepts the integer shapes produced by encoding/json (with UseNumber)
// and yaml.v3.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, err
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}
