package structure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/fileutil"
	"github.com/roach88/verilib/internal/model"
)

// Table is the single-file store form.
type Table struct {
	path   string
	names  certs.Names
	logger *slog.Logger
}

// NewTable returns a table store backed by path.
func NewTable(path string, logger *slog.Logger) *Table {
	return &Table{path: path, names: certs.DetectNames(filepath.Dir(path)), logger: logger}
}

// Location returns the table file path.
func (t *Table) Location() string {
	return t.path
}

// Load reads every entry, ordered by key.
func (t *Table) Load() ([]model.Entry, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", t.path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &CorruptError{Path: t.path, Err: err}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]model.Entry, 0, len(raw))
	for _, key := range keys {
		var e model.Entry
		attrs, err := decodeFields(raw[key], recordFields, &e)
		if err != nil {
			return nil, &CorruptError{Path: t.path, Err: fmt.Errorf("entry %q: %w", key, err)}
		}
		e.Attrs = attrs
		if e.Identifier == "" && (e.Origin == nil || e.Origin.Key() != key) {
			e.Path = key
		}
		entries = append(entries, e)
	}

	if err := Validate(entries, t.names); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save rewrites the table. The file is left alone when its content would not
// change.
func (t *Table) Save(entries []model.Entry) error {
	if err := Validate(entries, t.names); err != nil {
		return err
	}

	table := make(map[string]map[string]any, len(entries))
	for _, e := range entries {
		key := tableKey(e)
		if key == "" {
			return fmt.Errorf("entry has no identifier, origin or path")
		}
		if _, dup := table[key]; dup {
			return fmt.Errorf("two entries share the table key %q", key)
		}
		table[key] = encodeRecord(e)
	}

	data, err := fileutil.MarshalJSON(table)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", t.path, err)
	}
	changed, err := fileutil.WriteIfChanged(t.path, data)
	if err != nil {
		return fmt.Errorf("writing %s: %w", t.path, err)
	}
	t.logger.Debug("saved structure table", "path", t.path, "entries", len(entries), "changed", changed)
	return nil
}

// tableKey is the identifier once known. Before that it is the document path
// the entry would have in the documents form, so entries the documents form
// keeps apart stay apart here too. Entries with neither fall back to the
// origin key.
func tableKey(e model.Entry) string {
	switch {
	case e.Identifier != "":
		return string(e.Identifier)
	case e.Path != "":
		return e.Path
	case e.Origin != nil:
		return e.Origin.Key()
	default:
		return ""
	}
}
