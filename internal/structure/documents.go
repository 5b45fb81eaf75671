package structure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/verilib/internal/certs"
	"github.com/roach88/verilib/internal/fileutil"
	"github.com/roach88/verilib/internal/model"
)

// Document and sidecar extensions.
const (
	DocumentExt = ".md"
	MetaExt     = ".meta.verilib"
	AtomExt     = ".atom.verilib"
)

// Documents is the one-document-per-entry store form.
type Documents struct {
	root   string
	names  certs.Names
	logger *slog.Logger
}

// NewDocuments returns a documents store rooted at root.
func NewDocuments(root string, logger *slog.Logger) *Documents {
	return &Documents{root: root, names: certs.DetectNames(root), logger: logger}
}

// Location returns the structure root.
func (d *Documents) Location() string {
	return d.root
}

// Sidecar returns the sidecar path with extension ext for a document path.
func Sidecar(docPath, ext string) string {
	return strings.TrimSuffix(docPath, DocumentExt) + ext
}

// Load reads every document below the root, ordered by path.
func (d *Documents) Load() ([]model.Entry, error) {
	paths, err := d.documentPaths()
	if err != nil {
		return nil, err
	}

	entries := make([]model.Entry, 0, len(paths))
	for _, rel := range paths {
		e, err := d.loadDocument(rel)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := Validate(entries, d.names); err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *Documents) loadDocument(rel string) (model.Entry, error) {
	path := filepath.Join(d.root, filepath.FromSlash(rel))
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Entry{}, fmt.Errorf("reading %s: %w", path, err)
	}

	header, body, err := parseFrontmatter(data)
	if err != nil {
		return model.Entry{}, &CorruptError{Path: path, Err: err}
	}

	e := model.Entry{Path: rel, Body: body}

	metaPath := Sidecar(path, MetaExt)
	if meta, err := os.ReadFile(metaPath); err == nil {
		dec := json.NewDecoder(bytes.NewReader(meta))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return model.Entry{}, &CorruptError{Path: metaPath, Err: err}
		}
		attrs, err := decodeFields(rec, recordFields, &e)
		if err != nil {
			return model.Entry{}, &CorruptError{Path: metaPath, Err: err}
		}
		e.Attrs = attrs
	} else if !os.IsNotExist(err) {
		return model.Entry{}, fmt.Errorf("reading %s: %w", metaPath, err)
	}

	// The header is the human-edited copy, so it wins over the sidecar.
	headerAttrs, err := decodeFields(header, headerFields, &e)
	if err != nil {
		return model.Entry{}, &CorruptError{Path: path, Err: err}
	}
	e.HeaderAttrs = headerAttrs

	atomPath := Sidecar(path, AtomExt)
	if atom, err := os.ReadFile(atomPath); err == nil {
		e.Content = string(atom)
	} else if !os.IsNotExist(err) {
		return model.Entry{}, fmt.Errorf("reading %s: %w", atomPath, err)
	}

	return e, nil
}

type renderedDocument struct {
	doc  []byte
	meta []byte
	atom []byte
}

// Save writes one document per entry, plus sidecars for enriched entries,
// and removes documents whose entry is gone. Every file is rendered before
// the first write, so an encoding failure leaves the tree untouched.
func (d *Documents) Save(entries []model.Entry) error {
	if err := Validate(entries, d.names); err != nil {
		return err
	}

	rendered := make(map[string]renderedDocument, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		rel, err := cleanDocumentPath(e.Path)
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.Key(), err)
		}
		if _, dup := rendered[rel]; dup {
			return fmt.Errorf("two entries share document %s", rel)
		}

		doc, err := renderFrontmatter(encodeHeader(e), e.Body)
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.Key(), err)
		}
		r := renderedDocument{doc: doc}
		if e.Identifier != "" {
			if r.meta, err = fileutil.MarshalJSON(encodeRecord(e)); err != nil {
				return fmt.Errorf("entry %s: %w", e.Key(), err)
			}
		}
		if e.Content != "" {
			r.atom = []byte(e.Content)
		}
		rendered[rel] = r
		order = append(order, rel)
	}

	existing, err := d.documentPaths()
	if err != nil {
		return err
	}

	written := 0
	for _, rel := range order {
		r := rendered[rel]
		path := filepath.Join(d.root, filepath.FromSlash(rel))
		files := []struct {
			path string
			data []byte
		}{
			{path, r.doc},
			{Sidecar(path, MetaExt), r.meta},
			{Sidecar(path, AtomExt), r.atom},
		}
		for _, f := range files {
			if f.data == nil {
				continue
			}
			changed, err := fileutil.WriteIfChanged(f.path, f.data)
			if err != nil {
				return fmt.Errorf("writing %s: %w", f.path, err)
			}
			if changed {
				written++
			}
		}
	}

	removed := 0
	for _, rel := range existing {
		if _, keep := rendered[rel]; keep {
			continue
		}
		path := filepath.Join(d.root, filepath.FromSlash(rel))
		for _, p := range []string{path, Sidecar(path, MetaExt), Sidecar(path, AtomExt)} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing %s: %w", p, err)
			}
		}
		removed++
		d.logger.Debug("removed structure document", "path", rel)
	}

	d.logger.Debug("saved structure documents", "root", d.root, "entries", len(entries),
		"files_written", written, "documents_removed", removed)
	return nil
}

// documentPaths lists document paths relative to the root, slash-separated
// and sorted.
func (d *Documents) documentPaths() ([]string, error) {
	if _, err := os.Stat(d.root); os.IsNotExist(err) {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(d.root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		name := de.Name()
		if strings.HasPrefix(name, fileutil.TempPrefix) || !strings.HasSuffix(name, DocumentExt) {
			return nil
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", d.root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// cleanDocumentPath rejects paths that are empty, absolute, escape the root,
// or lack the document extension.
func cleanDocumentPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("no document path")
	}
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("document path %q escapes the structure root", p)
	}
	if !strings.HasSuffix(clean, DocumentExt) {
		return "", fmt.Errorf("document path %q must end in %s", p, DocumentExt)
	}
	return clean, nil
}
